// Package logging provides the structured logger used across the
// deployer. One Logger is created per DeploymentContext and handed down
// to every layer operation so log lines always carry twin/provider/layer
// fields instead of being emitted ad hoc.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls how the root logger is constructed.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json or console
	Output string // stdout, stderr, or a file path
}

// DefaultConfig returns the deployer's default logging configuration.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "console", Output: "stdout"}
}

// Logger wraps a zerolog.Logger with twin-scoped helpers.
type Logger struct {
	zl zerolog.Logger
}

// New builds a root Logger from Config.
func New(cfg Config) *Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		out = os.Stderr
	case "", "stdout":
		out = os.Stdout
	default:
		f, ferr := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if ferr != nil {
			out = os.Stdout
		} else {
			out = f
		}
	}

	if strings.ToLower(cfg.Format) == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().Caller().Logger()
	return &Logger{zl: zl}
}

// NewNop returns a Logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// WithTwin returns a child logger scoped to a twin name and run ID.
func (l *Logger) WithTwin(twinName, runID string) *Logger {
	return &Logger{zl: l.zl.With().Str("twin", twinName).Str("run_id", runID).Logger()}
}

// WithLayer returns a child logger additionally scoped to a layer and
// provider, matching DeploymentContext.SetActiveLayer.
func (l *Logger) WithLayer(layer, provider string) *Logger {
	return &Logger{zl: l.zl.With().Str("layer", layer).Str("provider", provider).Logger()}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.event(l.zl.Debug(), msg, kv) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.event(l.zl.Info(), msg, kv) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.event(l.zl.Warn(), msg, kv) }
func (l *Logger) Error(err error, msg string, kv ...interface{}) {
	l.event(l.zl.Error().Err(err), msg, kv)
}

func (l *Logger) event(ev *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}

// Zerolog exposes the underlying zerolog.Logger for packages that need
// direct access (e.g. wiring it into a gin middleware).
func (l *Logger) Zerolog() zerolog.Logger { return l.zl }
