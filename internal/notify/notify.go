// Package notify sends an optional SMTP alert when an info run
// (orchestrator.InfoAll) finds a layer in depctx.StateFailedPartial;
// deploy and destroy runs send no alert.
//
// Adapted from the teacher's internal/notification/email.go: same
// gomail.v2 dialer, same env-var configuration shape, same HTML+text
// dual body. Trimmed to one alert kind (partial-failure) rather than a
// general notification-provider interface, since this deployer has
// exactly one thing worth emailing about.
package notify

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

// Config holds SMTP connection settings for the alert mailer.
type Config struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	UseSSL       bool
	Recipients   []string
}

// Enabled reports whether enough configuration is present to attempt a
// send. An empty recipient list or host disables alerting entirely
// rather than erroring on every run.
func (c Config) Enabled() bool {
	return c.SMTPHost != "" && len(c.Recipients) > 0
}

// FromEnv builds a Config from TWIN2MULTICLOUD_SMTP_* environment
// variables, mirroring the teacher's DRIFT_SMTP_* convention under this
// project's own prefix. TWIN2MULTICLOUD_ALERT_EMAILS is a comma
// separated recipient list; an empty or unset value leaves Config
// disabled.
func FromEnv() Config {
	return Config{
		SMTPHost:     os.Getenv("TWIN2MULTICLOUD_SMTP_HOST"),
		SMTPPort:     envInt("TWIN2MULTICLOUD_SMTP_PORT", 587),
		SMTPUsername: os.Getenv("TWIN2MULTICLOUD_SMTP_USERNAME"),
		SMTPPassword: os.Getenv("TWIN2MULTICLOUD_SMTP_PASSWORD"),
		FromEmail:    envOr("TWIN2MULTICLOUD_SMTP_FROM", "twin2multicloud@example.com"),
		FromName:     envOr("TWIN2MULTICLOUD_SMTP_FROM_NAME", "Twin2MultiCloud"),
		UseSSL:       envBool("TWIN2MULTICLOUD_SMTP_SSL", false),
		Recipients:   splitCSV(os.Getenv("TWIN2MULTICLOUD_ALERT_EMAILS")),
	}
}

// Mailer sends partial-failure alerts over SMTP. A nil *Mailer (or one
// built from a disabled Config) is safe to call Alert on; it's a no-op.
type Mailer struct {
	config Config
	dialer *gomail.Dialer
}

// New builds a Mailer. Returns nil if cfg is not Enabled, so callers
// can unconditionally construct one at startup and let Alert calls
// silently no-op when SMTP isn't configured.
func New(cfg Config) *Mailer {
	if !cfg.Enabled() {
		return nil
	}
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	dialer.SSL = cfg.UseSSL
	return &Mailer{config: cfg, dialer: dialer}
}

// FailureInfo describes the run a partial-failure alert reports on.
type FailureInfo struct {
	ProjectName string
	RunID       string
	Layer       string
	Provider    string
	Err         error
}

// Alert emails every configured recipient about a run that ended in
// StateFailedPartial. A nil receiver is a no-op so callers don't need
// to guard every call site with an Enabled() check.
func (m *Mailer) Alert(info FailureInfo) error {
	if m == nil {
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", fmt.Sprintf("%s <%s>", m.config.FromName, m.config.FromEmail))
	msg.SetHeader("To", strings.Join(m.config.Recipients, ","))
	msg.SetHeader("Subject", fmt.Sprintf("[Twin2MultiCloud] %s: partial failure in %s", info.ProjectName, info.Layer))
	msg.SetHeader("X-Priority", "2")

	msg.SetBody("text/html", m.htmlBody(info))
	msg.AddAlternative("text/plain", m.textBody(info))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("notify: sending partial-failure alert: %w", err)
	}
	return nil
}

func (m *Mailer) htmlBody(info FailureInfo) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Partial failure</title></head>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <div style="background: #f8f9fa; padding: 20px; border-radius: 5px; margin-bottom: 20px;">
      <h2>Partial failure: %s</h2>
      <p><strong>Run:</strong> %s</p>
      <p><strong>Layer:</strong> %s</p>
      <p><strong>Provider:</strong> %s</p>
      <p><strong>Time:</strong> %s</p>
    </div>
    <div style="background: white; padding: 20px; border-radius: 5px; border-left: 4px solid #dc3545;">
      <p>%s</p>
    </div>
  </div>
</body>
</html>`,
		info.ProjectName, info.RunID, info.Layer, info.Provider,
		time.Now().Format("2006-01-02 15:04:05 UTC"), errString(info.Err))
}

func (m *Mailer) textBody(info FailureInfo) string {
	return fmt.Sprintf(`Partial failure: %s
Run: %s
Layer: %s
Provider: %s
Time: %s

%s
`, info.ProjectName, info.RunID, info.Layer, info.Provider,
		time.Now().Format("2006-01-02 15:04:05 UTC"), errString(info.Err))
}

func errString(err error) string {
	if err == nil {
		return "(no error detail)"
	}
	return err.Error()
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return def
}
