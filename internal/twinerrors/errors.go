// Package twinerrors implements the error taxonomy described in the
// deployer's design: typed, contextual errors that name the offending
// layer and provider instead of bubbling up bare SDK errors.
package twinerrors

import (
	"encoding/json"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Kind is the category of a TwinError.
type Kind string

const (
	KindConfiguration     Kind = "configuration"
	KindProviderNotFound  Kind = "provider_not_found"
	KindResourceCreation  Kind = "resource_creation"
	KindResourceDeletion  Kind = "resource_deletion"
	KindDeployment        Kind = "deployment"
	KindValidation        Kind = "validation"
)

// Class says whether an error is safe to retry.
type Class string

const (
	ClassTransient Class = "transient"
	ClassPermanent Class = "permanent"
)

// TwinError is the structured error type returned by every package in
// this module. It always names the layer/provider/resource involved so
// that user-visible messages never degrade to a bare SDK error string.
type TwinError struct {
	Kind       Kind                   `json:"kind"`
	Class      Class                  `json:"class"`
	Message    string                 `json:"message"`
	Layer      string                 `json:"layer,omitempty"`
	Provider   string                 `json:"provider,omitempty"`
	Resource   string                 `json:"resource,omitempty"`
	Field      string                 `json:"field,omitempty"`
	File       string                 `json:"file,omitempty"`
	Available  []string               `json:"available,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Location   string                 `json:"location,omitempty"`
	Wrapped    error                  `json:"-"`
}

// Error implements the error interface.
func (e *TwinError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Kind))
	parts = append(parts, e.Message)
	if e.Layer != "" {
		parts = append(parts, fmt.Sprintf("(layer: %s)", e.Layer))
	}
	if e.Provider != "" {
		parts = append(parts, fmt.Sprintf("(provider: %s)", e.Provider))
	}
	if e.Resource != "" {
		parts = append(parts, fmt.Sprintf("(resource: %s)", e.Resource))
	}
	if e.Wrapped != nil {
		parts = append(parts, fmt.Sprintf("caused by: %v", e.Wrapped))
	}
	return strings.Join(parts, " ")
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *TwinError) Unwrap() error { return e.Wrapped }

// Is matches on Kind so callers can do errors.Is(err, twinerrors.New(KindDeployment, "")).
func (e *TwinError) Is(target error) bool {
	t, ok := target.(*TwinError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Retryable reports whether the caller may retry the operation that
// produced this error.
func (e *TwinError) Retryable() bool { return e.Class == ClassTransient }

// Wrap attaches a cause to an already-built TwinError and returns it,
// so constructors like Deployment can be chained with a cause without
// going through the Builder: twinerrors.Deployment(...).Wrap(err).
func (e *TwinError) Wrap(err error) *TwinError { e.Wrapped = err; return e }

// Detail attaches a key/value pair to an already-built TwinError.
func (e *TwinError) Detail(key string, value interface{}) *TwinError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON serializes the error for logging/API responses.
func (e *TwinError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// Builder provides a fluent API for constructing a TwinError.
type Builder struct {
	err *TwinError
}

// New starts building an error of the given kind.
func New(kind Kind, message string) *Builder {
	_, file, line, _ := runtime.Caller(1)
	return &Builder{
		err: &TwinError{
			Kind:      kind,
			Class:     ClassPermanent,
			Message:   message,
			Timestamp: time.Now(),
			Location:  fmt.Sprintf("%s:%d", file, line),
			Details:   make(map[string]interface{}),
		},
	}
}

func (b *Builder) Layer(layer string) *Builder    { b.err.Layer = layer; return b }
func (b *Builder) Provider(provider string) *Builder { b.err.Provider = provider; return b }
func (b *Builder) Resource(resource string) *Builder { b.err.Resource = resource; return b }
func (b *Builder) Field(field string) *Builder    { b.err.Field = field; return b }
func (b *Builder) File(file string) *Builder      { b.err.File = file; return b }
func (b *Builder) Transient() *Builder            { b.err.Class = ClassTransient; return b }
func (b *Builder) Available(names []string) *Builder {
	b.err.Available = append([]string(nil), names...)
	return b
}
func (b *Builder) Detail(key string, value interface{}) *Builder {
	b.err.Details[key] = value
	return b
}
func (b *Builder) Wrap(err error) *Builder { b.err.Wrapped = err; return b }

// Err finalizes and returns the built error.
func (b *Builder) Err() *TwinError { return b.err }

// Configuration builds a ConfigurationError naming a missing/invalid field
// in a specific config file.
func Configuration(file, field, message string) *TwinError {
	return New(KindConfiguration, message).File(file).Field(field).Err()
}

// ProviderNotFound builds the ProviderNotFound error with the list of
// currently registered provider names.
func ProviderNotFound(name string, available []string) *TwinError {
	return New(KindProviderNotFound, fmt.Sprintf("provider %q is not registered", name)).
		Available(available).Err()
}

// ResourceCreation wraps an SDK/IaC failure while creating a resource.
func ResourceCreation(layer, provider, resourceType, resourceName string, cause error) *TwinError {
	return New(KindResourceCreation, fmt.Sprintf("failed to create %s %q", resourceType, resourceName)).
		Layer(layer).Provider(provider).Resource(resourceName).Wrap(cause).Err()
}

// ResourceDeletion wraps an SDK/IaC failure while deleting a resource.
func ResourceDeletion(layer, provider, resourceType, resourceName string, cause error) *TwinError {
	return New(KindResourceDeletion, fmt.Sprintf("failed to delete %s %q", resourceType, resourceName)).
		Layer(layer).Provider(provider).Resource(resourceName).Wrap(cause).Err()
}

// Deployment builds a generic layer/provider-scoped deployment error.
func Deployment(layer, provider, message string) *TwinError {
	return New(KindDeployment, message).Layer(layer).Provider(provider).Err()
}

// Validation builds a ValidationError for a failed pre-deploy credential or
// pricing schema check.
func Validation(message string) *TwinError {
	return New(KindValidation, message).Err()
}

// ExitCode maps a TwinError's Kind to the CLI's exit-code categories:
// 2 configuration and provider-not-found, 3 deployment and resource
// creation/deletion, 5 validation, and 1 for every other error.
func ExitCode(err error) int {
	te, ok := err.(*TwinError)
	if !ok {
		return 1
	}
	switch te.Kind {
	case KindConfiguration, KindProviderNotFound:
		return 2
	case KindDeployment, KindResourceCreation, KindResourceDeletion:
		return 3
	case KindValidation:
		return 5
	default:
		return 1
	}
}
