// Package util provides shared error types for the configuration engine.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrFileAbsent.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., ParseError, StoreError). Each type
//     implements Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
//
// All custom error types must implement:
//
//	Error() string           – human-readable message
//	Unwrap() error           – if the type wraps another error
//	Is(target error) bool    – for errors.Is() compatibility
package util

import (
	"errors"
	"fmt"
)

// Common sentinel errors.
var (
	// ErrFileAbsent reports that no configuration file exists in any of
	// the probed formats. It is the only loader failure the resolution
	// pipeline recovers from (by bootstrapping a fresh configuration).
	ErrFileAbsent = errors.New("configuration file absent")

	// ErrNotFound reports that a key has never been written to the
	// configuration store.
	ErrNotFound = errors.New("not found")

	// ErrMissingProtocol reports that the gateway protocol section is
	// still empty after the store overlay. Protocol configuration cannot
	// be synthesized, so resolution fails.
	ErrMissingProtocol = errors.New("gateway protocol configuration missing")
)

// ParseError represents malformed configuration file content. It is
// fatal: a file that exists but cannot be parsed is never silently
// replaced by a default.
type ParseError struct {
	Path   string
	Format string
	Cause  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s config file %s: %v", e.Format, e.Path, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ParseError) Is(target error) bool {
	_, ok := target.(*ParseError)
	return ok || errors.Is(e.Cause, target)
}

// NewParseError creates a new ParseError.
func NewParseError(path, format string, cause error) *ParseError {
	return &ParseError{Path: path, Format: format, Cause: cause}
}

// ValidationError represents a schema violation on a resolved
// configuration value.
type ValidationError struct {
	Fields  map[string]string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s (fields: %v)", e.Message, e.Fields)
}

// Is checks if the error matches the target.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message, Fields: make(map[string]string)}
}

// AddField adds a field error.
func (e *ValidationError) AddField(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// HasFields returns true if any field errors were recorded.
func (e *ValidationError) HasFields() bool {
	return len(e.Fields) > 0
}

// StoreError represents a connectivity, read, or write failure against
// the configuration store. Once a store dependency exists there is no
// local-only fallback, so these are fatal.
type StoreError struct {
	Op    string
	Key   string
	Cause error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config store %s %s failed: %v", e.Op, e.Key, e.Cause)
	}
	return fmt.Sprintf("config store %s failed: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *StoreError) Is(target error) bool {
	_, ok := target.(*StoreError)
	return ok || errors.Is(e.Cause, target)
}

// NewStoreError creates a new StoreError.
func NewStoreError(op, key string, cause error) *StoreError {
	return &StoreError{Op: op, Key: key, Cause: cause}
}

// BootstrapError represents a failure during first-run bootstrap:
// interactive collection was cancelled or failed, or the generated
// configuration file could not be written.
type BootstrapError struct {
	Step  string
	Cause error
}

// Error implements the error interface.
func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap failed during %s: %v", e.Step, e.Cause)
}

// Unwrap returns the underlying error.
func (e *BootstrapError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *BootstrapError) Is(target error) bool {
	_, ok := target.(*BootstrapError)
	return ok || errors.Is(e.Cause, target)
}

// NewBootstrapError creates a new BootstrapError.
func NewBootstrapError(step string, cause error) *BootstrapError {
	return &BootstrapError{Step: step, Cause: cause}
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
