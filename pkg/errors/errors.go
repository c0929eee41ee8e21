// Package errors provides custom error types for the shelfsync system.
// These errors enable programmatic error checking and consistent recovery
// policy across the reconciliation pipeline.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the shelfsync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that the API rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates that the catalog backend is temporarily unavailable
	ErrUnavailable = errors.New("catalog unavailable")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// TransportError represents a network or call-level failure reaching the
// catalog backend. It is never fatal to a run: the affected chunk or item is
// skipped and surfaced through aggregate error counts.
type TransportError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error during %s (status %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("transport error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TransportError) Is(target error) bool {
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return target == ErrUnavailable
	}
	return false
}

// NewTransportError creates a new TransportError
func NewTransportError(operation string, statusCode int, message string, err error) *TransportError {
	return &TransportError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// ProtocolError represents a malformed response shape from the catalog
// backend, such as an unparsable item identifier or a page missing its
// cursor. The offending record or page is skipped.
type ProtocolError struct {
	Operation string
	Field     string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("protocol error during %s (field %s): %s", e.Operation, e.Field, e.Message)
	}
	return fmt.Sprintf("protocol error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewProtocolError creates a new ProtocolError
func NewProtocolError(operation, field, message string) *ProtocolError {
	return &ProtocolError{
		Operation: operation,
		Field:     field,
		Message:   message,
	}
}

// ConfigError represents a configuration error. Unlike transport and
// protocol errors it is fatal: the run aborts before any remote mutation.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// GraphQLError represents a top-level error returned in a GraphQL response
// envelope. It is a call-level failure distinct from per-row user errors.
type GraphQLError struct {
	Operation string
	Messages  []string
}

// Error implements the error interface
func (e *GraphQLError) Error() string {
	return fmt.Sprintf("graphql error during %s: %v", e.Operation, e.Messages)
}

// Is implements errors.Is support
func (e *GraphQLError) Is(target error) bool {
	return target == ErrUnavailable
}

// NewGraphQLError creates a new GraphQLError
func NewGraphQLError(operation string, messages []string) *GraphQLError {
	return &GraphQLError{Operation: operation, Messages: messages}
}

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ParseError represents an error when parsing input files (feed, remap)
type ParseError struct {
	Format  string
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open", "close"
	Path      string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("IO error during %s: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsConfig checks if an error is a configuration error
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsTransport checks if an error is a transport-level failure
func IsTransport(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var ge *GraphQLError
	return errors.As(err, &ge)
}

// IsProtocol checks if an error is a malformed-response failure
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapTransport wraps an error as a TransportError
func WrapTransport(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{
		Operation: operation,
		Message:   err.Error(),
		Err:       err,
	}
}
