// Package errors provides the error types shared across plat-intel.
// Sentinels support errors.Is checks; typed errors carry context and
// unwrap to their cause.
package errors

import (
	"errors"
	"fmt"
)

// New is an alias for the standard library errors.New.
var New = errors.New

// Is, As and Unwrap re-export the standard helpers so callers only import one
// errors package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDestroyed indicates an operation on a torn-down map engine.
	ErrDestroyed = errors.New("map engine destroyed")

	// ErrNoContainer indicates that a map engine was constructed without a container.
	ErrNoContainer = errors.New("map container required")

	// ErrUnavailable indicates that an upstream or optional dependency is unavailable.
	ErrUnavailable = errors.New("unavailable")
)

// NotFoundError represents a lookup miss for a named resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// Is implements errors.Is support.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// FetchError represents a failed request to an upstream data endpoint.
type FetchError struct {
	Source     string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s (%s): status %d", e.Source, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.Source, e.URL, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports server-side failures as ErrUnavailable.
func (e *FetchError) Is(target error) bool {
	return target == ErrUnavailable && (e.StatusCode == 0 || e.StatusCode >= 500)
}

// NewFetchError creates a new FetchError.
func NewFetchError(source, url string, statusCode int, err error) *FetchError {
	return &FetchError{Source: source, URL: url, StatusCode: statusCode, Err: err}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("configuration error: %s", e.Message)
	if e.Component != "" {
		msg = fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements errors.Unwrap.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// WrapResource wraps err with a resource and operation label.
func WrapResource(op, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s %s %q: %w", op, resource, id, err)
}
