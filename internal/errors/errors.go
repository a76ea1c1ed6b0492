// Package errors provides the error taxonomy shared by the Databricks clients
// and the tool layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ConfigurationError indicates missing or invalid settings, such as an absent
// workspace host or token. It is raised before any network call.
type ConfigurationError struct {
	Setting string // e.g. "DATABRICKS_HOST"
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Setting != "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Message)
	}
	return "configuration error: " + e.Message
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(setting, message string) *ConfigurationError {
	return &ConfigurationError{Setting: setting, Message: message}
}

// RateLimitError is returned when every attempt of a request was answered
// with 429 Too Many Requests.
type RateLimitError struct {
	URL      string
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("max retries %d exceeded for %s: still rate limited (429)", e.Attempts, e.URL)
}

// HTTPError is a non-success response other than 429. It is never retried.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string // truncated response body, may be empty
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("API error %d (%s) for %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// AggregationError reports which member of a fan-out failed. The whole
// operation fails with it; results of the other members are discarded.
type AggregationError struct {
	Index int    // position of the failed identifier in the input
	ID    string // the identifier itself
	Err   error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("request %d (%s) failed: %v", e.Index, e.ID, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// NamespaceIntegrityError indicates a catalog, schema or table name that
// cannot be represented as a dotted three-part name.
type NamespaceIntegrityError struct {
	Name   string
	Reason string
}

func (e *NamespaceIntegrityError) Error() string {
	return fmt.Sprintf("invalid namespace name %q: %s", e.Name, e.Reason)
}

// ValidationError indicates invalid input parameters.
type ValidationError struct {
	Field   string // field name that failed validation
	Value   string // the invalid value (may be empty for sensitive data)
	Message string // human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("validation failed for %s=%q: %s", e.Field, e.Value, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsConfiguration returns true if err wraps a ConfigurationError.
func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsRateLimited returns true if err wraps a RateLimitError.
func IsRateLimited(err error) bool {
	var target *RateLimitError
	return errors.As(err, &target)
}

// IsHTTPStatus returns true if err wraps an HTTPError with the given status.
func IsHTTPStatus(err error, status int) bool {
	var target *HTTPError
	return errors.As(err, &target) && target.StatusCode == status
}

// IsAggregation returns true if err wraps an AggregationError.
func IsAggregation(err error) bool {
	var target *AggregationError
	return errors.As(err, &target)
}

// IsNamespaceIntegrity returns true if err wraps a NamespaceIntegrityError.
func IsNamespaceIntegrity(err error) bool {
	var target *NamespaceIntegrityError
	return errors.As(err, &target)
}

// IsValidation returns true if err wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
