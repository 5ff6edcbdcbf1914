// Package apperr defines the error taxonomy shared by the ingestion,
// gating, and delivery paths.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict marks a lost claim or state-transition race. Callers treat
// it as a no-op, not a failure.
var ErrConflict = errors.New("conflict")

// ValidationError reports malformed or missing caller input. Surfaced as
// a 4xx and never retried.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func Validation(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConfigurationError reports a permanently unusable delivery setup, for
// example a channel without a destination. Never retried; recorded on the
// intent row instead of propagated.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

func Configuration(msg string) error {
	return &ConfigurationError{Msg: msg}
}

func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// TransientError reports a delivery failure worth retrying with backoff:
// provider 5xx, timeout, network error, open circuit breaker.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
