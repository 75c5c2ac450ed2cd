package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSecurityNotFound is the sentinel for lookups against the security catalog.
var ErrSecurityNotFound = errors.New("security not found")

// ValidationError reports caller-supplied data that violates a precondition.
// The operation aborts before any derived state is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NotFoundError names the tickers missing from the security catalog.
type NotFoundError struct {
	Tickers []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("securities not found: %s", strings.Join(e.Tickers, ", "))
}

func (e *NotFoundError) Unwrap() error {
	return ErrSecurityNotFound
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err represents a missing security.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSecurityNotFound)
}
