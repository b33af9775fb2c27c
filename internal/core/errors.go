package core

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or out-of-range input. It is surfaced to
// the caller with its message and never silently coerced.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NotFoundError is returned for ids that do not exist or belong to another
// owner. Both cases produce the same error.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConflictError reports a uniqueness violation outside the upsert path.
type ConflictError struct {
	Resource string
	Message  string
}

func (e *ConflictError) Error() string {
	return e.Resource + ": " + e.Message
}

var (
	ErrInvalidAmount    = &ValidationError{Field: "amount", Message: "must be a non-negative number with at most two decimals"}
	ErrInvalidLimit     = &ValidationError{Field: "limit", Message: "must be a non-negative number with at most two decimals"}
	ErrInvalidMonth     = &ValidationError{Field: "month", Message: "must be between 1 and 12"}
	ErrInvalidYear      = &ValidationError{Field: "year", Message: "must be between 1900 and 9999"}
	ErrInvalidCategory  = &ValidationError{Field: "category", Message: "unknown category"}
	ErrInvalidSource    = &ValidationError{Field: "source", Message: "unknown income source"}
	ErrInvalidFrequency = &ValidationError{Field: "frequency", Message: "unknown income frequency"}
	ErrEmptyTitle       = &ValidationError{Field: "title", Message: "title is required"}
	ErrEmptyOwner       = &ValidationError{Field: "owner_id", Message: "owner is required"}
	ErrZeroDate         = &ValidationError{Field: "date", Message: "date is required"}
)

// Invalid builds a ValidationError for the given field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a NotFoundError.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
