package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Authentication and lifecycle errors
	ErrInvalidCredentials = errors.New("wrong username or password")
	ErrEmailNotVerified   = errors.New("email address not verified")
	ErrAlreadyVerified    = errors.New("email address already verified")

	// Reset-token errors. Not found, hash mismatch and expiry all collapse
	// into this one value so callers cannot tell the cases apart.
	ErrTokenInvalidOrExpired = errors.New("token is invalid or has expired")

	ErrPasswordMismatch = errors.New("passwords do not match")
)

// ConflictError reports a uniqueness violation at registration. The message
// distinguishes username from email conflicts without revealing which
// account owns them. errors.Is(err, ErrConflict) matches.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// ValidationError reports malformed or missing input. Message names the
// offending field or the first violated rule and is safe to show callers.
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

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
