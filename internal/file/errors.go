package file

import (
	"errors"
	"strings"

	"github.com/abduss/mediahost/internal/quota"
)

var (
	// ErrFileNotFound signals that the file could not be located.
	ErrFileNotFound = errors.New("file not found")
	// ErrFileTooLarge signals that the upload exceeds configured limits.
	ErrFileTooLarge = errors.New("file too large")
	// ErrValidation marks request validation failures. Use errors.As with *ValidationError for messages.
	ErrValidation = errors.New("validation failed")
	// ErrQuotaExceeded marks uploads rejected by the provider quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	// ErrContentMismatch signals that uploaded bytes do not match the declared type.
	ErrContentMismatch = errors.New("file content does not match declared content type")
	// ErrUploadIncomplete signals that the object was never uploaded.
	ErrUploadIncomplete = errors.New("upload not found, retry the upload")
	// ErrAlreadyConfirmed is returned when confirming a completed file.
	ErrAlreadyConfirmed = errors.New("file already confirmed")
)

// ValidationError carries the individual validation messages.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func validationError(messages ...string) error {
	return &ValidationError{Messages: messages}
}

// QuotaError carries the quota check that rejected an upload.
type QuotaError struct {
	Check quota.Check
}

func (e *QuotaError) Error() string {
	return e.Check.Message
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }
