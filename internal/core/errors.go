package core

import (
	"errors"
	"fmt"
)

// ErrorType classifies domain errors so handlers can map them to responses.
type ErrorType string

const (
	ErrorTypeCorruptDocument  ErrorType = "corrupt_document"
	ErrorTypeOutOfRange       ErrorType = "out_of_range"
	ErrorTypeExtractionEmpty  ErrorType = "extraction_empty"
	ErrorTypeNarrationFailure ErrorType = "narration_failure"
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeNotFound         ErrorType = "not_found"
	ErrorTypeIO               ErrorType = "io"
	ErrorTypeAPI              ErrorType = "api"
	ErrorTypeConfig           ErrorType = "config"
	ErrorTypeUnauthorized     ErrorType = "unauthorized"
	ErrorTypeConflict         ErrorType = "conflict"
)

// DomainError carries a type, a human message and the underlying cause.
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError of the same type, so the sentinels below work
// with errors.Is regardless of message.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == e.Type
}

// Sentinels for errors.Is checks.
var (
	ErrCorruptDocument  = &DomainError{Type: ErrorTypeCorruptDocument, Message: "document cannot be rendered"}
	ErrOutOfRange       = &DomainError{Type: ErrorTypeOutOfRange, Message: "page out of range"}
	ErrNarrationFailure = &DomainError{Type: ErrorTypeNarrationFailure, Message: "all narration backends failed"}
	ErrNoSession        = &DomainError{Type: ErrorTypeNotFound, Message: "no active reading session"}
)

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{Type: errType, Message: message, Err: err}
}

func CorruptDocumentError(message string, err error) *DomainError {
	return NewError(ErrorTypeCorruptDocument, message, err)
}

func OutOfRangeError(page, pageCount int) *DomainError {
	return NewError(ErrorTypeOutOfRange, fmt.Sprintf("page %d outside [1, %d]", page, pageCount), nil)
}

func NarrationFailureError(message string, err error) *DomainError {
	return NewError(ErrorTypeNarrationFailure, message, err)
}

func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func NotFoundError(message string, err error) *DomainError {
	return NewError(ErrorTypeNotFound, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

func APIError(message string, err error) *DomainError {
	return NewError(ErrorTypeAPI, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func UnauthorizedError(message string) *DomainError {
	return NewError(ErrorTypeUnauthorized, message, nil)
}

func ConflictError(message string) *DomainError {
	return NewError(ErrorTypeConflict, message, nil)
}

// TypeOf returns the type of the first DomainError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}
