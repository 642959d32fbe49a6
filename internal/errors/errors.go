// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies application errors per the game's failure taxonomy.
type ErrorType string

const (
	// ErrorTypeValidation marks caller bugs: out-of-range amounts,
	// invalid act numbers, malformed requests.
	ErrorTypeValidation ErrorType = "validation_error"
	// ErrorTypeNotFound marks lookups for resources requested by id over
	// the API (sessions, trees) that do not exist.
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeContent marks content-authoring defects: dangling node
	// references, unknown effect kinds, bad catalog files.
	ErrorTypeContent ErrorType = "content_error"
	// ErrorTypePersistence marks snapshot load/save failures; these are
	// recovered locally and never crash a session.
	ErrorTypePersistence ErrorType = "persistence_error"
)

// AppError is the application error structure.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap supports error chains.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeValidation, message, originalError)
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

// NewContentError creates a content-reference error.
func NewContentError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeContent, message, originalError)
}

// NewPersistenceError creates a persistence error.
func NewPersistenceError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypePersistence, message, originalError)
}

// IsValidationError checks whether err is a validation error.
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsNotFoundError checks whether err is a not-found error.
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsContentError checks whether err is a content-reference error.
func IsContentError(err error) bool {
	return hasType(err, ErrorTypeContent)
}

// IsPersistenceError checks whether err is a persistence error.
func IsPersistenceError(err error) bool {
	return hasType(err, ErrorTypePersistence)
}

func hasType(err error, t ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == t
	}
	return false
}

func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeContent:
		return "CONTENT_ERROR"
	case ErrorTypePersistence:
		return "PERSISTENCE_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}
