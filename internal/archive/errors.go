package archive

import (
	"errors"
	"fmt"
)

// ArchiveError represents errors raised by archive storage operations
type ArchiveError struct {
	Type    ArchiveErrorType       `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *ArchiveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *ArchiveError) Unwrap() error {
	return e.Cause
}

// ArchiveErrorType represents different types of archive errors
type ArchiveErrorType string

const (
	ErrorTypeStorage       ArchiveErrorType = "STORAGE_ERROR"
	ErrorTypeValidation    ArchiveErrorType = "VALIDATION_ERROR"
	ErrorTypeCompression   ArchiveErrorType = "COMPRESSION_ERROR"
	ErrorTypeEncryption    ArchiveErrorType = "ENCRYPTION_ERROR"
	ErrorTypeCorruption    ArchiveErrorType = "CORRUPTION_ERROR"
	ErrorTypeConfiguration ArchiveErrorType = "CONFIGURATION_ERROR"
	ErrorTypeNotFound      ArchiveErrorType = "NOT_FOUND_ERROR"
)

// NewArchiveError creates a new ArchiveError
func NewArchiveError(errorType ArchiveErrorType, message string, cause error) *ArchiveError {
	return &ArchiveError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *ArchiveError) WithContext(key string, value interface{}) *ArchiveError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewStorageError(message string, cause error) *ArchiveError {
	return NewArchiveError(ErrorTypeStorage, message, cause)
}

func NewValidationError(message string, cause error) *ArchiveError {
	return NewArchiveError(ErrorTypeValidation, message, cause)
}

func NewCompressionError(message string, cause error) *ArchiveError {
	return NewArchiveError(ErrorTypeCompression, message, cause)
}

func NewEncryptionError(message string, cause error) *ArchiveError {
	return NewArchiveError(ErrorTypeEncryption, message, cause)
}

func NewCorruptionError(message string, cause error) *ArchiveError {
	return NewArchiveError(ErrorTypeCorruption, message, cause)
}

func NewConfigurationError(message string, cause error) *ArchiveError {
	return NewArchiveError(ErrorTypeConfiguration, message, cause)
}

func NewNotFoundError(id string, cause error) *ArchiveError {
	return NewArchiveError(ErrorTypeNotFound, fmt.Sprintf("artifact %s not found", id), cause).
		WithContext("id", id)
}

// IsNotFound reports whether err is a NOT_FOUND archive error
func IsNotFound(err error) bool {
	var archiveErr *ArchiveError
	return errors.As(err, &archiveErr) && archiveErr.Type == ErrorTypeNotFound
}

// ValidationError describes one invalid configuration field
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(e), e[0].Error(), len(e)-1)
}

// Add adds a validation error to the collection
func (e *ValidationErrors) Add(field, message string, value interface{}) {
	*e = append(*e, ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}
