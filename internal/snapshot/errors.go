package snapshot

import (
	"errors"
	"fmt"
)

// SnapshotError represents errors raised while building, validating,
// migrating or importing a snapshot
type SnapshotError struct {
	Type    SnapshotErrorType      `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *SnapshotError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *SnapshotError) Unwrap() error {
	return e.Cause
}

// SnapshotErrorType represents the error taxonomy
type SnapshotErrorType string

const (
	// Fatal: no writes are attempted
	ErrorTypeStructural    SnapshotErrorType = "STRUCTURAL_ERROR"
	ErrorTypeIntegrity     SnapshotErrorType = "INTEGRITY_ERROR"
	ErrorTypeCompatibility SnapshotErrorType = "COMPATIBILITY_ERROR"

	// Recoverable: counted and reported, processing continues
	ErrorTypeRecord     SnapshotErrorType = "RECORD_ERROR"
	ErrorTypeCollection SnapshotErrorType = "COLLECTION_ERROR"
	ErrorTypeAdapter    SnapshotErrorType = "ADAPTER_ERROR"
)

// NewSnapshotError creates a new SnapshotError
func NewSnapshotError(errorType SnapshotErrorType, message string, cause error) *SnapshotError {
	return &SnapshotError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *SnapshotError) WithContext(key string, value interface{}) *SnapshotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewStructuralError(message string, cause error) *SnapshotError {
	return NewSnapshotError(ErrorTypeStructural, message, cause)
}

func NewIntegrityError(message string, cause error) *SnapshotError {
	return NewSnapshotError(ErrorTypeIntegrity, message, cause)
}

func NewCompatibilityError(message string, cause error) *SnapshotError {
	return NewSnapshotError(ErrorTypeCompatibility, message, cause)
}

func NewRecordError(collection, id string, cause error) *SnapshotError {
	return NewSnapshotError(ErrorTypeRecord, fmt.Sprintf("%s/%s was not written", collection, id), cause).
		WithContext("collection", collection).
		WithContext("id", id)
}

func NewCollectionError(collection string, message string, cause error) *SnapshotError {
	return NewSnapshotError(ErrorTypeCollection, fmt.Sprintf("%s: %s", collection, message), cause).
		WithContext("collection", collection)
}

func NewAdapterError(message string, cause error) *SnapshotError {
	return NewSnapshotError(ErrorTypeAdapter, message, cause)
}

// AsSnapshotError unwraps err to a *SnapshotError
func AsSnapshotError(err error) (*SnapshotError, bool) {
	var snapErr *SnapshotError
	if errors.As(err, &snapErr) {
		return snapErr, true
	}
	return nil, false
}

// IsFatal reports whether err must stop an import before any write
func IsFatal(err error) bool {
	snapErr, ok := AsSnapshotError(err)
	if !ok {
		return false
	}
	switch snapErr.Type {
	case ErrorTypeStructural, ErrorTypeIntegrity, ErrorTypeCompatibility:
		return true
	default:
		return false
	}
}

// ValidationError describes one failed structural check
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors collects structural check failures
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
