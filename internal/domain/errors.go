package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidStatus        = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrInvalidDecision      = NewDomainError(ErrCodeValidation, "invalid bid decision")
	ErrInvalidAgent         = NewDomainError(ErrCodeValidation, "invalid agent name")
	ErrInvalidAgentJob      = NewDomainError(ErrCodeValidation, "invalid agent job status")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrAgentJobNotFound = NewDomainError(ErrCodeNotFound, "agent job not found")
	ErrReportNotFound   = NewDomainError(ErrCodeNotFound, "report not found")
)

// Concurrency errors
var (
	ErrVersionConflict = NewDomainError(ErrCodeConflict, "document was modified concurrently")
)

// Operation errors
var (
	ErrNoEvidence           = NewDomainError(ErrCodeInvalidOperation, "no relevant evidence found")
	ErrNoDuplicateCheck     = NewDomainError(ErrCodeInvalidOperation, "duplicate check has not run yet")
	ErrInvalidTransition    = NewDomainError(ErrCodeInvalidOperation, "operation not allowed in the current status")
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)
