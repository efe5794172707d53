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
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeQuotaExceeded     = "QUOTA_EXCEEDED"
	ErrCodeQuotaGateFailure  = "QUOTA_GATE_FAILURE"
	ErrCodeSearchFailure     = "SEARCH_FAILURE"
	ErrCodeGenerationFailure = "GENERATION_FAILURE"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyMessage      = NewDomainError(ErrCodeValidation, "message is required")
	ErrInvalidSourceType = NewDomainError(ErrCodeValidation, "invalid source type")
	ErrMissingSourceID   = NewDomainError(ErrCodeValidation, "source id is required")
	ErrEmptyContent      = NewDomainError(ErrCodeValidation, "content is required")
)

// Not found errors
var (
	ErrDocNotFound = NewDomainError(ErrCodeNotFound, "knowledge doc not found")
)

// Authorization errors
var (
	ErrBadEmbedSecret = NewDomainError(ErrCodeUnauthorized, "invalid embed secret")
)

// Quota errors. ErrQuotaExceeded is an expected outcome, not a fault; the
// gate failure variant means the counter store itself was unreachable.
var (
	ErrQuotaExceeded    = NewDomainError(ErrCodeQuotaExceeded, "daily quota exceeded")
	ErrQuotaGateFailure = NewDomainError(ErrCodeQuotaGateFailure, "quota check failed")
)

// Pipeline errors
var (
	ErrSearchFailure     = NewDomainError(ErrCodeSearchFailure, "similarity search failed")
	ErrGenerationFailure = NewDomainError(ErrCodeGenerationFailure, "answer generation failed")
)
