package errors

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/feral-file/ff-yield-ledger/internal/domain"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest       ErrorCode = "bad_request"
	ErrCodeNotFound         ErrorCode = "not_found"
	ErrCodeValidationFailed ErrorCode = "validation_failed"
	ErrCodeUnauthorized     ErrorCode = "unauthorized"
	ErrCodeForbidden        ErrorCode = "forbidden"
	ErrCodeRateLimited      ErrorCode = "rate_limited"

	// Server errors (5xx)
	ErrCodeInternalError ErrorCode = "internal_error"
	ErrCodeServiceError  ErrorCode = "service_error"
)

// APIError represents a structured API error that carries error code and details.
// Ledger rejections use the ledger error name (e.g. NotOwner) as the code.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	jsonErr, _ := json.Marshal(e)
	return string(jsonErr)
}

// Error constructors for common error types
func NewBadRequestError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewNotFoundError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeNotFound,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewValidationError(details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeValidationFailed,
		Message: "Validation failed",
		Details: strings.Join(details, ", "),
	}
}

func NewUnauthorizedError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewRateLimitedError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeRateLimited,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewInternalError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeInternalError,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewServiceError(message string, details ...string) *APIError {
	return &APIError{
		Code:    ErrCodeServiceError,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

var kindMessages = map[domain.ErrorKind]string{
	domain.KindAuthorization: "Caller is not allowed to perform this operation",
	domain.KindValidation:    "Invalid argument",
	domain.KindConflict:      "Operation conflicts with the current state",
	domain.KindCapacity:      "Operation exceeds what the ledger can serve",
	domain.KindPayment:       "Payment could not be collected",
	domain.KindToken:         "Token operation rejected",
	domain.KindInternal:      "Internal ledger error",
}

// NewLedgerError converts a ledger rejection into its HTTP status and body
func NewLedgerError(le *domain.LedgerError) (int, *APIError) {
	return ledgerStatus(le), &APIError{
		Code:    ErrorCode(le.Code),
		Message: kindMessages[le.Kind],
		Details: string(le.Kind),
	}
}

func ledgerStatus(le *domain.LedgerError) int {
	switch le {
	case domain.ErrOwnerQueryForNonexistentToken,
		domain.ErrURIQueryForNonexistentToken,
		domain.ErrApprovalQueryForNonexistentToken:
		return http.StatusNotFound
	case domain.ErrBalanceQueryForZeroAddress,
		domain.ErrTransferToZeroAddress:
		return http.StatusUnprocessableEntity
	case domain.ErrTransferFromIncorrectOwner:
		return http.StatusConflict
	}

	switch le.Kind {
	case domain.KindAuthorization, domain.KindToken:
		return http.StatusForbidden
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindConflict, domain.KindCapacity:
		return http.StatusConflict
	case domain.KindPayment:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
