package models

// Error codes used in API error responses
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeValidationError  = "VALIDATION_ERROR"
	ErrCodeAccessDenied     = "ACCESS_DENIED"
	ErrCodeInvalidToken     = "INVALID_TOKEN"
	ErrCodeAlreadyProcessed = "ALREADY_PROCESSED"
	ErrCodeTokenExpired     = "TOKEN_EXPIRED"
	ErrCodeInvalidReason    = "INVALID_REASON"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
