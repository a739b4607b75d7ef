package dto

// ErrorCode represents standardized error codes
type ErrorCode string

// Standard error codes for the application
const (
	// Token errors (approval and promotion links)
	ErrorCodeInvalidToken    ErrorCode = "TKN_001"
	ErrorCodeExpiredToken    ErrorCode = "TKN_002"
	ErrorCodeAlreadyResolved ErrorCode = "TKN_003"

	// Resource errors
	ErrorCodeResourceNotFound ErrorCode = "RES_001"
	ErrorCodeConflict         ErrorCode = "RES_002"

	// Registration errors
	ErrorCodeAlreadyRegistered ErrorCode = "REG_001"
	ErrorCodeCapacityExceeded  ErrorCode = "REG_002"

	// Waiting list errors
	ErrorCodeAlreadyQueued         ErrorCode = "WL_001"
	ErrorCodeWaitingListFull       ErrorCode = "WL_002"
	ErrorCodeSlotNoLongerAvailable ErrorCode = "WL_003"

	// Validation errors
	ErrorCodeValidationFailed ErrorCode = "VAL_001"
	ErrorCodeInvalidRequest   ErrorCode = "VAL_002"

	// Server errors
	ErrorCodeInternalServer ErrorCode = "SRV_001"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

// Severity levels
const (
	ErrorSeverityInfo     ErrorSeverity = "INFO"
	ErrorSeverityWarning  ErrorSeverity = "WARNING"
	ErrorSeverityError    ErrorSeverity = "ERROR"
	ErrorSeverityCritical ErrorSeverity = "CRITICAL"
)

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Code     ErrorCode     `json:"code" example:"TKN_001"`
	Message  string        `json:"message" example:"The approval link is not valid"`
	Severity ErrorSeverity `json:"severity" example:"ERROR"`
	Details  interface{}   `json:"details,omitempty"`
}

// NewErrorDetail creates a new error detail
func NewErrorDetail(code ErrorCode, message string) *ErrorDetail {
	return &ErrorDetail{
		Code:     code,
		Message:  message,
		Severity: ErrorSeverityError,
	}
}

// WithDetails adds additional details to the error
func (e *ErrorDetail) WithDetails(details interface{}) *ErrorDetail {
	e.Details = details
	return e
}
