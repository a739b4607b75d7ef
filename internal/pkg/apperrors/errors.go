package apperrors

import "errors"

// Common errors
var (
	// Resource errors
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")

	// Validation errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")
)

// Slot and presenter errors
var (
	ErrSlotNotFound      = errors.New("seminar slot not found")
	ErrPresenterNotFound = errors.New("presenter not found")
)

// Registration errors
var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrAlreadyRegistered    = errors.New("presenter already has an active registration for this slot")
	ErrCapacityExceeded     = errors.New("slot capacity exceeded")
)

// Token errors shared by approval and promotion flows
var (
	ErrTokenInvalid    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrAlreadyResolved = errors.New("token already resolved")
)

// Waiting list errors
var (
	ErrAlreadyQueued            = errors.New("presenter is already on a waiting list")
	ErrWaitingListFull          = errors.New("waiting list is full")
	ErrWaitingListEntryNotFound = errors.New("waiting list entry not found")
	ErrSlotNoLongerAvailable    = errors.New("slot no longer has capacity for this promotion")
)

// CustomError wraps a sentinel with a caller-facing message and optional
// context details. errors.Is against the wrapped sentinel keeps working.
type CustomError struct {
	Err     error
	Message string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// NewConflictError creates a conflict error with a message
func NewConflictError(message string) error {
	return &CustomError{
		Err:     ErrConflict,
		Message: message,
	}
}

// NewBadRequestError creates a bad request error with a message
func NewBadRequestError(message string) error {
	return &CustomError{
		Err:     ErrBadRequest,
		Message: message,
	}
}
