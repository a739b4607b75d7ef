package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/semscan/semscan-api/internal/app/models/dto"
	"github.com/semscan/semscan-api/internal/pkg/apperrors"
)

// HandleAPIError maps service errors to JSON error responses. A CustomError
// wrapping a sentinel keeps the sentinel's status and code while carrying its
// own message and context details into the response.
func HandleAPIError(c *gin.Context, err error) {
	status, detail := classify(err)

	var custom *apperrors.CustomError
	if errors.As(err, &custom) {
		if custom.Message != "" {
			detail.Message = custom.Message
		}
		if custom.Details != nil {
			detail.WithDetails(custom.Details)
		}
	}

	c.JSON(status, dto.APIResponse{Error: detail})
}

func classify(err error) (int, *dto.ErrorDetail) {
	switch {
	case errors.Is(err, apperrors.ErrSlotNotFound):
		return 404, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Seminar slot not found")
	case errors.Is(err, apperrors.ErrPresenterNotFound):
		return 404, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Presenter not found")
	case errors.Is(err, apperrors.ErrRegistrationNotFound):
		return 404, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Registration not found")
	case errors.Is(err, apperrors.ErrWaitingListEntryNotFound):
		return 404, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Waiting list entry not found")
	case errors.Is(err, apperrors.ErrResourceNotFound):
		return 404, dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "Resource not found")
	case errors.Is(err, apperrors.ErrTokenInvalid):
		return 400, dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid token")
	case errors.Is(err, apperrors.ErrTokenExpired):
		return 400, dto.NewErrorDetail(dto.ErrorCodeExpiredToken, "Token expired")
	case errors.Is(err, apperrors.ErrAlreadyResolved):
		return 400, dto.NewErrorDetail(dto.ErrorCodeAlreadyResolved, "Token already resolved")
	case errors.Is(err, apperrors.ErrAlreadyRegistered):
		return 409, dto.NewErrorDetail(dto.ErrorCodeAlreadyRegistered, "Presenter already registered for this slot")
	case errors.Is(err, apperrors.ErrCapacityExceeded):
		return 409, dto.NewErrorDetail(dto.ErrorCodeCapacityExceeded, "Slot capacity exceeded")
	case errors.Is(err, apperrors.ErrAlreadyQueued):
		return 409, dto.NewErrorDetail(dto.ErrorCodeAlreadyQueued, "Presenter is already on a waiting list")
	case errors.Is(err, apperrors.ErrWaitingListFull):
		return 409, dto.NewErrorDetail(dto.ErrorCodeWaitingListFull, "Waiting list is full")
	case errors.Is(err, apperrors.ErrSlotNoLongerAvailable):
		return 409, dto.NewErrorDetail(dto.ErrorCodeSlotNoLongerAvailable, "Slot no longer has capacity")
	case errors.Is(err, apperrors.ErrConflict):
		return 409, dto.NewErrorDetail(dto.ErrorCodeConflict, "Resource already exists")
	case errors.Is(err, apperrors.ErrValidationFailed), errors.Is(err, apperrors.ErrBadRequest):
		return 400, dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Validation failed")
	default:
		return 500, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
	}
}
