package middleware

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semscan/semscan-api/internal/app/models/dto"
	"github.com/semscan/semscan-api/internal/pkg/apperrors"
)

func TestHandleAPIError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   dto.ErrorCode
	}{
		{"slot not found", apperrors.ErrSlotNotFound, 404, dto.ErrorCodeResourceNotFound},
		{"presenter not found", apperrors.ErrPresenterNotFound, 404, dto.ErrorCodeResourceNotFound},
		{"invalid token", apperrors.ErrTokenInvalid, 400, dto.ErrorCodeInvalidToken},
		{"expired token", apperrors.ErrTokenExpired, 400, dto.ErrorCodeExpiredToken},
		{"already resolved", apperrors.ErrAlreadyResolved, 400, dto.ErrorCodeAlreadyResolved},
		{"already registered", apperrors.ErrAlreadyRegistered, 409, dto.ErrorCodeAlreadyRegistered},
		{"capacity exceeded", apperrors.ErrCapacityExceeded, 409, dto.ErrorCodeCapacityExceeded},
		{"already queued", apperrors.ErrAlreadyQueued, 409, dto.ErrorCodeAlreadyQueued},
		{"waiting list full", apperrors.ErrWaitingListFull, 409, dto.ErrorCodeWaitingListFull},
		{"slot no longer available", apperrors.ErrSlotNoLongerAvailable, 409, dto.ErrorCodeSlotNoLongerAvailable},
		{"bad request", apperrors.ErrBadRequest, 400, dto.ErrorCodeValidationFailed},
		{"unknown error", errors.New("boom"), 500, dto.ErrorCodeInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			HandleAPIError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)

			var resp dto.APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestHandleAPIError_WrappedErrorsMatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	wrapped := apperrors.NewCustomError(apperrors.ErrAlreadyRegistered, "registration already active")
	HandleAPIError(c, wrapped)

	assert.Equal(t, 409, w.Code)
}

func TestHandleAPIError_CustomErrorMessageSurfaces(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleAPIError(c, apperrors.NewBadRequestError("slotId must be an integer"))

	assert.Equal(t, 400, w.Code)
	var resp dto.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrorCodeValidationFailed, resp.Error.Code)
	assert.Equal(t, "slotId must be an integer", resp.Error.Message)
}

func TestHandleAPIError_CustomErrorDetailsSurface(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	err := apperrors.NewCustomError(apperrors.ErrCapacityExceeded, "slot 7 is full").
		WithDetails(map[string]interface{}{"slotId": 7})
	HandleAPIError(c, err)

	assert.Equal(t, 409, w.Code)
	var resp dto.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrorCodeCapacityExceeded, resp.Error.Code)
	assert.Equal(t, "slot 7 is full", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestHandleAPIError_ConflictMapsTo409(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleAPIError(c, apperrors.NewConflictError("presenter jdoe already exists"))

	assert.Equal(t, 409, w.Code)
	var resp dto.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrorCodeConflict, resp.Error.Code)
	assert.Equal(t, "presenter jdoe already exists", resp.Error.Message)
}
