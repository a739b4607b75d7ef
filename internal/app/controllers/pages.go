package controllers

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/semscan/semscan-api/internal/pkg/apperrors"
)

// Token links arrive from email clients, so their endpoints answer with small
// self-contained HTML pages instead of JSON.

const pageTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 40px auto;">
	<h2 style="color: %s;">%s</h2>
	<p>%s</p>
	<p style="color: #777;">You can close this window.</p>
</body>
</html>`

func renderSuccessPage(ctx *gin.Context, title, message string) {
	page := fmt.Sprintf(pageTemplate, title, "#2e7d32", title, message)
	ctx.Data(200, "text/html; charset=utf-8", []byte(page))
}

func renderErrorPage(ctx *gin.Context, status int, title, message string) {
	page := fmt.Sprintf(pageTemplate, title, "#c62828", title, message)
	ctx.Data(status, "text/html; charset=utf-8", []byte(page))
}

// renderTokenError maps a token resolution error to its HTML page. The
// expiredHint tells the reader how to obtain a fresh link for this flow.
func renderTokenError(ctx *gin.Context, err error, expiredHint string) {
	switch {
	case errors.Is(err, apperrors.ErrTokenInvalid):
		renderErrorPage(ctx, 400, "Invalid Link",
			"This link is not valid. It may have already been used, or it was copied incompletely.")
	case errors.Is(err, apperrors.ErrTokenExpired):
		renderErrorPage(ctx, 400, "Link Expired",
			"This link has expired and can no longer be used. "+expiredHint)
	case errors.Is(err, apperrors.ErrAlreadyResolved):
		renderErrorPage(ctx, 400, "Already Handled",
			"This request has already been handled. Nothing was changed.")
	case errors.Is(err, apperrors.ErrSlotNoLongerAvailable):
		renderErrorPage(ctx, 409, "Seat No Longer Available",
			"The slot filled up again before you confirmed. You keep your place at the head of the waiting list and will be notified at the next opening.")
	case errors.Is(err, apperrors.ErrRegistrationNotFound),
		errors.Is(err, apperrors.ErrSlotNotFound),
		errors.Is(err, apperrors.ErrWaitingListEntryNotFound):
		renderErrorPage(ctx, 404, "Not Found",
			"The registration this link points to no longer exists.")
	default:
		renderErrorPage(ctx, 500, "Something Went Wrong",
			"An unexpected error occurred. Please try again later.")
	}
}
