package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/semscan/semscan-api/internal/app/models/dto"
	"github.com/semscan/semscan-api/internal/app/services"
	"github.com/semscan/semscan-api/internal/middleware"
	"github.com/semscan/semscan-api/internal/pkg/apperrors"
	"github.com/semscan/semscan-api/internal/pkg/logger"
)

// approvalExpiredHint accompanies the expired-link page of approval emails.
const approvalExpiredHint = "Ask the presenter to register again to receive a fresh approval link."

// ApprovalController handles registration creation and the supervisor
// approve/decline links.
type ApprovalController struct {
	approvalService  *services.ApprovalService
	promotionService *services.PromotionService
}

// NewApprovalController creates a new ApprovalController
func NewApprovalController(approvalService *services.ApprovalService, promotionService *services.PromotionService) *ApprovalController {
	return &ApprovalController{
		approvalService:  approvalService,
		promotionService: promotionService,
	}
}

// Register godoc
// @Summary Register for a seminar slot
// @Description Creates a PENDING registration and emails the supervisor an approval link
// @Tags registrations
// @Accept json
// @Produce json
// @Param slotId path int true "Slot ID"
// @Param request body dto.RegisterRequest true "Registration details"
// @Success 201 {object} dto.APIResponse{data=dto.RegistrationResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 409 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /slots/{slotId}/registrations [post]
func (c *ApprovalController) Register(ctx *gin.Context) {
	slotID, err := strconv.ParseInt(ctx.Param("slotId"), 10, 64)
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("slotId must be an integer"))
		return
	}

	var req dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid registration request"),
		})
		return
	}

	reg, err := c.approvalService.Register(ctx, slotID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(dto.NewRegistrationResponse(reg)))
}

// ApproveByToken godoc
// @Summary Approve a registration by token
// @Description Supervisor approval link target; renders an HTML result page
// @Tags approvals
// @Produce html
// @Param token path string true "Approval token"
// @Success 200 {string} string "HTML page"
// @Failure 400 {string} string "HTML page"
// @Router /approve/{token} [get]
func (c *ApprovalController) ApproveByToken(ctx *gin.Context) {
	outcome, err := c.approvalService.ApproveByToken(ctx, ctx.Param("token"))
	c.cascadeFreedHTML(ctx, outcome)
	if err != nil {
		renderTokenError(ctx, err, approvalExpiredHint)
		return
	}

	renderSuccessPage(ctx, "Registration Approved",
		"The seminar registration has been approved. The presenter has been notified.")
}

// DeclineByToken godoc
// @Summary Decline a registration by token
// @Description Supervisor decline link target; renders an HTML result page
// @Tags approvals
// @Produce html
// @Param token path string true "Approval token"
// @Param reason query string false "Decline reason"
// @Success 200 {string} string "HTML page"
// @Failure 400 {string} string "HTML page"
// @Router /decline/{token} [get]
func (c *ApprovalController) DeclineByToken(ctx *gin.Context) {
	outcome, err := c.approvalService.DeclineByToken(ctx, ctx.Param("token"), ctx.Query("reason"))
	c.cascadeFreedHTML(ctx, outcome)
	if err != nil {
		renderTokenError(ctx, err, approvalExpiredHint)
		return
	}

	renderSuccessPage(ctx, "Registration Declined",
		"The seminar registration has been declined. The presenter has been notified and the slot capacity was released.")
}

// Approve handles the per-registration link format of older approval emails.
// @Summary Approve a registration by slot and presenter
// @Tags approvals
// @Produce html
// @Param slotId path int true "Slot ID"
// @Param presenterUsername path string true "Presenter username"
// @Param token query string true "Approval token"
// @Success 200 {string} string "HTML page"
// @Failure 400 {string} string "HTML page"
// @Router /slots/{slotId}/registrations/{presenterUsername}/approve [get]
func (c *ApprovalController) Approve(ctx *gin.Context) {
	slotID, err := strconv.ParseInt(ctx.Param("slotId"), 10, 64)
	if err != nil {
		renderErrorPage(ctx, 400, "Invalid Link", "The slot reference in this link is not valid.")
		return
	}

	outcome, err := c.approvalService.Approve(ctx, slotID, ctx.Param("presenterUsername"), ctx.Query("token"))
	c.cascadeFreedHTML(ctx, outcome)
	if err != nil {
		renderTokenError(ctx, err, approvalExpiredHint)
		return
	}

	renderSuccessPage(ctx, "Registration Approved",
		"The seminar registration has been approved. The presenter has been notified.")
}

// Decline handles the per-registration decline link of older approval emails.
// @Summary Decline a registration by slot and presenter
// @Tags approvals
// @Produce html
// @Param slotId path int true "Slot ID"
// @Param presenterUsername path string true "Presenter username"
// @Param token query string true "Approval token"
// @Param reason query string false "Decline reason"
// @Success 200 {string} string "HTML page"
// @Failure 400 {string} string "HTML page"
// @Router /slots/{slotId}/registrations/{presenterUsername}/decline [get]
func (c *ApprovalController) Decline(ctx *gin.Context) {
	slotID, err := strconv.ParseInt(ctx.Param("slotId"), 10, 64)
	if err != nil {
		renderErrorPage(ctx, 400, "Invalid Link", "The slot reference in this link is not valid.")
		return
	}

	outcome, err := c.approvalService.Decline(ctx, slotID, ctx.Param("presenterUsername"), ctx.Query("token"), ctx.Query("reason"))
	c.cascadeFreedHTML(ctx, outcome)
	if err != nil {
		renderTokenError(ctx, err, approvalExpiredHint)
		return
	}

	renderSuccessPage(ctx, "Registration Declined",
		"The seminar registration has been declined. The presenter has been notified and the slot capacity was released.")
}

// cascadeFreedHTML runs the promotion cascade on freed slots without letting a
// cascade failure replace the page the supervisor should see.
func (c *ApprovalController) cascadeFreedHTML(ctx *gin.Context, outcome *services.ApprovalOutcome) {
	if outcome == nil {
		return
	}
	for _, slotID := range outcome.FreedSlots {
		// The supervisor's page reflects the resolution that already
		// committed; a failed follow-up offer only gets logged.
		if _, err := c.promotionService.Offer(ctx, slotID); err != nil {
			logger.Error().Err(err).Int64("slotID", slotID).Msg("Follow-up promotion offer failed")
		}
	}
}
