package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/semscan/semscan-api/internal/app/models/dto"
	"github.com/semscan/semscan-api/internal/app/services"
	"github.com/semscan/semscan-api/internal/middleware"
	"github.com/semscan/semscan-api/internal/pkg/apperrors"
)

// offerExpiredHint accompanies the expired-link page of promotion offers.
const offerExpiredHint = "The seat passed to the next presenter in line. Rejoin the waiting list to be considered at the next opening."

// WaitingListController handles the waiting list JSON API and the promotion
// confirm/decline links.
type WaitingListController struct {
	waitingListService *services.WaitingListService
	promotionService   *services.PromotionService
}

// NewWaitingListController creates a new WaitingListController
func NewWaitingListController(waitingListService *services.WaitingListService, promotionService *services.PromotionService) *WaitingListController {
	return &WaitingListController{
		waitingListService: waitingListService,
		promotionService:   promotionService,
	}
}

// List godoc
// @Summary Get a slot's waiting list
// @Description Returns the queue of a slot ordered by position
// @Tags waiting-list
// @Produce json
// @Param slotId query int true "Slot ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.WaitingListEntryResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /waiting-list [get]
func (c *WaitingListController) List(ctx *gin.Context) {
	slotID, err := strconv.ParseInt(ctx.Query("slotId"), 10, 64)
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("slotId must be an integer"))
		return
	}

	// Lapsed offers are expired lazily before the queue is read.
	if _, err := c.promotionService.ExpireDuePromotions(ctx); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	entries, err := c.waitingListService.Get(ctx, slotID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	now := time.Now()
	responses := make([]dto.WaitingListEntryResponse, 0, len(entries))
	for i := range entries {
		responses = append(responses, dto.NewWaitingListEntryResponse(&entries[i], now))
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(responses))
}

// Add godoc
// @Summary Join a slot's waiting list
// @Description Appends the presenter at the tail of the slot's queue
// @Tags waiting-list
// @Accept json
// @Produce json
// @Param request body dto.AddWaitingListRequest true "Waiting list entry details"
// @Success 201 {object} dto.APIResponse{data=dto.WaitingListEntryResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 409 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /waiting-list [post]
func (c *WaitingListController) Add(ctx *gin.Context) {
	var req dto.AddWaitingListRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid waiting list request"),
		})
		return
	}

	entry, err := c.waitingListService.Add(ctx, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(dto.NewWaitingListEntryResponse(entry, time.Now())))
}

// Remove godoc
// @Summary Leave a slot's waiting list
// @Description Removes the presenter's entry; positions behind it close up
// @Tags waiting-list
// @Accept json
// @Produce json
// @Param request body dto.RemoveWaitingListRequest true "Entry to remove"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /waiting-list [delete]
func (c *WaitingListController) Remove(ctx *gin.Context) {
	var req dto.RemoveWaitingListRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.APIResponse{
			Error: dto.NewErrorDetail(dto.ErrorCodeInvalidRequest, "Invalid waiting list request"),
		})
		return
	}

	if err := c.waitingListService.Remove(ctx, req.SlotID, req.PresenterUsername); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(dto.SuccessResponse{Message: "Removed from waiting list"}))
}

// Confirm godoc
// @Summary Confirm a promotion offer
// @Description Promotion offer link target; renders an HTML result page
// @Tags waiting-list
// @Produce html
// @Param token query string true "Promotion token"
// @Success 200 {string} string "HTML page"
// @Failure 400 {string} string "HTML page"
// @Router /waiting-list/confirm [get]
func (c *WaitingListController) Confirm(ctx *gin.Context) {
	_, err := c.promotionService.Confirm(ctx, ctx.Query("token"))
	if err != nil {
		renderTokenError(ctx, err, offerExpiredHint)
		return
	}

	renderSuccessPage(ctx, "Seat Confirmed",
		"You took the seat. Your supervisor has been asked to approve the registration; you will be notified of the result.")
}

// DeclineOffer godoc
// @Summary Decline a promotion offer
// @Description Promotion decline link target; renders an HTML result page
// @Tags waiting-list
// @Produce html
// @Param token query string true "Promotion token"
// @Success 200 {string} string "HTML page"
// @Failure 400 {string} string "HTML page"
// @Router /waiting-list/decline [get]
func (c *WaitingListController) DeclineOffer(ctx *gin.Context) {
	_, err := c.promotionService.Decline(ctx, ctx.Query("token"))
	if err != nil {
		renderTokenError(ctx, err, offerExpiredHint)
		return
	}

	renderSuccessPage(ctx, "Offer Declined",
		"You declined the seat. You have been removed from the waiting list and the seat was offered to the next presenter.")
}
