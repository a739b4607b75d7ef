package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/semscan/semscan-api/internal/app/models/dto"
	"github.com/semscan/semscan-api/internal/app/services"
	"github.com/semscan/semscan-api/internal/middleware"
	"github.com/semscan/semscan-api/internal/pkg/apperrors"
)

// SlotController handles seminar slot endpoints
type SlotController struct {
	slotService      *services.SlotService
	promotionService *services.PromotionService
}

// NewSlotController creates a new SlotController
func NewSlotController(slotService *services.SlotService, promotionService *services.PromotionService) *SlotController {
	return &SlotController{
		slotService:      slotService,
		promotionService: promotionService,
	}
}

// ListSlots godoc
// @Summary List seminar slots
// @Description Returns every seminar slot with derived status and waiting list count
// @Tags slots
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]dto.SlotResponse}
// @Failure 500 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /slots [get]
func (c *SlotController) ListSlots(ctx *gin.Context) {
	// Lapsed offers are expired lazily before any occupancy read.
	if _, err := c.promotionService.ExpireDuePromotions(ctx); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	slots, err := c.slotService.List(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(slots))
}

// GetSlot godoc
// @Summary Get a seminar slot
// @Description Returns one seminar slot with derived status and waiting list count
// @Tags slots
// @Produce json
// @Param slotId path int true "Slot ID"
// @Success 200 {object} dto.APIResponse{data=dto.SlotResponse}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 500 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /slots/{slotId} [get]
func (c *SlotController) GetSlot(ctx *gin.Context) {
	slotID, err := strconv.ParseInt(ctx.Param("slotId"), 10, 64)
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewBadRequestError("slotId must be an integer"))
		return
	}

	if _, err := c.promotionService.ExpireDuePromotions(ctx); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	slot, err := c.slotService.Get(ctx, slotID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(slot))
}
