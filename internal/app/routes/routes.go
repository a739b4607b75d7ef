package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/semscan/semscan-api/internal/app/controllers"
	"github.com/semscan/semscan-api/internal/app/models/dto"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	slotController *controllers.SlotController,
	approvalController *controllers.ApprovalController,
	waitingListController *controllers.WaitingListController,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// Slot routes
	slots := v1.Group("/slots")
	{
		slots.GET("", slotController.ListSlots)
		slots.GET("/:slotId", slotController.GetSlot)
		slots.POST("/:slotId/registrations", approvalController.Register)

		// Per-registration approval links (older email format)
		slots.GET("/:slotId/registrations/:presenterUsername/approve", approvalController.Approve)
		slots.GET("/:slotId/registrations/:presenterUsername/decline", approvalController.Decline)
	}

	// Token-addressed approval links
	v1.GET("/approve/:token", approvalController.ApproveByToken)
	v1.GET("/decline/:token", approvalController.DeclineByToken)

	// Waiting list routes (unversioned path, matching the emailed links)
	waitingList := router.Group("/api/waiting-list")
	{
		waitingList.GET("", waitingListController.List)
		waitingList.POST("", waitingListController.Add)
		waitingList.DELETE("", waitingListController.Remove)
		waitingList.GET("/confirm", waitingListController.Confirm)
		waitingList.GET("/decline", waitingListController.DeclineOffer)
	}

	// Health check endpoint (public)
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(200, dto.APIResponse{
			Data: gin.H{"status": "ok"},
		})
	})

	// Swagger is registered in bootstrap alongside the engine setup
}
