package handlers

import (
	"ridemarket/internal/models"
	"ridemarket/internal/services"
	"ridemarket/internal/utils"

	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	activityService services.ActivityService
}

func NewActivityHandler(activityService services.ActivityService) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
	}
}

// GetCounts returns the caller's per-category new-activity counts
func (h *ActivityHandler) GetCounts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	counts, err := h.activityService.GetCounts(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Activity counts retrieved successfully", counts)
}

// MarkSeen advances the caller's checkpoint for one category
func (h *ActivityHandler) MarkSeen(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	category := models.ActivityCategory(c.Param("category"))

	if err := h.activityService.MarkSeen(c.Request.Context(), userID, category); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Activity marked as seen", nil)
}
