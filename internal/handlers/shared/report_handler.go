package handlers

import (
	"ridemarket/internal/models"
	"ridemarket/internal/services"
	"ridemarket/internal/utils"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService services.ReportService
}

func NewReportHandler(reportService services.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

// GetReportStatus tells the client whether the dispute window is still
// open and when it closes. The countdown itself is recomputed client
// side against the deadline.
func (h *ReportHandler) GetReportStatus(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	canReport, err := h.reportService.CanReport(c.Request.Context(), bookingID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	deadline, err := h.reportService.ReportDeadline(c.Request.Context(), bookingID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Report status retrieved successfully", map[string]interface{}{
		"can_report": canReport,
		"deadline":   deadline,
	})
}

// FileReport files a dispute inside the 48 hour window
func (h *ReportHandler) FileReport(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var request models.ReportRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	reference, err := h.reportService.FileReport(c.Request.Context(), bookingID, userID, &request)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Report filed successfully", map[string]interface{}{
		"reference": reference,
	})
}
