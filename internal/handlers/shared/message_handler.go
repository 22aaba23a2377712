package handlers

import (
	"net/http"
	"time"

	"ridemarket/internal/models"
	"ridemarket/internal/services"
	"ridemarket/internal/utils"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messageService services.MessageService
}

func NewMessageHandler(messageService services.MessageService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
	}
}

// SendMessage appends a message to a booking thread. A guard violation
// is not an error: the client gets the category, the user-facing reason
// and how long to display the warning.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var request models.SendMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	message, violation, err := h.messageService.SendMessage(c.Request.Context(), bookingID, userID, request.Text)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if violation != nil {
		c.JSON(http.StatusUnprocessableEntity, utils.APIResponse{
			Status:  utils.StatusFailed,
			Message: violation.Reason,
			Data: map[string]interface{}{
				"blocked":          true,
				"category":         violation.Category,
				"warning_duration": utils.GuardWarningDuration.Seconds(),
			},
			Timestamp: time.Now(),
		})
		return
	}

	utils.CreatedResponse(c, "Message sent successfully", message)
}

// MarkRead marks every incoming message in the thread as read
func (h *MessageHandler) MarkRead(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.messageService.MarkRead(c.Request.Context(), bookingID, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Messages marked as read", nil)
}

// HideMessages hides the given messages for the caller only
func (h *MessageHandler) HideMessages(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var request models.HideMessagesRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if err := h.messageService.HideMessages(c.Request.Context(), bookingID, userID, request.Indices); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Messages hidden successfully", nil)
}
