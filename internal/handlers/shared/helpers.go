package handlers

import (
	"errors"
	"net/http"

	"ridemarket/internal/apperrors"
	"ridemarket/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// currentUserID reads the authenticated user id the auth middleware put
// on the context.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}

	userObjectID, ok := userID.(primitive.ObjectID)
	if !ok {
		utils.BadRequestResponse(c, "Invalid user ID")
		return primitive.NilObjectID, false
	}

	return userObjectID, true
}

func bookingIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	bookingID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid booking ID")
		return primitive.NilObjectID, false
	}
	return bookingID, true
}

func primitiveIDParam(c *gin.Context, name string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(c.Param(name))
}

// handleServiceError translates the service error taxonomy into HTTP
// responses. Conflicts are marked retryable for the client.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		utils.NotFoundResponse(c, "Booking")
	case errors.Is(err, apperrors.ErrUnauthorized):
		utils.ForbiddenResponse(c)
	case errors.Is(err, apperrors.ErrInvalidTransition):
		utils.ErrorResponse(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case apperrors.Retryable(err):
		utils.ErrorResponseWithDetails(c, http.StatusConflict, "CONFLICT", err.Error(), map[string]string{
			"retryable": "true",
		})
	case errors.Is(err, apperrors.ErrAlreadyReported):
		utils.ErrorResponse(c, http.StatusConflict, "ALREADY_REPORTED", err.Error())
	case errors.Is(err, apperrors.ErrReportWindowClosed):
		utils.ErrorResponse(c, http.StatusUnprocessableEntity, "REPORT_WINDOW_CLOSED", err.Error())
	case errors.Is(err, apperrors.ErrInvalidInput):
		utils.BadRequestResponse(c, err.Error())
	default:
		utils.InternalServerErrorResponse(c)
	}
}
