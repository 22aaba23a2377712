package handlers

import (
	"ridemarket/internal/models"
	"ridemarket/internal/services"
	"ridemarket/internal/utils"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookingService services.BookingService
}

func NewBookingHandler(bookingService services.BookingService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
	}
}

// CreateBooking creates a seat booking or contact unlock request
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var request models.BookingRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), userID, &request)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, "Booking created successfully", booking)
}

// GetBooking retrieves a single booking the caller is a party to
func (h *BookingHandler) GetBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.GetBooking(c.Request.Context(), bookingID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking retrieved successfully", booking)
}

// GetMyBookings lists bookings the caller requested
func (h *BookingHandler) GetMyBookings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	bookings, total, err := h.bookingService.GetBookingsByUser(c.Request.Context(), userID, params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	}

	utils.SuccessResponseWithMeta(c, "Bookings retrieved successfully", map[string]interface{}{
		"bookings": bookings,
	}, meta)
}

// GetReceivedBookings lists bookings where the caller is the deciding party
func (h *BookingHandler) GetReceivedBookings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	bookings, total, err := h.bookingService.GetBookingsByCounterparty(c.Request.Context(), userID, params)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	}

	utils.SuccessResponseWithMeta(c, "Bookings retrieved successfully", map[string]interface{}{
		"bookings": bookings,
	}, meta)
}

// GetRideBookings lists the caller's bookings on one ride
func (h *BookingHandler) GetRideBookings(c *gin.Context) {
	rideID, err := primitiveIDParam(c, "ride_id")
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ride ID")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	bookings, svcErr := h.bookingService.GetBookingsByRide(c.Request.Context(), rideID, userID)
	if svcErr != nil {
		handleServiceError(c, svcErr)
		return
	}

	utils.SuccessResponse(c, "Ride bookings retrieved successfully", bookings)
}

// ApproveBooking approves a pending request, optionally sharing contact
// details with the requester
func (h *BookingHandler) ApproveBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var request models.ApproveRequest
	if err := c.ShouldBindJSON(&request); err != nil && err.Error() != "EOF" {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	booking, err := h.bookingService.Approve(c.Request.Context(), bookingID, userID, &request)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking approved successfully", booking)
}

// RejectBooking rejects a pending request
func (h *BookingHandler) RejectBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	booking, err := h.bookingService.Reject(c.Request.Context(), bookingID, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking rejected successfully", booking)
}

// CancelBooking cancels a booking with a party-attributed reason
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var request models.CancelRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	booking, err := h.bookingService.Cancel(c.Request.Context(), bookingID, userID, request.Reason)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking cancelled successfully", booking)
}

// DeleteContact removes the booking record and its cross-references
func (h *BookingHandler) DeleteContact(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.bookingService.DeleteContact(c.Request.Context(), bookingID, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.NoContentResponse(c)
}
