package routes

import (
	"ridemarket/internal/handlers/shared"
	"ridemarket/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes sets up routes for the booking lifecycle, the
// message threads and the dispute flow
func SetupBookingRoutes(
	r *gin.RouterGroup,
	jwtSecret string,
	bookingHandler *handlers.BookingHandler,
	messageHandler *handlers.MessageHandler,
	reportHandler *handlers.ReportHandler,
	paymentHandler *handlers.PaymentHandler,
) {
	// Public webhook routes (signature-validated, no auth header)
	webhooks := r.Group("/webhooks/stripe")
	{
		webhooks.POST("/unlock", paymentHandler.HandleStripeWebhook)
	}

	bookings := r.Group("/bookings")
	bookings.Use(middleware.AuthRequired(jwtSecret))
	{
		bookings.POST("/", bookingHandler.CreateBooking)
		bookings.GET("/", bookingHandler.GetMyBookings)
		bookings.GET("/received", bookingHandler.GetReceivedBookings)
		bookings.GET("/rides/:ride_id", bookingHandler.GetRideBookings)
		bookings.GET("/:id", bookingHandler.GetBooking)

		// Lifecycle transitions
		bookings.PUT("/:id/approve", bookingHandler.ApproveBooking)
		bookings.PUT("/:id/reject", bookingHandler.RejectBooking)
		bookings.PUT("/:id/cancel", bookingHandler.CancelBooking)
		bookings.DELETE("/:id", bookingHandler.DeleteContact)

		// Message thread
		bookings.POST("/:id/messages", messageHandler.SendMessage)
		bookings.PUT("/:id/messages/read", messageHandler.MarkRead)
		bookings.PUT("/:id/messages/hide", messageHandler.HideMessages)

		// Contact unlock payment
		bookings.POST("/:id/unlock/checkout", paymentHandler.CreateUnlockCheckout)

		// Dispute flow
		bookings.GET("/:id/report", reportHandler.GetReportStatus)
		bookings.POST("/:id/report", reportHandler.FileReport)
	}
}
