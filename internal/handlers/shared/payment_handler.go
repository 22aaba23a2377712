package handlers

import (
	"io"
	"net/http"
	"time"

	"ridemarket/internal/config"
	"ridemarket/internal/services"
	"ridemarket/internal/utils"
	"ridemarket/pkg/logger"
	"ridemarket/pkg/payment"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentHandler struct {
	provider       payment.UnlockProvider
	bookingService services.BookingService
	config         *config.PaymentConfig
	logger         *logger.Logger
}

func NewPaymentHandler(provider payment.UnlockProvider, bookingService services.BookingService, cfg *config.PaymentConfig, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		provider:       provider,
		bookingService: bookingService,
		config:         cfg,
		logger:         log,
	}
}

// CreateUnlockCheckout starts a checkout session for unlocking the
// contact details on a booking
func (h *PaymentHandler) CreateUnlockCheckout(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	// Authorization and existence ride on the booking read.
	if _, err := h.bookingService.GetBooking(c.Request.Context(), bookingID, userID); err != nil {
		handleServiceError(c, err)
		return
	}

	checkout, err := h.provider.CreateUnlockCheckout(c.Request.Context(), &payment.UnlockCheckoutRequest{
		BookingID:  bookingID.Hex(),
		UserID:     userID.Hex(),
		Amount:     h.config.UnlockPrice,
		Currency:   h.config.Currency,
		SuccessURL: h.config.Stripe.SuccessURL,
		CancelURL:  h.config.Stripe.CancelURL,
	})
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, "CHECKOUT_FAILED", "Failed to create checkout session")
		return
	}

	utils.SuccessResponse(c, "Checkout session created successfully", checkout)
}

// HandleStripeWebhook consumes payment events. Only a validated
// checkout completion touches the unlock timestamps.
func (h *PaymentHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid webhook payload")
		return
	}

	event, err := h.provider.ValidateWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.WithError(err).Warn("Stripe webhook signature validation failed")
		utils.BadRequestResponse(c, "Invalid webhook signature")
		return
	}
	if event == nil {
		// Event type we do not care about.
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	bookingID, err := primitive.ObjectIDFromHex(event.BookingID)
	if err != nil {
		h.logger.WithField("booking_id", event.BookingID).Error("Stripe webhook carried a malformed booking id")
		utils.BadRequestResponse(c, "Invalid booking ID in webhook")
		return
	}

	if err := h.bookingService.ApplyUnlock(c.Request.Context(), bookingID, time.Unix(event.PaidAt, 0)); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
