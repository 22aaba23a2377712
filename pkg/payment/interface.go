package payment

import "context"

// UnlockProvider is the boundary to the payment processor. The engine
// never writes paid_at/contact_unlocked_at itself; the webhook handler
// that consumes UnlockEvent does.
type UnlockProvider interface {
	CreateUnlockCheckout(ctx context.Context, request *UnlockCheckoutRequest) (*UnlockCheckoutResponse, error)
	ValidateWebhook(payload []byte, signature string) (*UnlockEvent, error)
}

type UnlockCheckoutRequest struct {
	BookingID  string `json:"booking_id"`
	UserID     string `json:"user_id"`
	Amount     int64  `json:"amount"` // minor units
	Currency   string `json:"currency"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

type UnlockCheckoutResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// UnlockEvent is the opaque payment event that unlocks contact details
// on a booking.
type UnlockEvent struct {
	BookingID string `json:"booking_id"`
	UserID    string `json:"user_id"`
	PaidAt    int64  `json:"paid_at"` // unix seconds
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}
