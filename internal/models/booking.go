package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingType string
type BookingStatus string
type CancelReason string

const (
	BookingTypeSeat          BookingType = "seat_booking"
	BookingTypeContactUnlock BookingType = "contact_unlock"

	BookingStatusRequested BookingStatus = "requested"
	BookingStatusApproved  BookingStatus = "approved"
	BookingStatusRejected  BookingStatus = "rejected"

	// Used only for the contact_unlock variant, where the passenger is the
	// party deciding on the driver's request.
	BookingStatusApprovedByPassenger BookingStatus = "approved_by_passenger"
	BookingStatusRejectedByPassenger BookingStatus = "rejected_by_passenger"

	cancelledPrefix = "cancelled"

	CancelReasonByDriver    CancelReason = "by_driver"
	CancelReasonByPassenger CancelReason = "by_passenger"
	CancelReasonRideRemoved CancelReason = "ride_removed"
)

// CancelledStatus encodes the cancellation reason into the status value,
// e.g. "cancelled_by_driver".
func CancelledStatus(reason CancelReason) BookingStatus {
	return BookingStatus(cancelledPrefix + "_" + string(reason))
}

func (s BookingStatus) Cancelled() bool {
	return strings.HasPrefix(string(s), cancelledPrefix)
}

// Terminal reports whether no further status transition is permitted.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingStatusApproved, BookingStatusRejected,
		BookingStatusApprovedByPassenger, BookingStatusRejectedByPassenger:
		return true
	}
	return s.Cancelled()
}

// Message is embedded in a booking, never a top-level document. The list is
// append-only; a viewer hides a message for themselves via HiddenFor and
// nothing is ever removed on another viewer's behalf.
type Message struct {
	From   primitive.ObjectID `json:"from" bson:"from"`
	Text   string             `json:"text" bson:"text"`
	SentAt time.Time          `json:"sent_at" bson:"sent_at"`
	// Read is flipped false->true by the recipient only.
	Read      bool                 `json:"read" bson:"read"`
	HiddenFor []primitive.ObjectID `json:"hidden_for,omitempty" bson:"hidden_for,omitempty"`
}

func (m *Message) HiddenForUser(userID primitive.ObjectID) bool {
	for _, id := range m.HiddenFor {
		if id == userID {
			return true
		}
	}
	return false
}

type Booking struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Type           BookingType        `json:"type" bson:"type" validate:"required"`
	RideID         primitive.ObjectID `json:"ride_id" bson:"ride_id" validate:"required"`
	UserID         primitive.ObjectID `json:"user_id" bson:"user_id" validate:"required"`
	CounterpartyID primitive.ObjectID `json:"counterparty_id" bson:"counterparty_id" validate:"required"`

	// Ride snapshot captured at creation time and never re-synced.
	RideOrigin      string `json:"ride_origin" bson:"ride_origin"`
	RideDestination string `json:"ride_destination" bson:"ride_destination"`
	RideDate        string `json:"ride_date" bson:"ride_date"`
	RideTime        string `json:"ride_time" bson:"ride_time"`

	Status   BookingStatus `json:"status" bson:"status" default:"requested"`
	Seats    int           `json:"seats" bson:"seats" default:"1"`
	Messages []Message     `json:"messages" bson:"messages"`

	// Populated only on the transition into approved, immutable afterwards.
	DriverPhoneShared string `json:"driver_phone_shared,omitempty" bson:"driver_phone_shared,omitempty"`
	DriverEmailShared string `json:"driver_email_shared,omitempty" bson:"driver_email_shared,omitempty"`

	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty" bson:"approved_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty" bson:"rejected_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`

	// Written by the payment collaborator, never by this engine.
	ContactUnlockedAt *time.Time `json:"contact_unlocked_at,omitempty" bson:"contact_unlocked_at,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty" bson:"paid_at,omitempty"`

	Reported bool `json:"reported" bson:"reported"`
}

// HasParty reports whether userID is one of the two booking parties.
func (b *Booking) HasParty(userID primitive.ObjectID) bool {
	return b.UserID == userID || b.CounterpartyID == userID
}

// OtherParty returns the counterpart of userID on this booking.
func (b *Booking) OtherParty(userID primitive.ObjectID) primitive.ObjectID {
	if b.UserID == userID {
		return b.CounterpartyID
	}
	return b.UserID
}

// Unlocked reports whether the paid contact-unlock event has happened.
func (b *Booking) Unlocked() bool {
	return b.ContactUnlockedAt != nil || b.PaidAt != nil
}

// UnlockedAt returns the unlock timestamp, preferring the explicit unlock
// time over the payment time.
func (b *Booking) UnlockedAt() *time.Time {
	if b.ContactUnlockedAt != nil {
		return b.ContactUnlockedAt
	}
	return b.PaidAt
}

// VisibleMessages filters the message list down to what viewerID may see.
func (b *Booking) VisibleMessages(viewerID primitive.ObjectID) []Message {
	visible := make([]Message, 0, len(b.Messages))
	for _, m := range b.Messages {
		if !m.HiddenForUser(viewerID) {
			visible = append(visible, m)
		}
	}
	return visible
}

type BookingRequest struct {
	Type            BookingType        `json:"type" binding:"required"`
	RideID          primitive.ObjectID `json:"ride_id" binding:"required"`
	CounterpartyID  primitive.ObjectID `json:"counterparty_id" binding:"required"`
	RideOrigin      string             `json:"ride_origin"`
	RideDestination string             `json:"ride_destination"`
	RideDate        string             `json:"ride_date"`
	RideTime        string             `json:"ride_time"`
	Seats           int                `json:"seats"`
}

type ApproveRequest struct {
	SharedPhone string `json:"shared_phone"`
	SharedEmail string `json:"shared_email"`
}

type CancelRequest struct {
	Reason CancelReason `json:"reason" binding:"required"`
}

type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

type HideMessagesRequest struct {
	Indices []int `json:"indices" binding:"required"`
}
