package interfaces

import (
	"context"
	"errors"
	"time"

	"ridemarket/internal/models"
	"ridemarket/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNoChange may be returned from an UpdateBooking mutate function to
// signal that nothing needs writing. The transaction commits without a
// write and the current document is returned.
var ErrNoChange = errors.New("no change")

type BookingEventType string

const (
	BookingEventInsert BookingEventType = "insert"
	BookingEventUpdate BookingEventType = "update"
	BookingEventDelete BookingEventType = "delete"
)

// BookingEvent is one change-feed diff. Delete events carry only the ID.
type BookingEvent struct {
	Type      BookingEventType
	BookingID primitive.ObjectID
	Booking   *models.Booking
}

type BookingRepository interface {
	// CRUD operations
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id primitive.ObjectID) (*models.Booking, error)

	// UpdateBooking runs a transactional read-modify-write: the mutate
	// function receives the current document and edits it in place.
	// Conflicting concurrent writes are retried a bounded number of
	// times with backoff before apperrors.ErrConflict surfaces. Errors
	// returned by mutate abort the transaction without writing.
	UpdateBooking(ctx context.Context, id primitive.ObjectID, mutate func(*models.Booking) error) (*models.Booking, error)

	// DeleteBooking removes the record and its cross-references on the
	// ride and ad documents in one multi-document transaction.
	DeleteBooking(ctx context.Context, id primitive.ObjectID) error

	// Listing
	GetBookingsByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error)
	GetBookingsByCounterparty(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error)
	GetBookingsByRide(ctx context.Context, rideID primitive.ObjectID) ([]*models.Booking, error)

	// GetBookingsForParty returns every booking the user is a party to,
	// on either side. Used by the activity aggregator.
	GetBookingsForParty(ctx context.Context, userID primitive.ObjectID) ([]*models.Booking, error)

	// Watch returns a change subscription. The channel closes when ctx
	// is cancelled.
	Watch(ctx context.Context) (<-chan BookingEvent, error)
}

type CheckpointRepository interface {
	GetCheckpoints(ctx context.Context, userID primitive.ObjectID) (map[models.ActivityCategory]time.Time, error)
	SetCheckpoint(ctx context.Context, userID primitive.ObjectID, category models.ActivityCategory, seenAt time.Time) error
}
