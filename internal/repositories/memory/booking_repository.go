// Package memory holds in-memory repository implementations with the
// same optimistic-concurrency semantics as the MongoDB ones: every
// read-modify-write is versioned and a stale write aborts and retries.
// They back the service tests and local development without a database.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"ridemarket/internal/apperrors"
	"ridemarket/internal/models"
	"ridemarket/internal/repositories/interfaces"
	"ridemarket/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type versionedBooking struct {
	booking *models.Booking
	version int64
}

type BookingRepository struct {
	mu          sync.RWMutex
	bookings    map[primitive.ObjectID]*versionedBooking
	rideUnlocks map[primitive.ObjectID][]primitive.ObjectID
	subscribers []chan interfaces.BookingEvent
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{
		bookings:    make(map[primitive.ObjectID]*versionedBooking),
		rideUnlocks: make(map[primitive.ObjectID][]primitive.ObjectID),
	}
}

func (r *BookingRepository) CreateBooking(ctx context.Context, booking *models.Booking) error {
	booking.ID = primitive.NewObjectID()
	booking.CreatedAt = time.Now()

	r.mu.Lock()
	r.bookings[booking.ID] = &versionedBooking{booking: copyBooking(booking), version: 1}
	if booking.Type == models.BookingTypeContactUnlock {
		r.rideUnlocks[booking.RideID] = append(r.rideUnlocks[booking.RideID], booking.ID)
	}
	r.mu.Unlock()

	r.publish(interfaces.BookingEvent{
		Type:      interfaces.BookingEventInsert,
		BookingID: booking.ID,
		Booking:   copyBooking(booking),
	})

	return nil
}

func (r *BookingRepository) GetBooking(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.bookings[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return copyBooking(entry.booking), nil
}

// UpdateBooking mirrors the transactional contract: the mutate function
// runs against a private copy taken at a known version, and the write
// commits only if the version is still current. A lost version means a
// concurrent writer got there first; the whole read-mutate-write is
// then retried from a fresh read.
func (r *BookingRepository) UpdateBooking(ctx context.Context, id primitive.ObjectID, mutate func(*models.Booking) error) (*models.Booking, error) {
	for attempt := 1; attempt <= utils.TransactionMaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r.mu.RLock()
		entry, ok := r.bookings[id]
		if !ok {
			r.mu.RUnlock()
			return nil, apperrors.ErrNotFound
		}
		working := copyBooking(entry.booking)
		readVersion := entry.version
		r.mu.RUnlock()

		mutateErr := mutate(working)
		if errors.Is(mutateErr, interfaces.ErrNoChange) {
			return working, nil
		}
		if mutateErr != nil {
			return nil, mutateErr
		}

		r.mu.Lock()
		entry, ok = r.bookings[id]
		if !ok {
			r.mu.Unlock()
			return nil, apperrors.ErrNotFound
		}
		if entry.version != readVersion {
			r.mu.Unlock()
			continue
		}
		entry.booking = copyBooking(working)
		entry.version++
		r.mu.Unlock()

		r.publish(interfaces.BookingEvent{
			Type:      interfaces.BookingEventUpdate,
			BookingID: id,
			Booking:   copyBooking(working),
		})

		return working, nil
	}

	return nil, fmt.Errorf("%w: booking %s", apperrors.ErrConflict, id.Hex())
}

func (r *BookingRepository) DeleteBooking(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	entry, ok := r.bookings[id]
	if !ok {
		r.mu.Unlock()
		return apperrors.ErrNotFound
	}
	rideID := entry.booking.RideID
	delete(r.bookings, id)

	refs := r.rideUnlocks[rideID]
	for i, ref := range refs {
		if ref == id {
			r.rideUnlocks[rideID] = append(refs[:i], refs[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.publish(interfaces.BookingEvent{
		Type:      interfaces.BookingEventDelete,
		BookingID: id,
	})

	return nil
}

func (r *BookingRepository) GetBookingsByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	return r.filter(func(b *models.Booking) bool { return b.UserID == userID }), 0, nil
}

func (r *BookingRepository) GetBookingsByCounterparty(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	return r.filter(func(b *models.Booking) bool { return b.CounterpartyID == userID }), 0, nil
}

func (r *BookingRepository) GetBookingsByRide(ctx context.Context, rideID primitive.ObjectID) ([]*models.Booking, error) {
	return r.filter(func(b *models.Booking) bool { return b.RideID == rideID }), nil
}

func (r *BookingRepository) GetBookingsForParty(ctx context.Context, userID primitive.ObjectID) ([]*models.Booking, error) {
	return r.filter(func(b *models.Booking) bool { return b.HasParty(userID) }), nil
}

func (r *BookingRepository) Watch(ctx context.Context) (<-chan interfaces.BookingEvent, error) {
	events := make(chan interfaces.BookingEvent, 16)

	r.mu.Lock()
	r.subscribers = append(r.subscribers, events)
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		for i, sub := range r.subscribers {
			if sub == events {
				r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
				close(events)
				break
			}
		}
		r.mu.Unlock()
	}()

	return events, nil
}

// RideUnlockIDs exposes the embedded unlock reference list for a ride,
// so tests can verify cross-reference cleanup.
func (r *BookingRepository) RideUnlockIDs(rideID primitive.ObjectID) []primitive.ObjectID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]primitive.ObjectID(nil), r.rideUnlocks[rideID]...)
}

func (r *BookingRepository) filter(keep func(*models.Booking) bool) []*models.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Booking
	for _, entry := range r.bookings {
		if keep(entry.booking) {
			result = append(result, copyBooking(entry.booking))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (r *BookingRepository) publish(event interfaces.BookingEvent) {
	r.mu.RLock()
	subs := append([]chan interfaces.BookingEvent(nil), r.subscribers...)
	r.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			// slow subscriber, drop rather than block writers
		}
	}
}

func copyBooking(b *models.Booking) *models.Booking {
	if b == nil {
		return nil
	}
	clone := *b
	clone.Messages = make([]models.Message, len(b.Messages))
	for i, m := range b.Messages {
		clone.Messages[i] = m
		clone.Messages[i].HiddenFor = append([]primitive.ObjectID(nil), m.HiddenFor...)
	}
	clone.ApprovedAt = copyTime(b.ApprovedAt)
	clone.RejectedAt = copyTime(b.RejectedAt)
	clone.CancelledAt = copyTime(b.CancelledAt)
	clone.ContactUnlockedAt = copyTime(b.ContactUnlockedAt)
	clone.PaidAt = copyTime(b.PaidAt)
	return &clone
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}
