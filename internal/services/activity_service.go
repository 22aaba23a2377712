package services

import (
	"context"
	"fmt"
	"time"

	"ridemarket/internal/apperrors"
	"ridemarket/internal/models"
	"ridemarket/internal/repositories/interfaces"
	"ridemarket/internal/utils"
	"ridemarket/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Broadcaster pushes a payload to a connected user's personal room or to
// everyone watching a booking thread. The websocket handler satisfies
// this; tests substitute a recorder.
type Broadcaster interface {
	SendToUser(userID string, event string, payload interface{}) error
	SendToBooking(bookingID string, event string, payload interface{}) error
}

type ActivityService interface {
	// GetCounts recomputes the per-category "new since last seen" counts
	// from scratch on every call.
	GetCounts(ctx context.Context, userID primitive.ObjectID) (*models.ActivityCounts, error)

	// MarkSeen advances the user's checkpoint for one category to now.
	MarkSeen(ctx context.Context, userID primitive.ObjectID, category models.ActivityCategory) error

	// Run consumes the booking change feed and pushes fresh counts to
	// both parties of every changed booking. Blocks until ctx is done.
	Run(ctx context.Context) error
}

type activityService struct {
	bookingRepo    interfaces.BookingRepository
	checkpointRepo interfaces.CheckpointRepository
	broadcaster    Broadcaster
	logger         *logger.Logger
	now            func() time.Time
}

func NewActivityService(bookingRepo interfaces.BookingRepository, checkpointRepo interfaces.CheckpointRepository, broadcaster Broadcaster, log *logger.Logger) ActivityService {
	return &activityService{
		bookingRepo:    bookingRepo,
		checkpointRepo: checkpointRepo,
		broadcaster:    broadcaster,
		logger:         log,
		now:            time.Now,
	}
}

func (s *activityService) GetCounts(ctx context.Context, userID primitive.ObjectID) (*models.ActivityCounts, error) {
	checkpoints, err := s.checkpointRepo.GetCheckpoints(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading checkpoints: %w", err)
	}

	bookings, err := s.bookingRepo.GetBookingsForParty(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading bookings: %w", err)
	}

	counts := &models.ActivityCounts{}
	for _, b := range bookings {
		// New requests on rides the user offers.
		if b.CounterpartyID == userID && !b.Status.Cancelled() &&
			b.CreatedAt.After(checkpoints[models.ActivityCategoryDriver]) {
			counts.Driver++
		}

		// The user's own outstanding bookings.
		if b.UserID == userID && !b.Status.Cancelled() &&
			b.CreatedAt.After(checkpoints[models.ActivityCategoryBookings]) {
			counts.Bookings++
		}

		// Paid unlocks keep counting even after cancellation; the unlock
		// itself already happened.
		if unlockedAt := b.UnlockedAt(); unlockedAt != nil &&
			unlockedAt.After(checkpoints[models.ActivityCategoryUnlocks]) {
			counts.Unlocks++
		}
	}
	counts.Total = counts.Driver + counts.Bookings + counts.Unlocks

	return counts, nil
}

func (s *activityService) MarkSeen(ctx context.Context, userID primitive.ObjectID, category models.ActivityCategory) error {
	if !category.Valid() {
		return fmt.Errorf("%w: unknown activity category %q", apperrors.ErrInvalidInput, category)
	}
	return s.checkpointRepo.SetCheckpoint(ctx, userID, category, s.now())
}

func (s *activityService) Run(ctx context.Context) error {
	events, err := s.bookingRepo.Watch(ctx)
	if err != nil {
		return fmt.Errorf("opening booking change feed: %w", err)
	}

	s.logger.Info("Activity aggregator started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, event)
		}
	}
}

func (s *activityService) handleEvent(ctx context.Context, event interfaces.BookingEvent) {
	if event.Booking == nil {
		// Delete diffs carry no document, so we cannot tell which users
		// were parties. Connected clients refetch on the next poll.
		return
	}

	for _, userID := range []primitive.ObjectID{event.Booking.UserID, event.Booking.CounterpartyID} {
		counts, err := s.GetCounts(ctx, userID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID.Hex()).Warn("Failed to recompute activity counts")
			continue
		}
		if err := s.broadcaster.SendToUser(userID.Hex(), utils.EventActivityCounts, counts); err != nil {
			s.logger.WithError(err).WithField("user_id", userID.Hex()).Debug("Activity push skipped")
		}
	}
}
