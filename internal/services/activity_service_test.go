package services

import (
	"context"
	"testing"
	"time"

	"ridemarket/internal/models"
	"ridemarket/internal/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newActivityService(bookingRepo *memory.BookingRepository, checkpointRepo *memory.CheckpointRepository, t *testing.T) *activityService {
	return &activityService{
		bookingRepo:    bookingRepo,
		checkpointRepo: checkpointRepo,
		broadcaster:    newRecordingBroadcaster(),
		logger:         newTestLogger(t),
		now:            time.Now,
	}
}

// Three requests arrive at t1 < t2 < t3; with the checkpoint at t2, only
// the t3 request counts as new.
func TestGetCountsCheckpoint(t *testing.T) {
	bookingRepo := memory.NewBookingRepository()
	checkpointRepo := memory.NewCheckpointRepository()
	svc := newActivityService(bookingRepo, checkpointRepo, t)
	driver := primitive.NewObjectID()

	var second *models.Booking
	for i := 0; i < 3; i++ {
		b := seedBooking(t, bookingRepo, models.BookingTypeSeat, primitive.NewObjectID(), driver)
		if i == 1 {
			second = b
		}
		time.Sleep(5 * time.Millisecond)
	}

	require.NoError(t, checkpointRepo.SetCheckpoint(context.Background(), driver, models.ActivityCategoryDriver, second.CreatedAt))

	counts, err := svc.GetCounts(context.Background(), driver)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Driver)
	assert.Equal(t, 0, counts.Bookings)
	assert.Equal(t, 1, counts.Total)
}

func TestGetCountsNoCheckpoint(t *testing.T) {
	bookingRepo := memory.NewBookingRepository()
	checkpointRepo := memory.NewCheckpointRepository()
	svc := newActivityService(bookingRepo, checkpointRepo, t)
	passenger := primitive.NewObjectID()

	seedBooking(t, bookingRepo, models.BookingTypeSeat, passenger, primitive.NewObjectID())
	seedBooking(t, bookingRepo, models.BookingTypeSeat, passenger, primitive.NewObjectID())

	// Without a checkpoint everything is new.
	counts, err := svc.GetCounts(context.Background(), passenger)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Bookings)
	assert.Equal(t, 2, counts.Total)
}

// Cancelled bookings disappear from driver/bookings counts, but a paid
// unlock keeps counting: the unlock event itself already happened.
func TestGetCountsCancelledAsymmetry(t *testing.T) {
	bookingRepo := memory.NewBookingRepository()
	checkpointRepo := memory.NewCheckpointRepository()
	svc := newActivityService(bookingRepo, checkpointRepo, t)
	bookingSvc := newBookingService(bookingRepo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()

	seat := seedBooking(t, bookingRepo, models.BookingTypeSeat, passenger, driver)
	unlock := seedBooking(t, bookingRepo, models.BookingTypeContactUnlock, driver, passenger)
	require.NoError(t, bookingSvc.ApplyUnlock(context.Background(), unlock.ID, time.Now()))

	counts, err := svc.GetCounts(context.Background(), driver)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Driver)
	assert.Equal(t, 1, counts.Unlocks)

	_, err = bookingSvc.Cancel(context.Background(), seat.ID, driver, models.CancelReasonByDriver)
	require.NoError(t, err)
	_, err = bookingSvc.Cancel(context.Background(), unlock.ID, passenger, models.CancelReasonByPassenger)
	require.NoError(t, err)

	counts, err = svc.GetCounts(context.Background(), driver)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Driver, "cancelled request no longer counts")
	assert.Equal(t, 1, counts.Unlocks, "paid unlock still counts after cancellation")
	assert.Equal(t, 1, counts.Total)
}

func TestMarkSeenResetsCategory(t *testing.T) {
	bookingRepo := memory.NewBookingRepository()
	checkpointRepo := memory.NewCheckpointRepository()
	svc := newActivityService(bookingRepo, checkpointRepo, t)
	driver := primitive.NewObjectID()

	seedBooking(t, bookingRepo, models.BookingTypeSeat, primitive.NewObjectID(), driver)

	counts, err := svc.GetCounts(context.Background(), driver)
	require.NoError(t, err)
	require.Equal(t, 1, counts.Driver)

	require.NoError(t, svc.MarkSeen(context.Background(), driver, models.ActivityCategoryDriver))

	counts, err = svc.GetCounts(context.Background(), driver)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Driver)
}

func TestMarkSeenUnknownCategory(t *testing.T) {
	svc := newActivityService(memory.NewBookingRepository(), memory.NewCheckpointRepository(), t)
	err := svc.MarkSeen(context.Background(), primitive.NewObjectID(), models.ActivityCategory("mail"))
	assert.Error(t, err)
}

// The aggregator pushes fresh counts to both parties on every change.
func TestRunPushesCounts(t *testing.T) {
	bookingRepo := memory.NewBookingRepository()
	checkpointRepo := memory.NewCheckpointRepository()
	broadcaster := newRecordingBroadcaster()
	svc := &activityService{
		bookingRepo:    bookingRepo,
		checkpointRepo: checkpointRepo,
		broadcaster:    broadcaster,
		logger:         newTestLogger(t),
		now:            time.Now,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = svc.Run(ctx)
		close(done)
	}()

	// Give Run a moment to subscribe before writing.
	time.Sleep(20 * time.Millisecond)

	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	seedBooking(t, bookingRepo, models.BookingTypeSeat, passenger, driver)

	require.Eventually(t, func() bool {
		return broadcaster.count(passenger.Hex()) >= 1 && broadcaster.count(driver.Hex()) >= 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
