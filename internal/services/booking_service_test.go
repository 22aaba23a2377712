package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"ridemarket/internal/apperrors"
	"ridemarket/internal/models"
	"ridemarket/internal/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newBookingService(repo *memory.BookingRepository, t *testing.T) *bookingService {
	return &bookingService{
		bookingRepo: repo,
		notifier:    nopNotifier{},
		logger:      newTestLogger(t),
		now:         time.Now,
	}
}

func TestCreateBooking(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newBookingService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()

	booking, err := svc.CreateBooking(context.Background(), passenger, &models.BookingRequest{
		Type:            models.BookingTypeSeat,
		RideID:          primitive.NewObjectID(),
		CounterpartyID:  driver,
		RideOrigin:      "Uppsala",
		RideDestination: "Malmö",
		Seats:           2,
	})
	require.NoError(t, err)

	assert.False(t, booking.ID.IsZero())
	assert.Equal(t, models.BookingStatusRequested, booking.Status)
	assert.Equal(t, 2, booking.Seats)
	assert.Equal(t, passenger, booking.UserID)
	assert.False(t, booking.CreatedAt.IsZero())
}

func TestCreateBookingOwnRide(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newBookingService(repo, t)
	userID := primitive.NewObjectID()

	_, err := svc.CreateBooking(context.Background(), userID, &models.BookingRequest{
		Type:           models.BookingTypeSeat,
		RideID:         primitive.NewObjectID(),
		CounterpartyID: userID,
	})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestApprove(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newBookingService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	approved, err := svc.Approve(context.Background(), booking.ID, driver, &models.ApproveRequest{
		SharedPhone: "0701234567",
	})
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, "+46701234567", approved.DriverPhoneShared)
}

func TestApproveInvalidSharedPhone(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newBookingService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	_, err := svc.Approve(context.Background(), booking.ID, driver, &models.ApproveRequest{
		SharedPhone: "inte ett nummer",
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	current, err := repo.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRequested, current.Status)
	assert.Empty(t, current.DriverPhoneShared)
}

func TestApproveContactUnlockVariant(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newBookingService(repo, t)
	driver := primitive.NewObjectID()
	passenger := primitive.NewObjectID()
	// Flow direction is reversed: the driver requests, the passenger decides.
	booking := seedBooking(t, repo, models.BookingTypeContactUnlock, driver, passenger)

	approved, err := svc.Approve(context.Background(), booking.ID, passenger, nil)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusApprovedByPassenger, approved.Status)
}

func TestApproveWrongParty(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newBookingService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	// The requester cannot approve their own request.
	_, err := svc.Approve(context.Background(), booking.ID, passenger, nil)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	// Nothing was mutated.
	current, err := repo.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRequested, current.Status)
}

func TestApproveAfterDecision(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newBookingService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	_, err := svc.Reject(context.Background(), booking.ID, driver)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), booking.ID, driver, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestApproveNotFound(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newBookingService(repo, t)

	_, err := svc.Approve(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// Two approvals race on the same requested booking. Exactly one may win;
// the loser must observe the committed state and fail the transition.
func TestConcurrentApprove(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newBookingService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Approve(context.Background(), booking.ID, driver, nil)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, wins)

	current, err := repo.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusApproved, current.Status)
}

func TestCancelIdempotent(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newBookingService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	first, err := svc.Cancel(context.Background(), booking.ID, driver, models.CancelReasonByDriver)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatus("cancelled_by_driver"), first.Status)
	require.NotNil(t, first.CancelledAt)

	// Re-cancelling keeps the original attribution and timestamp.
	second, err := svc.Cancel(context.Background(), booking.ID, passenger, models.CancelReasonByPassenger)
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.True(t, first.CancelledAt.Equal(*second.CancelledAt))
}

func TestCancelApprovedBooking(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newBookingService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	_, err := svc.Approve(context.Background(), booking.ID, driver, nil)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), booking.ID, passenger, models.CancelReasonByPassenger)
	require.NoError(t, err)
	assert.True(t, cancelled.Status.Cancelled())
}

func TestCancelRejectedBooking(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newBookingService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	_, err := svc.Reject(context.Background(), booking.ID, driver)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), booking.ID, passenger, models.CancelReasonByPassenger)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestCancelByOutsider(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newBookingService(repo, t)
	booking := seedBooking(t, repo, models.BookingTypeSeat, primitive.NewObjectID(), primitive.NewObjectID())

	_, err := svc.Cancel(context.Background(), booking.ID, primitive.NewObjectID(), models.CancelReasonByDriver)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestDeleteContact(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newBookingService(repo, t)
	driver := primitive.NewObjectID()
	passenger := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeContactUnlock, driver, passenger)

	require.Len(t, repo.RideUnlockIDs(booking.RideID), 1)

	require.NoError(t, svc.DeleteContact(context.Background(), booking.ID, driver))

	_, err := repo.GetBooking(context.Background(), booking.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// Cross-references on the ride are gone too.
	assert.Empty(t, repo.RideUnlockIDs(booking.RideID))
}

func TestDeleteContactByOutsider(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newBookingService(repo, t)
	booking := seedBooking(t, repo, models.BookingTypeContactUnlock, primitive.NewObjectID(), primitive.NewObjectID())

	err := svc.DeleteContact(context.Background(), booking.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestApplyUnlockIdempotent(t *testing.T) {
	repo := memory.NewBookingRepository()
	notifier := &recordingNotifier{}
	svc := &bookingService{bookingRepo: repo, notifier: notifier, logger: newTestLogger(t), now: time.Now}
	booking := seedBooking(t, repo, models.BookingTypeContactUnlock, primitive.NewObjectID(), primitive.NewObjectID())

	paidAt := time.Now()
	require.NoError(t, svc.ApplyUnlock(context.Background(), booking.ID, paidAt))

	// A replayed webhook must not move the unlock timestamp.
	require.NoError(t, svc.ApplyUnlock(context.Background(), booking.ID, paidAt.Add(time.Hour)))

	current, err := repo.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	require.NotNil(t, current.PaidAt)
	assert.True(t, current.PaidAt.Equal(paidAt))
}

func TestGetBookingAuthorization(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newBookingService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	_, err := svc.GetBooking(context.Background(), booking.ID, passenger)
	assert.NoError(t, err)

	_, err = svc.GetBooking(context.Background(), booking.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
