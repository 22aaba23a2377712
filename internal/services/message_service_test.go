package services

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ridemarket/internal/apperrors"
	"ridemarket/internal/guard"
	"ridemarket/internal/models"
	"ridemarket/internal/repositories/memory"
	"ridemarket/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newMessageService(repo *memory.BookingRepository, t *testing.T) *messageService {
	return &messageService{
		bookingRepo: repo,
		notifier:    nopNotifier{},
		logger:      newTestLogger(t),
		now:         time.Now,
	}
}

func TestSendMessage(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newMessageService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	message, violation, err := svc.SendMessage(context.Background(), booking.ID, passenger, "  Hej! Finns platsen kvar imorgon kl 08:30?  ")
	require.NoError(t, err)
	require.Nil(t, violation)

	assert.Equal(t, "Hej! Finns platsen kvar imorgon kl 08:30?", message.Text)
	assert.Equal(t, passenger, message.From)
	assert.False(t, message.Read)

	current, err := repo.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	require.Len(t, current.Messages, 1)
	assert.Equal(t, message.Text, current.Messages[0].Text)
}

func TestSendMessagePushesToCounterpart(t *testing.T) {
	repo := memory.NewBookingRepository()
	broadcaster := newRecordingBroadcaster()
	svc := newMessageService(repo, t)
	svc.broadcaster = broadcaster
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	_, violation, err := svc.SendMessage(context.Background(), booking.ID, passenger, "Jag står vid pendeltågsstationen.")
	require.NoError(t, err)
	require.Nil(t, violation)

	assert.Equal(t, 1, broadcaster.count(driver.Hex()))
	assert.Equal(t, 0, broadcaster.count(passenger.Hex()))
	assert.Equal(t, 1, broadcaster.roomCount(booking.ID.Hex()))
}

func TestSendMessageStripsMarkup(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newMessageService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	message, violation, err := svc.SendMessage(context.Background(), booking.ID, driver, "Hej <script>alert(1)</script> där")
	require.NoError(t, err)
	require.Nil(t, violation)
	assert.NotContains(t, message.Text, "<script>")
}

func TestSendMessageBlockedByGuard(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newMessageService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	message, violation, err := svc.SendMessage(context.Background(), booking.ID, passenger, "ring mig på 070-123 45 67")
	require.NoError(t, err)
	require.NotNil(t, violation)
	assert.Nil(t, message)
	assert.True(t, violation.Blocked)
	assert.Equal(t, guard.CategoryPhone, violation.Category)
	assert.NotEmpty(t, violation.Reason)

	// The blocked attempt leaves no trace on the record.
	current, err := repo.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Empty(t, current.Messages)
}

func TestSendMessageEmptyAfterSanitize(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newMessageService(repo, t)
	booking := seedBooking(t, repo, models.BookingTypeSeat, primitive.NewObjectID(), primitive.NewObjectID())

	_, _, err := svc.SendMessage(context.Background(), booking.ID, booking.UserID, "   <b></b>   ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSendMessageToCancelledBooking(t *testing.T) {
	repo := memory.NewBookingRepository()
	msgSvc := newMessageService(repo, t)
	bookingSvc := newBookingService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	_, err := bookingSvc.Cancel(context.Background(), booking.ID, driver, models.CancelReasonByDriver)
	require.NoError(t, err)

	_, _, err = msgSvc.SendMessage(context.Background(), booking.ID, passenger, "Hallå?")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

// Two authors write near-simultaneously; both messages must survive.
func TestConcurrentSendMessage(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newMessageService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	const perAuthor = 5
	var wg sync.WaitGroup
	for i := 0; i < perAuthor; i++ {
		for _, author := range []primitive.ObjectID{passenger, driver} {
			wg.Add(1)
			go func(author primitive.ObjectID, i int) {
				defer wg.Done()
				_, _, err := svc.SendMessage(context.Background(), booking.ID, author, fmt.Sprintf("meddelande %d", i))
				assert.NoError(t, err)
			}(author, i)
		}
	}
	wg.Wait()

	current, err := repo.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Len(t, current.Messages, perAuthor*2)
}

func TestMarkRead(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newMessageService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	_, _, err := svc.SendMessage(context.Background(), booking.ID, passenger, "Hej!")
	require.NoError(t, err)
	_, _, err = svc.SendMessage(context.Background(), booking.ID, driver, "Hej själv!")
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(context.Background(), booking.ID, driver))

	current, err := repo.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	for _, m := range current.Messages {
		if m.From == passenger {
			assert.True(t, m.Read, "incoming message should be read")
		} else {
			assert.False(t, m.Read, "own message must stay untouched")
		}
	}
}

// A second MarkRead finds nothing to flip and must not issue a write.
func TestMarkReadNoOp(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newMessageService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	_, _, err := svc.SendMessage(context.Background(), booking.ID, passenger, "Hej!")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := repo.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(context.Background(), booking.ID, driver))
	require.NoError(t, svc.MarkRead(context.Background(), booking.ID, driver))

	// Only the first call produced a change event.
	updates := 0
	cancel()
	for range events {
		updates++
	}
	assert.Equal(t, 1, updates)
}

// The read-receipt event log only records reads that actually flipped
// something; a no-op MarkRead stays silent.
func TestMarkReadNoOpSkipsEventLog(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newMessageService(repo, t)

	log, err := logger.NewLogger(&logger.Config{Level: logger.InfoLevel})
	require.NoError(t, err)
	var logBuf bytes.Buffer
	log.SetOutput(&logBuf)
	svc.logger = log

	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	_, _, err = svc.SendMessage(context.Background(), booking.ID, passenger, "Hej!")
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(context.Background(), booking.ID, driver))
	assert.Contains(t, logBuf.String(), "messages_read")

	logBuf.Reset()
	require.NoError(t, svc.MarkRead(context.Background(), booking.ID, driver))
	assert.NotContains(t, logBuf.String(), "messages_read")
}

func TestHideMessages(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newMessageService(repo, t)
	passenger := primitive.NewObjectID()
	driver := primitive.NewObjectID()
	booking := seedBooking(t, repo, models.BookingTypeSeat, passenger, driver)

	for _, text := range []string{"ett", "två", "tre"} {
		_, _, err := svc.SendMessage(context.Background(), booking.ID, passenger, text)
		require.NoError(t, err)
	}

	require.NoError(t, svc.HideMessages(context.Background(), booking.ID, driver, []int{0, 2}))

	current, err := repo.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)

	// Hidden for the driver only; the author still sees everything.
	driverView := current.VisibleMessages(driver)
	require.Len(t, driverView, 1)
	assert.Equal(t, "två", driverView[0].Text)
	assert.Len(t, current.VisibleMessages(passenger), 3)
}

func TestHideMessagesOutOfRange(t *testing.T) {
	repo := memory.NewBookingRepository()
	svc := newMessageService(repo, t)
	booking := seedBooking(t, repo, models.BookingTypeSeat, primitive.NewObjectID(), primitive.NewObjectID())

	err := svc.HideMessages(context.Background(), booking.ID, booking.UserID, []int{5})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
