package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"ridemarket/internal/models"
	"ridemarket/internal/repositories/memory"
	"ridemarket/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel})
	require.NoError(t, err)
	log.SetOutput(io.Discard)
	return log
}

// nopNotifier swallows notifications; tests that assert on delivery use
// recordingNotifier instead.
type nopNotifier struct{}

func (nopNotifier) Send(*models.Notification) {}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*models.Notification
}

func (r *recordingNotifier) Send(n *models.Notification) {
	r.mu.Lock()
	r.sent = append(r.sent, n)
	r.mu.Unlock()
}

func (r *recordingNotifier) byType(t models.NotificationType) []*models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Notification
	for _, n := range r.sent {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

type recordingBroadcaster struct {
	mu        sync.Mutex
	pushes    map[string][]interface{}
	roomSends map[string][]interface{}
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{
		pushes:    make(map[string][]interface{}),
		roomSends: make(map[string][]interface{}),
	}
}

func (r *recordingBroadcaster) SendToUser(userID string, event string, payload interface{}) error {
	r.mu.Lock()
	r.pushes[userID] = append(r.pushes[userID], payload)
	r.mu.Unlock()
	return nil
}

func (r *recordingBroadcaster) SendToBooking(bookingID string, event string, payload interface{}) error {
	r.mu.Lock()
	r.roomSends[bookingID] = append(r.roomSends[bookingID], payload)
	r.mu.Unlock()
	return nil
}

func (r *recordingBroadcaster) count(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pushes[userID])
}

func (r *recordingBroadcaster) roomCount(bookingID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.roomSends[bookingID])
}

func seedBooking(t *testing.T, repo *memory.BookingRepository, bookingType models.BookingType, passenger, driver primitive.ObjectID) *models.Booking {
	t.Helper()
	booking := &models.Booking{
		Type:            bookingType,
		RideID:          primitive.NewObjectID(),
		UserID:          passenger,
		CounterpartyID:  driver,
		RideOrigin:      "Stockholm",
		RideDestination: "Göteborg",
		RideDate:        "2026-09-12",
		RideTime:        "08:30",
		Status:          models.BookingStatusRequested,
		Seats:           1,
		Messages:        []models.Message{},
	}
	require.NoError(t, repo.CreateBooking(context.Background(), booking))
	return booking
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
