package websocket

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestClient(h *Hub, userID primitive.ObjectID, buffer int) *Client {
	return &Client{
		hub:    h,
		send:   make(chan []byte, buffer),
		UserID: userID,
		rooms:  make(map[string]bool),
	}
}

func hubHasClient(h *Hub, c *Client) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.clients[c]
}

func hubHasRoom(h *Hub, roomID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	_, ok := h.rooms[roomID]
	return ok
}

func registerAndWait(t *testing.T, h *Hub, c *Client) {
	t.Helper()
	h.register <- c
	require.Eventually(t, func() bool { return hubHasClient(h, c) }, time.Second, 5*time.Millisecond)
}

func TestSendToUserDeliversToPersonalRoom(t *testing.T) {
	h := NewHub()
	go h.Run()

	userID := primitive.NewObjectID()
	client := newTestClient(h, userID, 8)
	registerAndWait(t, h, client)
	<-client.send // welcome

	h.SendToUser(userID, Message{Type: "activity_counts", UserID: userID})

	select {
	case data := <-client.send:
		assert.Contains(t, string(data), "activity_counts")
	case <-time.After(time.Second):
		t.Fatal("no message delivered to personal room")
	}
}

// A client that stops reading must not take the hub down with it:
// concurrent pushes against its full buffer evict it exactly once.
func TestSendToUserEvictsBackedUpClient(t *testing.T) {
	h := NewHub()
	go h.Run()

	userID := primitive.NewObjectID()
	client := newTestClient(h, userID, 1)
	registerAndWait(t, h, client)
	// The welcome message saturated the one-slot buffer; every push
	// from here on sees a full channel.

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.SendToUser(userID, Message{Type: "activity_counts", UserID: userID})
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return !hubHasClient(h, client) }, time.Second, 5*time.Millisecond)
	assert.False(t, hubHasRoom(h, "user_"+userID.Hex()))
}

func TestBookingRoomFanOut(t *testing.T) {
	handler := NewHandler()
	h := handler.hub

	bookingID := primitive.NewObjectID()
	passenger := newTestClient(h, primitive.NewObjectID(), 8)
	driver := newTestClient(h, primitive.NewObjectID(), 8)
	registerAndWait(t, h, passenger)
	registerAndWait(t, h, driver)
	<-passenger.send // welcome
	<-driver.send

	h.JoinBooking(passenger, bookingID)
	h.JoinBooking(driver, bookingID)

	require.NoError(t, handler.SendToBooking(bookingID.Hex(), "message_sent", map[string]string{"text": "Hej!"}))

	for _, client := range []*Client{passenger, driver} {
		select {
		case data := <-client.send:
			assert.Contains(t, string(data), "message_sent")
		case <-time.After(time.Second):
			t.Fatal("booking room member did not receive the event")
		}
	}
}
