package websocket

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Handler struct {
	hub *Hub
}

func NewHandler() *Handler {
	hub := NewHub()
	go hub.Run()

	return &Handler{
		hub: hub,
	}
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	userObjectID, ok := userID.(primitive.ObjectID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(h.hub, conn, userObjectID)
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// SendToUser pushes an event to a user's personal room. The string form
// is what the activity aggregator speaks.
func (h *Handler) SendToUser(userID string, event string, payload interface{}) error {
	userObjectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}

	message := Message{
		Type:      event,
		UserID:    userObjectID,
		Timestamp: getCurrentTimestamp(),
		Data: map[string]interface{}{
			"payload": payload,
		},
	}

	h.hub.SendToUser(userObjectID, message)
	return nil
}

// SendToBooking fans an event out to every client watching the booking
// thread.
func (h *Handler) SendToBooking(bookingID string, event string, payload interface{}) error {
	bookingObjectID, err := primitive.ObjectIDFromHex(bookingID)
	if err != nil {
		return err
	}

	message := Message{
		Type:      event,
		RoomID:    "booking_" + bookingObjectID.Hex(),
		Timestamp: getCurrentTimestamp(),
		Data: map[string]interface{}{
			"payload": payload,
		},
	}

	h.hub.SendBookingUpdate(bookingObjectID, message)
	return nil
}
