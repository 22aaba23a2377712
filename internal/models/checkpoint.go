package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ActivityCategory string

const (
	// Requests received on rides the user is offering.
	ActivityCategoryDriver ActivityCategory = "driver"
	// Bookings the user sent as a passenger.
	ActivityCategoryBookings ActivityCategory = "bookings"
	// Paid contact unlocks involving the user.
	ActivityCategoryUnlocks ActivityCategory = "unlocks"
)

func (c ActivityCategory) Valid() bool {
	switch c {
	case ActivityCategoryDriver, ActivityCategoryBookings, ActivityCategoryUnlocks:
		return true
	}
	return false
}

// Checkpoint is the per-user, per-category "last seen" marker the activity
// counts are computed against.
type Checkpoint struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID     primitive.ObjectID `json:"user_id" bson:"user_id" validate:"required"`
	Category   ActivityCategory   `json:"category" bson:"category" validate:"required"`
	LastSeenAt time.Time          `json:"last_seen_at" bson:"last_seen_at"`
	UpdatedAt  time.Time          `json:"updated_at" bson:"updated_at"`
}

// ActivityCounts is a point-in-time observation, recomputed on every read
// and never cached across record or checkpoint changes.
type ActivityCounts struct {
	Driver   int `json:"driver"`
	Bookings int `json:"bookings"`
	Unlocks  int `json:"unlocks"`
	Total    int `json:"total"`
}
