package memory

import (
	"context"
	"sync"
	"time"

	"ridemarket/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CheckpointRepository struct {
	mu          sync.RWMutex
	checkpoints map[primitive.ObjectID]map[models.ActivityCategory]time.Time
}

func NewCheckpointRepository() *CheckpointRepository {
	return &CheckpointRepository{
		checkpoints: make(map[primitive.ObjectID]map[models.ActivityCategory]time.Time),
	}
}

func (r *CheckpointRepository) GetCheckpoints(ctx context.Context, userID primitive.ObjectID) (map[models.ActivityCategory]time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[models.ActivityCategory]time.Time)
	for category, seenAt := range r.checkpoints[userID] {
		result[category] = seenAt
	}
	return result, nil
}

func (r *CheckpointRepository) SetCheckpoint(ctx context.Context, userID primitive.ObjectID, category models.ActivityCategory, seenAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.checkpoints[userID] == nil {
		r.checkpoints[userID] = make(map[models.ActivityCategory]time.Time)
	}
	r.checkpoints[userID][category] = seenAt
	return nil
}
