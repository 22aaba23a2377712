package mongodb

import (
	"context"
	"fmt"
	"time"

	"ridemarket/internal/models"
	"ridemarket/internal/repositories/interfaces"
	"ridemarket/internal/utils"
	"ridemarket/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type checkpointRepository struct {
	collection *mongo.Collection
}

func NewCheckpointRepository(db *database.MongoDB) interfaces.CheckpointRepository {
	return &checkpointRepository{
		collection: db.Collection(utils.CollectionCheckpoints),
	}
}

func (r *checkpointRepository) GetCheckpoints(ctx context.Context, userID primitive.ObjectID) (map[models.ActivityCategory]time.Time, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to find checkpoints: %w", err)
	}
	defer cursor.Close(ctx)

	var checkpoints []models.Checkpoint
	if err := cursor.All(ctx, &checkpoints); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoints: %w", err)
	}

	result := make(map[models.ActivityCategory]time.Time, len(checkpoints))
	for _, cp := range checkpoints {
		result[cp.Category] = cp.LastSeenAt
	}

	return result, nil
}

func (r *checkpointRepository) SetCheckpoint(ctx context.Context, userID primitive.ObjectID, category models.ActivityCategory, seenAt time.Time) error {
	filter := bson.M{"user_id": userID, "category": category}
	update := bson.M{
		"$set": bson.M{
			"last_seen_at": seenAt,
			"updated_at":   time.Now(),
		},
		"$setOnInsert": bson.M{
			"user_id":  userID,
			"category": category,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to set checkpoint: %w", err)
	}

	return nil
}
