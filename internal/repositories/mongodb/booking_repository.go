package mongodb

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"ridemarket/internal/apperrors"
	"ridemarket/internal/models"
	"ridemarket/internal/repositories/interfaces"
	"ridemarket/internal/utils"
	"ridemarket/pkg/cache"
	"ridemarket/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type bookingRepository struct {
	db                 *database.MongoDB
	bookingsCollection *mongo.Collection
	ridesCollection    *mongo.Collection
	adsCollection      *mongo.Collection
	cache              *cache.RedisCache
}

func NewBookingRepository(db *database.MongoDB, redisCache *cache.RedisCache) interfaces.BookingRepository {
	return &bookingRepository{
		db:                 db,
		bookingsCollection: db.Collection(utils.CollectionBookings),
		ridesCollection:    db.Collection(utils.CollectionRides),
		adsCollection:      db.Collection(utils.CollectionAds),
		cache:              redisCache,
	}
}

func (r *bookingRepository) CreateBooking(ctx context.Context, booking *models.Booking) error {
	booking.ID = primitive.NewObjectID()
	booking.CreatedAt = time.Now()

	_, err := r.bookingsCollection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	r.cacheBooking(ctx, booking)

	return nil
}

func (r *bookingRepository) GetBooking(ctx context.Context, id primitive.ObjectID) (*models.Booking, error) {
	if booking := r.getBookingFromCache(ctx, id.Hex()); booking != nil {
		return booking, nil
	}

	var booking models.Booking
	err := r.bookingsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	r.cacheBooking(ctx, &booking)

	return &booking, nil
}

// UpdateBooking re-reads the document inside the same transaction that
// writes it, so a transition decided from a stale read aborts instead of
// overwriting a concurrent change.
func (r *bookingRepository) UpdateBooking(ctx context.Context, id primitive.ObjectID, mutate func(*models.Booking) error) (*models.Booking, error) {
	var lastErr error

	for attempt := 1; attempt <= utils.TransactionMaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, utils.TransactionTimeout)
		result, err := r.db.WithTransaction(attemptCtx, func(sessCtx mongo.SessionContext) (interface{}, error) {
			var booking models.Booking
			if findErr := r.bookingsCollection.FindOne(sessCtx, bson.M{"_id": id}).Decode(&booking); findErr != nil {
				if findErr == mongo.ErrNoDocuments {
					return nil, apperrors.ErrNotFound
				}
				return nil, fmt.Errorf("failed to read booking: %w", findErr)
			}

			mutateErr := mutate(&booking)
			if errors.Is(mutateErr, interfaces.ErrNoChange) {
				return &booking, nil
			}
			if mutateErr != nil {
				return nil, mutateErr
			}

			if _, writeErr := r.bookingsCollection.ReplaceOne(sessCtx, bson.M{"_id": id}, &booking); writeErr != nil {
				return nil, fmt.Errorf("failed to write booking: %w", writeErr)
			}
			return &booking, nil
		})
		cancel()

		if err == nil {
			booking := result.(*models.Booking)
			r.invalidateBookingCache(ctx, id.Hex())
			return booking, nil
		}
		if !isTransient(err) {
			return nil, err
		}

		lastErr = err
		if attempt < utils.TransactionMaxAttempts {
			backoff(attempt)
		}
	}

	return nil, fmt.Errorf("%w: %v", apperrors.ErrConflict, lastErr)
}

// DeleteBooking removes the record together with the unlock references
// embedded in the ride and ad documents, as a single transaction.
func (r *bookingRepository) DeleteBooking(ctx context.Context, id primitive.ObjectID) error {
	attemptCtx, cancel := context.WithTimeout(ctx, utils.TransactionTimeout)
	defer cancel()

	_, err := r.db.WithTransaction(attemptCtx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		var booking models.Booking
		if findErr := r.bookingsCollection.FindOne(sessCtx, bson.M{"_id": id}).Decode(&booking); findErr != nil {
			if findErr == mongo.ErrNoDocuments {
				return nil, apperrors.ErrNotFound
			}
			return nil, fmt.Errorf("failed to read booking: %w", findErr)
		}

		if _, delErr := r.bookingsCollection.DeleteOne(sessCtx, bson.M{"_id": id}); delErr != nil {
			return nil, fmt.Errorf("failed to delete booking: %w", delErr)
		}

		pull := bson.M{"$pull": bson.M{"unlock_ids": id}}
		if _, upErr := r.ridesCollection.UpdateOne(sessCtx, bson.M{"_id": booking.RideID}, pull); upErr != nil {
			return nil, fmt.Errorf("failed to remove ride unlock reference: %w", upErr)
		}
		if _, upErr := r.adsCollection.UpdateMany(sessCtx, bson.M{"ride_id": booking.RideID}, pull); upErr != nil {
			return nil, fmt.Errorf("failed to remove ad unlock reference: %w", upErr)
		}

		return nil, nil
	})
	if err != nil {
		return err
	}

	r.invalidateBookingCache(ctx, id.Hex())

	return nil
}

func (r *bookingRepository) GetBookingsByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	return r.findBookingsWithFilter(ctx, bson.M{"user_id": userID}, params)
}

func (r *bookingRepository) GetBookingsByCounterparty(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	return r.findBookingsWithFilter(ctx, bson.M{"counterparty_id": userID}, params)
}

func (r *bookingRepository) GetBookingsByRide(ctx context.Context, rideID primitive.ObjectID) ([]*models.Booking, error) {
	bookings, _, err := r.findBookingsWithFilter(ctx, bson.M{"ride_id": rideID}, nil)
	return bookings, err
}

func (r *bookingRepository) GetBookingsForParty(ctx context.Context, userID primitive.ObjectID) ([]*models.Booking, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"user_id": userID},
			{"counterparty_id": userID},
		},
	}
	bookings, _, err := r.findBookingsWithFilter(ctx, filter, nil)
	return bookings, err
}

func (r *bookingRepository) Watch(ctx context.Context) (<-chan interfaces.BookingEvent, error) {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := r.bookingsCollection.Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open booking change stream: %w", err)
	}

	events := make(chan interfaces.BookingEvent, 16)

	go func() {
		defer close(events)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var change struct {
				OperationType string `bson:"operationType"`
				DocumentKey   struct {
					ID primitive.ObjectID `bson:"_id"`
				} `bson:"documentKey"`
				FullDocument *models.Booking `bson:"fullDocument"`
			}
			if decodeErr := stream.Decode(&change); decodeErr != nil {
				continue
			}

			var eventType interfaces.BookingEventType
			switch change.OperationType {
			case "insert":
				eventType = interfaces.BookingEventInsert
			case "update", "replace":
				eventType = interfaces.BookingEventUpdate
			case "delete":
				eventType = interfaces.BookingEventDelete
			default:
				continue
			}

			select {
			case events <- interfaces.BookingEvent{
				Type:      eventType,
				BookingID: change.DocumentKey.ID,
				Booking:   change.FullDocument,
			}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

func (r *bookingRepository) findBookingsWithFilter(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Booking, int64, error) {
	total, err := r.bookingsCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if params != nil {
		findOptions = params.GetSortOptions()
	}

	cursor, err := r.bookingsCollection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, 0, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, total, nil
}

// isTransient reports whether a transaction error is worth another
// attempt: contention, commit uncertainty, timeouts.
func isTransient(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.HasErrorLabel("TransientTransactionError") ||
			cmdErr.HasErrorLabel("UnknownTransactionCommitResult")
	}
	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}

func backoff(attempt int) {
	base := utils.TransactionBackoffBase << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(utils.TransactionBackoffBase)))
	time.Sleep(base + jitter)
}

// Cache helpers

func (r *bookingRepository) cacheBooking(ctx context.Context, booking *models.Booking) {
	if r.cache == nil {
		return
	}
	key := utils.CacheBookingPrefix + booking.ID.Hex()
	r.cache.Set(ctx, key, booking, 5*time.Minute)
}

func (r *bookingRepository) getBookingFromCache(ctx context.Context, id string) *models.Booking {
	if r.cache == nil {
		return nil
	}
	var booking models.Booking
	if err := r.cache.Get(ctx, utils.CacheBookingPrefix+id, &booking); err != nil {
		return nil
	}
	return &booking
}

func (r *bookingRepository) invalidateBookingCache(ctx context.Context, id string) {
	if r.cache == nil {
		return
	}
	r.cache.Delete(ctx, utils.CacheBookingPrefix+id)
}
