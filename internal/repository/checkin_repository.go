package repository

import (
	"context"
	"errors"
	"time"

	"github.com/podpulse/podpulse/internal/habitday"
	"github.com/podpulse/podpulse/internal/models"
	"github.com/podpulse/podpulse/pkg/errs"
	"github.com/podpulse/podpulse/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CheckInRepository handles database operations over the append-only
// check-in log.
type CheckInRepository struct {
	collection *mongo.Collection
}

// NewCheckInRepository creates a new instance of CheckInRepository.
func NewCheckInRepository(db *mongo.Database) *CheckInRepository {
	return &CheckInRepository{
		collection: db.Collection("check_ins"),
	}
}

// Append durably inserts a new check-in and returns it with its assigned
// ID. Transient failures are surfaced immediately rather than retried:
// a blind retry here could write the entry twice.
func (r *CheckInRepository) Append(ctx context.Context, checkIn *models.CheckIn) (*models.CheckIn, error) {
	if checkIn.CreatedAt.IsZero() {
		checkIn.CreatedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, checkIn)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert check-in")
		if errs.IsTransient(err) {
			return nil, errs.Transient(err)
		}
		return nil, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		logger.Log.Error("Failed to cast inserted check-in ID")
		return nil, errors.New("unexpected inserted ID type")
	}
	checkIn.ID = insertedID

	logger.Log.WithField("checkin_id", checkIn.ID.Hex()).Info("Check-in appended")
	return checkIn, nil
}

// GetLatestCheckIn fetches a user's most recent check-in, newest by
// creation timestamp with the ID as tiebreak. Returns (nil, nil) when
// the user has never checked in.
func (r *CheckInRepository) GetLatestCheckIn(ctx context.Context, userID primitive.ObjectID) (*models.CheckIn, error) {
	var checkIn models.CheckIn

	err := errs.RetryRead(ctx, func() error {
		opts := options.FindOne().SetSort(bson.D{
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		})
		return r.collection.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&checkIn)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		logger.Log.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to fetch latest check-in")
		return nil, err
	}

	return &checkIn, nil
}

// GetTodaysCheckIns fetches the user's check-ins for the current local
// calendar day in the given timezone, newest first.
func (r *CheckInRepository) GetTodaysCheckIns(ctx context.Context, userID primitive.ObjectID, timezone string) ([]models.CheckIn, error) {
	start, end := habitday.DayBounds(time.Now().UTC(), timezone)

	filter := bson.M{
		"user_id":    userID,
		"created_at": bson.M{"$gte": start, "$lt": end},
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})

	var checkIns []models.CheckIn
	err := errs.RetryRead(ctx, func() error {
		cursor, err := r.collection.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		checkIns = checkIns[:0]
		return cursor.All(ctx, &checkIns)
	})
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to fetch today's check-ins")
		return nil, err
	}

	return checkIns, nil
}

// GetCheckInTimes fetches the raw creation instants of every check-in
// the user has ever written. The streak calculator buckets them into
// habit days itself, so backfilled history always rederives cleanly.
func (r *CheckInRepository) GetCheckInTimes(ctx context.Context, userID primitive.ObjectID) ([]time.Time, error) {
	opts := options.Find().SetProjection(bson.M{"created_at": 1})

	var times []time.Time
	err := errs.RetryRead(ctx, func() error {
		cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		times = times[:0]
		for cursor.Next(ctx) {
			var doc struct {
				CreatedAt time.Time `bson:"created_at"`
			}
			if err := cursor.Decode(&doc); err != nil {
				return err
			}
			times = append(times, doc.CreatedAt)
		}
		return cursor.Err()
	})
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to fetch check-in history")
		return nil, err
	}

	return times, nil
}
