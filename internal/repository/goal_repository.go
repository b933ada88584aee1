package repository

import (
	"context"
	"errors"
	"time"

	"github.com/podpulse/podpulse/internal/models"
	"github.com/podpulse/podpulse/pkg/errs"
	"github.com/podpulse/podpulse/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GoalRepository handles database operations related to goals.
type GoalRepository struct {
	collection *mongo.Collection
}

// NewGoalRepository creates a new instance of GoalRepository.
func NewGoalRepository(db *mongo.Database) *GoalRepository {
	return &GoalRepository{
		collection: db.Collection("goals"),
	}
}

// CreateGoal creates a new goal in the database.
func (r *GoalRepository) CreateGoal(ctx context.Context, goal *models.Goal) (*models.Goal, error) {
	goal.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, goal)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert goal")
		return nil, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		logger.Log.Error("Failed to cast inserted goal ID")
		return nil, errors.New("unexpected inserted ID type")
	}
	goal.ID = insertedID

	logger.Log.WithField("goal_id", goal.ID.Hex()).Info("Goal created successfully")
	return goal, nil
}

// GetActiveGoal fetches a user's active goal: the most recent one by
// creation timestamp. There is no explicit closed state. Returns
// (nil, nil) when the user has no goal yet.
func (r *GoalRepository) GetActiveGoal(ctx context.Context, userID primitive.ObjectID) (*models.Goal, error) {
	var goal models.Goal

	err := errs.RetryRead(ctx, func() error {
		opts := options.FindOne().SetSort(bson.D{
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		})
		return r.collection.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&goal)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		logger.Log.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to fetch active goal")
		return nil, err
	}

	return &goal, nil
}
