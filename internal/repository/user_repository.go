package repository

import (
	"context"
	"time"

	"github.com/podpulse/podpulse/internal/models"
	"github.com/podpulse/podpulse/pkg/errs"
	"github.com/podpulse/podpulse/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository handles database operations related to user profiles
// and pod membership.
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
	}
}

// GetUserByID fetches a user by their ID.
func (r *UserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User

	err := errs.RetryRead(ctx, func() error {
		return r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	})
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", id.Hex()).Error("Failed to find user by ID")
		return nil, err
	}

	return &user, nil
}

// UpdateProfile applies a partial profile update. Only non-empty fields
// are written.
func (r *UserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, username, timezone, avatarURL string) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if username != "" {
		set["username"] = username
	}
	if timezone != "" {
		set["timezone"] = timezone
	}
	if avatarURL != "" {
		set["avatar_url"] = avatarURL
	}

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", id.Hex()).Error("Failed to update profile")
		return err
	}

	logger.Log.WithField("user_id", id.Hex()).Info("Profile updated")
	return nil
}

// SetPod assigns the user to a pod. Membership is exclusive, so writing
// the new pod id implicitly supersedes any previous membership.
func (r *UserRepository) SetPod(ctx context.Context, userID, podID primitive.ObjectID) error {
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"pod_id":       podID,
		"is_onboarded": true,
		"onboarded_at": now,
		"updated_at":   now,
	}}

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"user_id": userID.Hex(),
			"pod_id":  podID.Hex(),
		}).Error("Failed to set pod membership")
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"user_id": userID.Hex(),
		"pod_id":  podID.Hex(),
	}).Info("Pod membership updated")
	return nil
}

// GetPodMembers fetches every user belonging to the given pod, sorted by
// ID so the membership set has a stable order.
func (r *UserRepository) GetPodMembers(ctx context.Context, podID primitive.ObjectID) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	var members []models.User
	err := errs.RetryRead(ctx, func() error {
		cursor, err := r.collection.Find(ctx, bson.M{"pod_id": podID}, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		members = members[:0]
		return cursor.All(ctx, &members)
	})
	if err != nil {
		logger.Log.WithError(err).WithField("pod_id", podID.Hex()).Error("Failed to fetch pod members")
		return nil, err
	}

	return members, nil
}
