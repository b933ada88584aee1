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

// PodRepository handles database operations related to pods.
type PodRepository struct {
	collection *mongo.Collection
}

// NewPodRepository creates a new instance of PodRepository.
func NewPodRepository(db *mongo.Database) *PodRepository {
	return &PodRepository{
		collection: db.Collection("pods"),
	}
}

// CreatePod creates a new pod in the database.
func (r *PodRepository) CreatePod(ctx context.Context, pod *models.Pod) (*models.Pod, error) {
	pod.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, pod)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert pod")
		return nil, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		logger.Log.Error("Failed to cast inserted pod ID")
		return nil, errors.New("unexpected inserted ID type")
	}
	pod.ID = insertedID

	logger.Log.WithField("pod_id", pod.ID.Hex()).Info("Pod created successfully")
	return pod, nil
}

// GetPodByID fetches a pod by its ID.
func (r *PodRepository) GetPodByID(ctx context.Context, id primitive.ObjectID) (*models.Pod, error) {
	var pod models.Pod

	err := errs.RetryRead(ctx, func() error {
		return r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&pod)
	})
	if err != nil {
		logger.Log.WithError(err).WithField("pod_id", id.Hex()).Error("Failed to find pod by ID")
		return nil, err
	}

	return &pod, nil
}

// GetPublicPods fetches every pod that is open for joining.
func (r *PodRepository) GetPublicPods(ctx context.Context) ([]models.Pod, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var pods []models.Pod
	err := errs.RetryRead(ctx, func() error {
		cursor, err := r.collection.Find(ctx, bson.M{"is_private": false}, opts)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		pods = pods[:0]
		return cursor.All(ctx, &pods)
	})
	if err != nil {
		logger.Log.WithError(err).Error("Failed to fetch public pods")
		return nil, err
	}

	logger.Log.WithField("count", len(pods)).Info("Public pods fetched")
	return pods, nil
}
