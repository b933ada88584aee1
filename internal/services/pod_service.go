package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/podpulse/podpulse/internal/models"
	"github.com/podpulse/podpulse/internal/repository"
	"github.com/podpulse/podpulse/pkg/errs"
	"github.com/podpulse/podpulse/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PodService encapsulates the business logic for pods and membership.
type PodService struct {
	pods  *repository.PodRepository
	users *repository.UserRepository
}

// NewPodService creates a new instance of PodService.
func NewPodService(pods *repository.PodRepository, users *repository.UserRepository) *PodService {
	return &PodService{pods: pods, users: users}
}

// CreatePod creates a pod and makes the creator its first member.
func (s *PodService) CreatePod(ctx context.Context, creatorID primitive.ObjectID, name, tagline string, isPrivate bool) (*models.Pod, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.NewValidation("pod name must not be empty")
	}

	pod, err := s.pods.CreatePod(ctx, &models.Pod{
		Name:      name,
		Tagline:   strings.TrimSpace(tagline),
		IsPrivate: isPrivate,
		CreatedBy: creatorID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pod: %w", err)
	}

	if err := s.users.SetPod(ctx, creatorID, pod.ID); err != nil {
		return nil, fmt.Errorf("failed to join created pod: %w", err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"pod_id":  pod.ID.Hex(),
		"creator": creatorID.Hex(),
	}).Info("Pod created")
	return pod, nil
}

// JoinPod moves the user into the given pod. Membership is exclusive:
// any previous membership is superseded.
func (s *PodService) JoinPod(ctx context.Context, userID primitive.ObjectID, podID string) (*models.Pod, error) {
	objID, err := primitive.ObjectIDFromHex(podID)
	if err != nil {
		return nil, errs.NewValidation("invalid pod ID: %s", podID)
	}

	pod, err := s.pods.GetPodByID(ctx, objID)
	if err != nil {
		return nil, fmt.Errorf("pod not found: %w", err)
	}
	if pod.IsPrivate && pod.CreatedBy != userID {
		return nil, errs.NewValidation("pod is private")
	}

	if err := s.users.SetPod(ctx, userID, pod.ID); err != nil {
		return nil, fmt.Errorf("failed to join pod: %w", err)
	}
	return pod, nil
}

// PublicPods lists the pods open for joining.
func (s *PodService) PublicPods(ctx context.Context) ([]models.Pod, error) {
	return s.pods.GetPublicPods(ctx)
}
