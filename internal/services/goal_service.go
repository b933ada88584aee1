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

// GoalService encapsulates the business logic for goals.
type GoalService struct {
	repo *repository.GoalRepository
}

// NewGoalService creates a new instance of GoalService.
func NewGoalService(repo *repository.GoalRepository) *GoalService {
	return &GoalService{repo: repo}
}

// CreateGoal stores a new goal for the user. The new goal becomes the
// active one, superseding the previous goal by recency.
func (s *GoalService) CreateGoal(ctx context.Context, userID primitive.ObjectID, focusArea, title, description string) (*models.Goal, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errs.NewValidation("goal title must not be empty")
	}
	if strings.TrimSpace(focusArea) == "" {
		return nil, errs.NewValidation("focus area must not be empty")
	}

	goal, err := s.repo.CreateGoal(ctx, &models.Goal{
		UserID:      userID,
		FocusArea:   focusArea,
		Title:       title,
		Description: strings.TrimSpace(description),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	logger.Log.WithField("goal_id", goal.ID.Hex()).Info("Goal created in service layer")
	return goal, nil
}

// ActiveGoal returns the user's current goal, nil when none exists.
func (s *GoalService) ActiveGoal(ctx context.Context, userID primitive.ObjectID) (*models.Goal, error) {
	return s.repo.GetActiveGoal(ctx, userID)
}
