package services

import (
	"context"
	"fmt"
	"time"

	"github.com/podpulse/podpulse/internal/models"
	"github.com/podpulse/podpulse/internal/repository"
	"github.com/podpulse/podpulse/pkg/errs"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserService encapsulates the business logic for user profiles.
type UserService struct {
	repo *repository.UserRepository
}

// NewUserService creates a new instance of UserService.
func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// GetUser fetches a user by ID.
func (s *UserService) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// UpdateProfile applies a partial profile update. A timezone, when
// given, must be a valid IANA name so habit days never rely on the UTC
// fallback by accident.
func (s *UserService) UpdateProfile(ctx context.Context, id primitive.ObjectID, username, timezone, avatarURL string) (*models.User, error) {
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return nil, errs.NewValidation("unknown timezone: %s", timezone)
		}
	}

	if err := s.repo.UpdateProfile(ctx, id, username, timezone, avatarURL); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.repo.GetUserByID(ctx, id)
}
