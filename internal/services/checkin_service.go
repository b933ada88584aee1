package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/podpulse/podpulse/internal/metrics"
	"github.com/podpulse/podpulse/internal/models"
	"github.com/podpulse/podpulse/internal/realtime"
	"github.com/podpulse/podpulse/pkg/errs"
	"github.com/podpulse/podpulse/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckInStore is the write-and-point-query surface of the append-only
// check-in log.
type CheckInStore interface {
	Append(ctx context.Context, checkIn *models.CheckIn) (*models.CheckIn, error)
	GetLatestCheckIn(ctx context.Context, userID primitive.ObjectID) (*models.CheckIn, error)
	GetTodaysCheckIns(ctx context.Context, userID primitive.ObjectID, timezone string) ([]models.CheckIn, error)
}

// UserSource supplies user profiles.
type UserSource interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// ActiveGoalSource supplies a user's active goal.
type ActiveGoalSource interface {
	GetActiveGoal(ctx context.Context, userID primitive.ObjectID) (*models.Goal, error)
}

// EventPublisher emits check-in insertion events to the bus.
type EventPublisher interface {
	PublishCheckIn(ctx context.Context, event realtime.CheckInEvent) error
}

// StreakInvalidator drops a user's cached streak after a new check-in.
type StreakInvalidator interface {
	Invalidate(ctx context.Context, userID primitive.ObjectID, timezone string, at time.Time)
}

// CheckInService encapsulates the business logic of the check-in write
// path and its point queries.
type CheckInService struct {
	store     CheckInStore
	users     UserSource
	goals     ActiveGoalSource
	streaks   StreakInvalidator
	publisher EventPublisher // may be nil when the bus is disabled
}

// NewCheckInService creates a new instance of CheckInService.
func NewCheckInService(store CheckInStore, users UserSource, goals ActiveGoalSource, streaks StreakInvalidator, publisher EventPublisher) *CheckInService {
	return &CheckInService{
		store:     store,
		users:     users,
		goals:     goals,
		streaks:   streaks,
		publisher: publisher,
	}
}

// CreateCheckIn validates and appends a check-in for the user's active
// goal, then invalidates the streak cache and emits a bus event. goalID
// may be empty to target the active goal implicitly; a non-empty goalID
// that is not the active goal is rejected.
func (s *CheckInService) CreateCheckIn(ctx context.Context, userID primitive.ObjectID, goalID, note string) (*models.CheckIn, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, errs.NewValidation("note must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	goal, err := s.goals.GetActiveGoal(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active goal: %w", err)
	}
	if goal == nil {
		return nil, errs.NewValidation("no active goal to check in against")
	}
	if goalID != "" && goalID != goal.ID.Hex() {
		return nil, errs.NewValidation("goal %s is not the active goal", goalID)
	}

	checkIn := &models.CheckIn{
		UserID:    userID,
		GoalID:    goal.ID,
		Note:      note,
		CreatedAt: time.Now().UTC(),
	}

	created, err := s.store.Append(ctx, checkIn)
	if err != nil {
		// Write-path transient errors surface immediately: retrying
		// here could append the check-in twice.
		return nil, fmt.Errorf("failed to append check-in: %w", err)
	}
	metrics.CheckInsCreated.Inc()

	s.streaks.Invalidate(ctx, userID, user.Timezone, created.CreatedAt)

	event := realtime.CheckInEvent{
		CheckInID: created.ID.Hex(),
		UserID:    userID.Hex(),
		GoalID:    goal.ID.Hex(),
		CreatedAt: created.CreatedAt,
	}
	if user.PodID != nil {
		event.PodID = user.PodID.Hex()
	}

	if s.publisher != nil {
		if err := s.publisher.PublishCheckIn(ctx, event); err != nil {
			// The write is durable; consumers recover via resync.
			logger.Log.WithError(err).WithField("checkin_id", event.CheckInID).Warn("Failed to publish check-in event")
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id":    userID.Hex(),
		"checkin_id": created.ID.Hex(),
	}).Info("Check-in created")
	return created, nil
}

// TodaysCheckIns returns the caller's check-ins for their current local
// day, newest first. A caller that just appended sees the new entry.
func (s *CheckInService) TodaysCheckIns(ctx context.Context, userID primitive.ObjectID) ([]models.CheckIn, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return s.store.GetTodaysCheckIns(ctx, userID, user.Timezone)
}

// LatestCheckIn returns the user's most recent check-in, nil when they
// have none.
func (s *CheckInService) LatestCheckIn(ctx context.Context, userID primitive.ObjectID) (*models.CheckIn, error) {
	return s.store.GetLatestCheckIn(ctx, userID)
}
