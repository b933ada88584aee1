package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/podpulse/podpulse/internal/models"
	"github.com/podpulse/podpulse/internal/realtime"
	"github.com/podpulse/podpulse/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeStore struct {
	appended  []*models.CheckIn
	todays    []models.CheckIn
	latest    *models.CheckIn
	appendErr error
}

func (f *fakeStore) Append(_ context.Context, checkIn *models.CheckIn) (*models.CheckIn, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	checkIn.ID = primitive.NewObjectID()
	f.appended = append(f.appended, checkIn)
	return checkIn, nil
}

func (f *fakeStore) GetLatestCheckIn(_ context.Context, _ primitive.ObjectID) (*models.CheckIn, error) {
	return f.latest, nil
}

func (f *fakeStore) GetTodaysCheckIns(_ context.Context, _ primitive.ObjectID, _ string) ([]models.CheckIn, error) {
	return f.todays, nil
}

type fakeUsers struct {
	user *models.User
	err  error
}

func (f *fakeUsers) GetUserByID(_ context.Context, _ primitive.ObjectID) (*models.User, error) {
	return f.user, f.err
}

type fakeGoals struct {
	goal *models.Goal
	err  error
}

func (f *fakeGoals) GetActiveGoal(_ context.Context, _ primitive.ObjectID) (*models.Goal, error) {
	return f.goal, f.err
}

type fakeInvalidator struct {
	calls int
	at    time.Time
}

func (f *fakeInvalidator) Invalidate(_ context.Context, _ primitive.ObjectID, _ string, at time.Time) {
	f.calls++
	f.at = at
}

type fakePublisher struct {
	events []realtime.CheckInEvent
	err    error
}

func (f *fakePublisher) PublishCheckIn(_ context.Context, event realtime.CheckInEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func newCheckInFixture(t *testing.T) (*CheckInService, *fakeStore, *fakeInvalidator, *fakePublisher, primitive.ObjectID, *models.Goal) {
	t.Helper()

	userID := primitive.NewObjectID()
	podID := primitive.NewObjectID()
	goal := &models.Goal{ID: primitive.NewObjectID(), UserID: userID, Title: "write daily"}

	store := &fakeStore{}
	users := &fakeUsers{user: &models.User{ID: userID, Username: "alice", Timezone: "UTC", PodID: &podID}}
	goals := &fakeGoals{goal: goal}
	invalidator := &fakeInvalidator{}
	publisher := &fakePublisher{}

	svc := NewCheckInService(store, users, goals, invalidator, publisher)
	return svc, store, invalidator, publisher, userID, goal
}

func TestCreateCheckIn(t *testing.T) {
	svc, store, invalidator, publisher, userID, goal := newCheckInFixture(t)

	created, err := svc.CreateCheckIn(context.Background(), userID, "", "  did the thing  ")
	require.NoError(t, err)

	assert.Equal(t, "did the thing", created.Note, "note is trimmed")
	assert.Equal(t, goal.ID, created.GoalID, "check-in references the active goal")
	require.Len(t, store.appended, 1)
	assert.Equal(t, 1, invalidator.calls, "streak cache invalidated")
	assert.Equal(t, created.CreatedAt, invalidator.at, "invalidation keyed to the write's own instant")

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, created.ID.Hex(), event.CheckInID)
	assert.Equal(t, userID.Hex(), event.UserID)
	assert.NotEmpty(t, event.PodID, "event carries the author's pod")
}

func TestCreateCheckInValidation(t *testing.T) {
	tests := []struct {
		name   string
		note   string
		goalID func(active *models.Goal) string
	}{
		{"empty note", "", nil},
		{"whitespace-only note", "   \t ", nil},
		{"stale goal id", "fine note", func(*models.Goal) string { return primitive.NewObjectID().Hex() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _, publisher, userID, goal := newCheckInFixture(t)

			goalID := ""
			if tt.goalID != nil {
				goalID = tt.goalID(goal)
			}

			_, err := svc.CreateCheckIn(context.Background(), userID, goalID, tt.note)
			require.Error(t, err)
			assert.True(t, errs.IsValidation(err))
			assert.Empty(t, store.appended, "nothing written on validation failure")
			assert.Empty(t, publisher.events, "nothing published on validation failure")
		})
	}
}

func TestCreateCheckInNoActiveGoal(t *testing.T) {
	userID := primitive.NewObjectID()
	svc := NewCheckInService(
		&fakeStore{},
		&fakeUsers{user: &models.User{ID: userID, Timezone: "UTC"}},
		&fakeGoals{goal: nil},
		&fakeInvalidator{},
		&fakePublisher{},
	)

	_, err := svc.CreateCheckIn(context.Background(), userID, "", "note")
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}

func TestCreateCheckInWriteFailureNotRetried(t *testing.T) {
	svc, store, invalidator, publisher, userID, _ := newCheckInFixture(t)
	store.appendErr = errs.Transient(errors.New("connection reset"))

	_, err := svc.CreateCheckIn(context.Background(), userID, "", "note")
	require.Error(t, err)
	assert.False(t, errs.IsValidation(err))
	assert.Empty(t, store.appended)
	assert.Equal(t, 0, invalidator.calls)
	assert.Empty(t, publisher.events)
}

func TestCreateCheckInSurvivesPublishFailure(t *testing.T) {
	svc, store, invalidator, publisher, userID, _ := newCheckInFixture(t)
	publisher.err = errors.New("broker down")

	created, err := svc.CreateCheckIn(context.Background(), userID, "", "note")
	require.NoError(t, err, "durable write succeeded; publish failure is not the caller's problem")
	assert.NotNil(t, created)
	assert.Len(t, store.appended, 1)
	assert.Equal(t, 1, invalidator.calls)
}

func TestCreateCheckInWithoutPod(t *testing.T) {
	userID := primitive.NewObjectID()
	goal := &models.Goal{ID: primitive.NewObjectID(), UserID: userID}
	publisher := &fakePublisher{}
	svc := NewCheckInService(
		&fakeStore{},
		&fakeUsers{user: &models.User{ID: userID, Timezone: "UTC"}}, // no pod
		&fakeGoals{goal: goal},
		&fakeInvalidator{},
		publisher,
	)

	_, err := svc.CreateCheckIn(context.Background(), userID, "", "note")
	require.NoError(t, err)
	require.Len(t, publisher.events, 1)
	assert.Empty(t, publisher.events[0].PodID)
}

func TestTodaysCheckIns(t *testing.T) {
	svc, store, _, _, userID, _ := newCheckInFixture(t)
	store.todays = []models.CheckIn{
		{Note: "later", CreatedAt: time.Now().UTC()},
		{Note: "earlier", CreatedAt: time.Now().UTC().Add(-time.Hour)},
	}

	checkIns, err := svc.TodaysCheckIns(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, checkIns, 2)
	assert.Equal(t, "later", checkIns[0].Note)
}
