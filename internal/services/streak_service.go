package services

import (
	"context"
	"fmt"
	"time"

	"github.com/podpulse/podpulse/internal/habitday"
	"github.com/podpulse/podpulse/internal/metrics"
	"github.com/podpulse/podpulse/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckInHistory supplies the raw creation instants of a user's
// check-ins.
type CheckInHistory interface {
	GetCheckInTimes(ctx context.Context, userID primitive.ObjectID) ([]time.Time, error)
}

// StreakCache caches computed streaks per (user, habit day).
type StreakCache interface {
	Get(ctx context.Context, userID string, day habitday.DayKey) (int, bool)
	Set(ctx context.Context, userID string, day habitday.DayKey, streak int)
	Invalidate(ctx context.Context, userID string, day habitday.DayKey)
}

// StreakService derives the current consecutive-day streak from the
// check-in log. The streak is a pure function of the set of habit days
// with at least one check-in, so backfilled or corrected history always
// yields a consistent answer.
type StreakService struct {
	history CheckInHistory
	cache   StreakCache // may be nil
}

// NewStreakService creates a new instance of StreakService. cache may be
// nil to disable caching.
func NewStreakService(history CheckInHistory, cache StreakCache) *StreakService {
	return &StreakService{history: history, cache: cache}
}

// CurrentStreak returns the user's streak as of now in their timezone.
// Results are cached per (user, today's DayKey): the key naturally goes
// stale at the local day boundary, and Invalidate drops it when a new
// check-in lands.
func (s *StreakService) CurrentStreak(ctx context.Context, userID primitive.ObjectID, timezone string, now time.Time) (int, error) {
	today := habitday.HabitDay(now, timezone)

	if s.cache != nil {
		if streak, ok := s.cache.Get(ctx, userID.Hex(), today); ok {
			metrics.StreakCacheHits.WithLabelValues("hit").Inc()
			return streak, nil
		}
		metrics.StreakCacheHits.WithLabelValues("miss").Inc()
	}

	times, err := s.history.GetCheckInTimes(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch check-in history: %w", err)
	}

	streak := StreakFromDays(habitday.Set(times, timezone), today)

	if s.cache != nil {
		s.cache.Set(ctx, userID.Hex(), today, streak)
	}

	logger.Log.WithFields(map[string]interface{}{
		"user_id": userID.Hex(),
		"streak":  streak,
	}).Debug("Streak computed")
	return streak, nil
}

// Invalidate drops the cached streak for the habit day containing at.
// Callers pass the instant of the write that made the cache stale, so
// a check-in landing near a day boundary invalidates its own day.
func (s *StreakService) Invalidate(ctx context.Context, userID primitive.ObjectID, timezone string, at time.Time) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx, userID.Hex(), habitday.HabitDay(at, timezone))
}

// StreakFromDays counts consecutive habit days with a check-in, walking
// backward from today. A missed today does not zero the streak while the
// day is still in progress: if today is absent the walk anchors at
// yesterday instead. The first gap stops the count. The input is a set,
// so the result is independent of insertion order.
func StreakFromDays(days map[habitday.DayKey]struct{}, today habitday.DayKey) int {
	day := today
	if _, ok := days[day]; !ok {
		day = day.Prev()
	}

	streak := 0
	for {
		if _, ok := days[day]; !ok {
			break
		}
		streak++
		day = day.Prev()
	}
	return streak
}
