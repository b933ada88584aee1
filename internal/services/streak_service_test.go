package services

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/podpulse/podpulse/internal/habitday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func daySet(keys ...habitday.DayKey) map[habitday.DayKey]struct{} {
	days := make(map[habitday.DayKey]struct{}, len(keys))
	for _, k := range keys {
		days[k] = struct{}{}
	}
	return days
}

func TestStreakFromDays(t *testing.T) {
	today := habitday.DayKey("2025-06-10")

	tests := []struct {
		name string
		days map[habitday.DayKey]struct{}
		want int
	}{
		{"no check-ins ever", daySet(), 0},
		{"single check-in today", daySet("2025-06-10"), 1},
		{"today yesterday and day before", daySet("2025-06-10", "2025-06-09", "2025-06-08"), 3},
		{"day before missing", daySet("2025-06-10", "2025-06-09", "2025-06-07"), 2},
		{"only yesterday, today not yet elapsed", daySet("2025-06-09"), 1},
		{"only day before yesterday, streak broken", daySet("2025-06-08"), 0},
		{"gap limits run despite many check-in days", daySet("2025-06-10", "2025-06-08", "2025-06-07", "2025-06-06"), 1},
		{"long unbroken run anchored at yesterday", daySet("2025-06-09", "2025-06-08", "2025-06-07", "2025-06-06"), 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StreakFromDays(tt.days, today))
		})
	}
}

func TestStreakFromDaysOrderIndependent(t *testing.T) {
	today := habitday.DayKey("2025-06-10")
	keys := []habitday.DayKey{"2025-06-10", "2025-06-09", "2025-06-08", "2025-06-05", "2025-06-04"}

	want := StreakFromDays(daySet(keys...), today)
	require.Equal(t, 3, want)

	// The same DayKey set built in any insertion order yields the same
	// streak.
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]habitday.DayKey(nil), keys...)
		r.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, StreakFromDays(daySet(shuffled...), today))
	}
}

type fakeHistory struct {
	times []time.Time
	calls int
	err   error
}

func (f *fakeHistory) GetCheckInTimes(_ context.Context, _ primitive.ObjectID) ([]time.Time, error) {
	f.calls++
	return f.times, f.err
}

type fakeStreakCache struct {
	values map[string]int
}

func newFakeStreakCache() *fakeStreakCache {
	return &fakeStreakCache{values: make(map[string]int)}
}

func (f *fakeStreakCache) key(userID string, day habitday.DayKey) string {
	return userID + ":" + string(day)
}

func (f *fakeStreakCache) Get(_ context.Context, userID string, day habitday.DayKey) (int, bool) {
	v, ok := f.values[f.key(userID, day)]
	return v, ok
}

func (f *fakeStreakCache) Set(_ context.Context, userID string, day habitday.DayKey, streak int) {
	f.values[f.key(userID, day)] = streak
}

func (f *fakeStreakCache) Invalidate(_ context.Context, userID string, day habitday.DayKey) {
	delete(f.values, f.key(userID, day))
}

func TestCurrentStreakComputesAndCaches(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	history := &fakeHistory{times: []time.Time{
		time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 9, 22, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 9, 7, 0, 0, 0, time.UTC), // same day twice
	}}
	cache := newFakeStreakCache()
	svc := NewStreakService(history, cache)
	userID := primitive.NewObjectID()

	streak, err := svc.CurrentStreak(context.Background(), userID, "UTC", now)
	require.NoError(t, err)
	assert.Equal(t, 2, streak)
	assert.Equal(t, 1, history.calls)

	// Second call is served from the cache.
	streak, err = svc.CurrentStreak(context.Background(), userID, "UTC", now)
	require.NoError(t, err)
	assert.Equal(t, 2, streak)
	assert.Equal(t, 1, history.calls)

	// Invalidation forces a recompute.
	svc.Invalidate(context.Background(), userID, "UTC", now)
	_, err = svc.CurrentStreak(context.Background(), userID, "UTC", now)
	require.NoError(t, err)
	assert.Equal(t, 2, history.calls)
}

func TestCurrentStreakCacheKeyedByDay(t *testing.T) {
	history := &fakeHistory{times: []time.Time{
		time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC),
	}}
	cache := newFakeStreakCache()
	svc := NewStreakService(history, cache)
	userID := primitive.NewObjectID()

	day1 := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	streak, err := svc.CurrentStreak(context.Background(), userID, "UTC", day1)
	require.NoError(t, err)
	assert.Equal(t, 1, streak)

	// The next day the cached value is not reused: the key includes the
	// current DayKey, so crossing midnight is naturally a miss.
	day2 := day1.AddDate(0, 0, 1)
	streak, err = svc.CurrentStreak(context.Background(), userID, "UTC", day2)
	require.NoError(t, err)
	assert.Equal(t, 1, streak) // yesterday's check-in still counts
	assert.Equal(t, 2, history.calls)
}

func TestInvalidateKeyedToWriteInstant(t *testing.T) {
	history := &fakeHistory{times: []time.Time{
		time.Date(2025, 6, 9, 23, 50, 0, 0, time.UTC),
	}}
	cache := newFakeStreakCache()
	svc := NewStreakService(history, cache)
	userID := primitive.NewObjectID()

	lateNight := time.Date(2025, 6, 9, 23, 55, 0, 0, time.UTC)
	_, err := svc.CurrentStreak(context.Background(), userID, "UTC", lateNight)
	require.NoError(t, err)
	require.Equal(t, 1, history.calls)

	// A check-in written at 23:58 belongs to June 9. Invalidating with
	// the write's own instant drops June 9's entry even if the call is
	// only observed after midnight.
	svc.Invalidate(context.Background(), userID, "UTC", time.Date(2025, 6, 9, 23, 58, 0, 0, time.UTC))

	_, err = svc.CurrentStreak(context.Background(), userID, "UTC", lateNight)
	require.NoError(t, err)
	assert.Equal(t, 2, history.calls, "stale entry for the write's day was dropped")
}

func TestCurrentStreakTimezoneBoundary(t *testing.T) {
	// 02:30 UTC June 10 is the evening of June 9 in New York, so a
	// check-in at that instant belongs to June 9 for that user.
	checkIn := time.Date(2025, 6, 10, 2, 30, 0, 0, time.UTC)
	now := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC) // June 10 local
	history := &fakeHistory{times: []time.Time{checkIn}}
	svc := NewStreakService(history, nil)

	streak, err := svc.CurrentStreak(context.Background(), primitive.NewObjectID(), "America/New_York", now)
	require.NoError(t, err)
	assert.Equal(t, 1, streak, "yesterday-local check-in keeps the streak alive")
}
