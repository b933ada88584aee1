package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/podpulse/podpulse/internal/config"
	"github.com/podpulse/podpulse/internal/habitday"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects the shared Redis client used for derived-value
// caching.
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// StreakCache stores computed streaks keyed per (user, habit day). The
// day in the key makes stale values harmless across a day boundary: a
// new day is simply a cache miss.
type StreakCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStreakCache creates a StreakCache with a 48h TTL, long enough to
// cover any single habit day in any timezone.
func NewStreakCache(client *redis.Client) *StreakCache {
	return &StreakCache{client: client, ttl: 48 * time.Hour}
}

func streakKey(userID string, day habitday.DayKey) string {
	return fmt.Sprintf("streak:%s:%s", userID, day)
}

// Get returns the cached streak and whether it was present.
func (c *StreakCache) Get(ctx context.Context, userID string, day habitday.DayKey) (int, bool) {
	val, err := c.client.Get(ctx, streakKey(userID, day)).Result()
	if err != nil {
		return 0, false
	}
	streak, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return streak, true
}

// Set stores a computed streak. Failures are ignored: the cache is an
// optimization, the DayKey set remains the source of truth.
func (c *StreakCache) Set(ctx context.Context, userID string, day habitday.DayKey, streak int) {
	c.client.Set(ctx, streakKey(userID, day), strconv.Itoa(streak), c.ttl)
}

// Invalidate drops the cached streak for the user's current habit day.
// Called on every new check-in for that user.
func (c *StreakCache) Invalidate(ctx context.Context, userID string, day habitday.DayKey) {
	c.client.Del(ctx, streakKey(userID, day))
}
