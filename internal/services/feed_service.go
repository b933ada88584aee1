package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/podpulse/podpulse/internal/models"
	"github.com/podpulse/podpulse/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/semaphore"
)

// MemberSource supplies a pod's membership set.
type MemberSource interface {
	GetPodMembers(ctx context.Context, podID primitive.ObjectID) ([]models.User, error)
}

// LatestCheckInSource supplies a member's most recent check-in, nil when
// they have none.
type LatestCheckInSource interface {
	GetLatestCheckIn(ctx context.Context, userID primitive.ObjectID) (*models.CheckIn, error)
}

// StreakSource supplies a member's current streak.
type StreakSource interface {
	CurrentStreak(ctx context.Context, userID primitive.ObjectID, timezone string, now time.Time) (int, error)
}

// FeedService aggregates a pod's recent activity: the latest check-in
// and streak of every member, fetched concurrently under a bounded
// fan-out, merged and sorted into one deterministic feed.
type FeedService struct {
	members  MemberSource
	checkIns LatestCheckInSource
	streaks  StreakSource
	fanout   int64

	mu     sync.RWMutex
	latest map[string]*models.Feed // podID hex -> last completed snapshot
}

// NewFeedService creates a new instance of FeedService. fanout bounds
// how many member fetches run concurrently.
func NewFeedService(members MemberSource, checkIns LatestCheckInSource, streaks StreakSource, fanout int) *FeedService {
	if fanout < 1 {
		fanout = 1
	}
	return &FeedService{
		members:  members,
		checkIns: checkIns,
		streaks:  streaks,
		fanout:   int64(fanout),
		latest:   make(map[string]*models.Feed),
	}
}

// FeedFor recomputes the pod's feed. Aggregation is best-effort: a
// failed member fetch yields an entry marked unavailable rather than
// failing the whole feed. The completed snapshot replaces the previous
// one atomically, so Cached readers never observe a partial merge.
func (s *FeedService) FeedFor(ctx context.Context, podID primitive.ObjectID) (*models.Feed, error) {
	members, err := s.members.GetPodMembers(ctx, podID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pod members: %w", err)
	}

	entries := make([]models.FeedEntry, len(members))
	sem := semaphore.NewWeighted(s.fanout)
	var wg sync.WaitGroup

	for i, member := range members {
		wg.Add(1)
		go func(i int, member models.User) {
			defer wg.Done()
			entries[i] = s.memberEntry(ctx, sem, member)
		}(i, member)
	}
	wg.Wait()

	sortEntries(entries)

	feed := &models.Feed{
		PodID:      podID,
		Entries:    entries,
		ComputedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.latest[podID.Hex()] = feed
	s.mu.Unlock()

	return feed, nil
}

// RefreshFeed is FeedFor keyed by the hex pod id carried in bus events.
func (s *FeedService) RefreshFeed(ctx context.Context, podID string) (*models.Feed, error) {
	objID, err := primitive.ObjectIDFromHex(podID)
	if err != nil {
		return nil, fmt.Errorf("invalid pod ID: %w", err)
	}
	return s.FeedFor(ctx, objID)
}

// Cached returns the last completed snapshot for the pod, or nil if none
// has been computed yet.
func (s *FeedService) Cached(podID string) *models.Feed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest[podID]
}

func (s *FeedService) memberEntry(ctx context.Context, sem *semaphore.Weighted, member models.User) models.FeedEntry {
	entry := models.FeedEntry{
		MemberID:  member.ID,
		Username:  member.Username,
		AvatarURL: member.AvatarURL,
		Available: true,
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		entry.Available = false
		return entry
	}
	defer sem.Release(1)

	latest, err := s.checkIns.GetLatestCheckIn(ctx, member.ID)
	if err != nil {
		logger.Log.WithError(err).WithField("member_id", member.ID.Hex()).Warn("Member fetch failed during aggregation")
		entry.Available = false
		return entry
	}

	if latest != nil {
		at := latest.CreatedAt
		entry.Note = latest.Note
		entry.CheckedInAt = &at
		entry.CheckInID = latest.ID
	}

	streak, err := s.streaks.CurrentStreak(ctx, member.ID, member.Timezone, time.Now())
	if err != nil {
		// The entry is still useful without the streak badge.
		logger.Log.WithError(err).WithField("member_id", member.ID.Hex()).Warn("Streak unavailable during aggregation")
		streak = 0
	}
	entry.Streak = streak

	return entry
}

// sortEntries orders a feed: freshest check-in first with the check-in
// id as tiebreak, members with no check-in after, and those in a stable
// member-id order so identical input always yields identical output.
// Unavailable entries sort with the no-check-in tail.
func sortEntries(entries []models.FeedEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.CheckedInAt != nil && b.CheckedInAt != nil:
			if !a.CheckedInAt.Equal(*b.CheckedInAt) {
				return a.CheckedInAt.After(*b.CheckedInAt)
			}
			return a.CheckInID.Hex() > b.CheckInID.Hex()
		case a.CheckedInAt != nil:
			return true
		case b.CheckedInAt != nil:
			return false
		default:
			return a.MemberID.Hex() < b.MemberID.Hex()
		}
	})
}
