package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FeedEntry is one member's row in a pod feed: who they are, their
// streak, and their latest check-in if they have one. Available is false
// when the member's data could not be fetched during aggregation; the
// rest of the feed is unaffected.
type FeedEntry struct {
	MemberID    primitive.ObjectID `json:"member_id"`
	Username    string             `json:"username"`
	AvatarURL   string             `json:"avatar_url,omitempty"`
	Streak      int                `json:"streak"`
	Note        string             `json:"note,omitempty"`
	CheckedInAt *time.Time         `json:"checked_in_at,omitempty"`
	Available   bool               `json:"available"`

	// CheckInID breaks ordering ties between entries that share a
	// timestamp; it is not part of the API payload.
	CheckInID primitive.ObjectID `json:"-"`
}

// Feed is a fully aggregated snapshot of one pod's recent activity. It
// is derived, never persisted, and replaced wholesale on recompute.
type Feed struct {
	PodID      primitive.ObjectID `json:"pod_id"`
	Entries    []FeedEntry        `json:"entries"`
	ComputedAt time.Time          `json:"computed_at"`
	// Degraded is set when live delivery is impaired (event bus
	// unreachable past the reconnect budget).
	Degraded bool `json:"degraded,omitempty"`
}
