package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckIn is one append-only log entry: a short note against the goal
// that was active when it was written. Entries are never updated or
// deleted. CreatedAt is stored as an instant; a timezone is applied only
// when deriving habit days. The ObjectID doubles as the monotonic
// insertion tiebreak for entries sharing a timestamp.
type CheckIn struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	GoalID    primitive.ObjectID `bson:"goal_id" json:"goal_id"`
	Note      string             `bson:"note" json:"note"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
