package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pod is a small accountability group whose members see each other's
// check-in activity. Membership lives on the User record and is
// exclusive: joining a pod supersedes any previous membership.
type Pod struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Tagline   string             `bson:"tagline,omitempty" json:"tagline,omitempty"`
	IsPrivate bool               `bson:"is_private" json:"is_private"`
	CreatedBy primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
