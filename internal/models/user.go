package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account profile. Accounts are created by the
// external identity provider on first authentication and are never hard
// deleted.
type User struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Username    string              `bson:"username" json:"username"`
	Email       string              `bson:"email" json:"email"`
	AvatarURL   string              `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	Timezone    string              `bson:"timezone" json:"timezone"` // IANA name, e.g. "America/New_York"
	PodID       *primitive.ObjectID `bson:"pod_id,omitempty" json:"pod_id,omitempty"`
	IsOnboarded bool                `bson:"is_onboarded" json:"is_onboarded"`
	OnboardedAt *time.Time          `bson:"onboarded_at,omitempty" json:"onboarded_at,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}
