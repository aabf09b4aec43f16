package types

import (
	"time"

	"github.com/google/uuid"
)

type UserProfile struct {
	ID              uuid.UUID  `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email,omitempty"`
	AvatarURL       *string    `json:"avatar_url,omitempty"`
	Bio             *string    `json:"bio,omitempty"`
	Location        *string    `json:"location,omitempty"`
	Role            string     `json:"role"`
	HasPassword     bool       `json:"has_password"`
	GoogleLinked    bool       `json:"google_linked"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// PublicProfile is what other users may see of a seller.
type PublicProfile struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Bio       *string   `json:"bio,omitempty"`
	Location  *string   `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UpdateProfileParams defines the fields allowed for profile updates.
// Nil fields are left untouched.
type UpdateProfileParams struct {
	Username  *string `json:"username,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Location  *string `json:"location,omitempty"`
}
