package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserAuth is the credential view of a user row.
type UserAuth struct {
	ID              uuid.UUID  `json:"id" example:"d290f1ee-6c54-4b01-90e6-d701748f0851"`
	Username        string     `json:"username" example:"johndoe"`
	Email           string     `json:"email" example:"john.doe@example.com"`
	PasswordHash    *string    `json:"-"` // nil for Google-only accounts
	GoogleID        *string    `json:"-"`
	AvatarURL       *string    `json:"avatar_url,omitempty"`
	Role            string     `json:"role" example:"user"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Claims are the access token claims.
type Claims struct {
	UserID   string `json:"uid"`
	Email    string `json:"eml"`
	Username string `json:"usr"`
	Role     string `json:"rol"`
	jwt.RegisteredClaims
}

// AuthResult is returned by every operation that opens a session.
type AuthResult struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type" example:"Bearer"`
	ExpiresIn    int64        `json:"expires_in" example:"900"`
	User         *UserProfile `json:"user"`
}

// RefreshToken is a stored opaque refresh token.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Token     string
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// VerificationCode is the stored state of an emailed code.
type VerificationCode struct {
	Email      string
	CodeHash   string
	ExpiresAt  time.Time
	SentAt     time.Time
	Attempts   int
	VerifiedAt *time.Time
}

// OAuthProfile is the identity returned by an external provider.
type OAuthProfile struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
	AvatarURL      string
}

type SendCodeRequest struct {
	Email string `json:"email" example:"john.doe@example.com"`
}

type VerifyCodeRequest struct {
	Email string `json:"email" example:"john.doe@example.com"`
	Code  string `json:"code" example:"123456"`
}

type RegisterRequest struct {
	Username string `json:"username" example:"johndoe"`
	Email    string `json:"email" example:"john.doe@example.com"`
	Password string `json:"password" example:"s3cretpass"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"john.doe@example.com"`
	Password string `json:"password" example:"s3cretpass"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type GoogleTokenRequest struct {
	AccessToken string `json:"access_token"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}
