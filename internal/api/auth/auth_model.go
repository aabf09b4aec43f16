package auth

import (
	"net/http"
	"time"

	"github.com/FACorreiaa/secondhand-market/internal/types"
)

type contextKey string

const (
	UserIDKey   contextKey = "userID"
	UserRoleKey contextKey = "userRole"
)

// RefreshCookieName holds the refresh token for browser clients.
const RefreshCookieName = "refresh_token"

func setRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/api/v1/auth",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		Expires:  time.Now().Add(ttl),
	})
}

func clearRefreshCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/api/v1/auth",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   -1,
	})
}

func toProfile(u *types.UserAuth) *types.UserProfile {
	return &types.UserProfile{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		AvatarURL:       u.AvatarURL,
		Role:            u.Role,
		HasPassword:     u.PasswordHash != nil,
		GoogleLinked:    u.GoogleID != nil,
		EmailVerifiedAt: u.EmailVerifiedAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
