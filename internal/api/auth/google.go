package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"

	"github.com/FACorreiaa/secondhand-market/app/observability/metrics"
	"github.com/FACorreiaa/secondhand-market/config"
	"github.com/FACorreiaa/secondhand-market/internal/types"
)

const providerGoogle = "google"

// GoogleVerifier resolves a Google access token to the account behind it.
type GoogleVerifier interface {
	FetchProfile(ctx context.Context, accessToken string) (*types.OAuthProfile, error)
}

var _ GoogleVerifier = (*GoogleTokenVerifier)(nil)

// GoogleTokenVerifier calls the Google userinfo endpoint with a client supplied token.
type GoogleTokenVerifier struct {
	userInfoURL string
	logger      *slog.Logger
	breaker     *gobreaker.CircuitBreaker
	httpClient  *http.Client
}

func NewGoogleTokenVerifier(userInfoURL string, logger *slog.Logger) *GoogleTokenVerifier {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "google-userinfo",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A rejected token is the caller's fault, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, types.ErrUnauthenticated)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
	return &GoogleTokenVerifier{
		userInfoURL: userInfoURL,
		logger:      logger,
		breaker:     breaker,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (v *GoogleTokenVerifier) FetchProfile(ctx context.Context, accessToken string) (*types.OAuthProfile, error) {
	l := v.logger.With(slog.String("method", "FetchProfile"))
	if accessToken == "" {
		return nil, fmt.Errorf("%w: access token is required", types.ErrValidation)
	}

	res, err := v.breaker.Execute(func() (interface{}, error) {
		return v.fetch(ctx, accessToken)
	})
	if err != nil {
		if !errors.Is(err, types.ErrUnauthenticated) {
			l.ErrorContext(ctx, "Google userinfo request failed", slog.Any("error", err))
			metrics.Get().OutboundCallFailuresTotal.Add(ctx, 1)
		}
		return nil, err
	}
	info := res.(*googleUserInfo)

	if info.Sub == "" {
		return nil, fmt.Errorf("google userinfo missing subject: %w", types.ErrUnauthenticated)
	}
	if info.Email != "" && !info.EmailVerified {
		return nil, fmt.Errorf("%w: google email is not verified", types.ErrValidation)
	}
	return &types.OAuthProfile{
		Provider:       providerGoogle,
		ProviderUserID: info.Sub,
		Email:          info.Email,
		Name:           info.Name,
		AvatarURL:      info.Picture,
	}, nil
}

func (v *GoogleTokenVerifier) fetch(ctx context.Context, accessToken string) (*googleUserInfo, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("google rejected access token: %w", types.ErrUnauthenticated)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, body)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &info, nil
}

// SetupGoogleProvider registers the goth Google provider and the gothic session store.
// It reports false when no client id is configured.
func SetupGoogleProvider(cfg config.GoogleOAuthConfig, secureCookies bool) bool {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return false
	}
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.MaxAge(int((10 * time.Minute).Seconds()))
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secureCookies
	store.Options.SameSite = http.SameSiteLaxMode
	gothic.Store = store

	goth.UseProviders(google.New(cfg.ClientID, cfg.ClientSecret, cfg.CallbackURL, "openid", "email", "profile"))
	return true
}

// profileFromGothUser drops the email unless Google marked it verified, so an
// unverified address can never be linked to an existing account.
func profileFromGothUser(u goth.User) types.OAuthProfile {
	name := u.Name
	if name == "" {
		name = u.NickName
	}
	email := u.Email
	if !emailVerified(u.RawData) {
		email = ""
	}
	return types.OAuthProfile{
		Provider:       u.Provider,
		ProviderUserID: u.UserID,
		Email:          email,
		Name:           name,
		AvatarURL:      u.AvatarURL,
	}
}

// emailVerified reads the flag from the userinfo payload: v2 sends
// verified_email, the OpenID endpoint sends email_verified.
func emailVerified(raw map[string]interface{}) bool {
	for _, key := range []string{"email_verified", "verified_email"} {
		switch v := raw[key].(type) {
		case bool:
			return v
		case string:
			return v == "true"
		}
	}
	return false
}
