package user

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/secondhand-market/internal/types"
)

const (
	minUsernameLen = 2
	maxUsernameLen = 30
	maxBioLen      = 500
	maxLocationLen = 100
)

// Ensure implementation satisfies the interface
var _ UserService = (*UserServiceImpl)(nil)

// UserService defines the business logic contract for user operations.
type UserService interface {
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
	UpdateUserProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.UserProfile, error)
	// GetPublicProfile returns what other users may see. It never includes the email.
	GetPublicProfile(ctx context.Context, userID uuid.UUID) (*types.PublicProfile, error)
}

// UserServiceImpl provides the implementation for UserService.
type UserServiceImpl struct {
	logger *slog.Logger
	repo   UserRepo
}

// NewUserService creates a new user service instance.
func NewUserService(repo UserRepo, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

// GetUserProfile retrieves a user's profile by ID.
func (s *UserServiceImpl) GetUserProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "GetUserProfile", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	profile, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch user profile")
		return nil, fmt.Errorf("error fetching user profile: %w", err)
	}
	return profile, nil
}

// UpdateUserProfile validates the changed fields, applies them and returns the fresh profile.
func (s *UserServiceImpl) UpdateUserProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.UserProfile, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateUserProfile", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "UpdateUserProfile"), slog.String("userID", userID.String()))

	clean, err := normalizeProfileParams(params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid profile")
		return nil, err
	}

	if err := s.repo.UpdateProfile(ctx, userID, clean); err != nil {
		l.WarnContext(ctx, "Failed to update user profile", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, fmt.Errorf("error updating user profile: %w", err)
	}

	profile, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error fetching updated profile: %w", err)
	}
	return profile, nil
}

func (s *UserServiceImpl) GetPublicProfile(ctx context.Context, userID uuid.UUID) (*types.PublicProfile, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "GetPublicProfile")
	defer span.End()

	profile, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("error fetching public profile: %w", err)
	}
	return &types.PublicProfile{
		ID:        profile.ID,
		Username:  profile.Username,
		AvatarURL: profile.AvatarURL,
		Bio:       profile.Bio,
		Location:  profile.Location,
		CreatedAt: profile.CreatedAt,
	}, nil
}

func normalizeProfileParams(p types.UpdateProfileParams) (types.UpdateProfileParams, error) {
	var out types.UpdateProfileParams
	if p.Username != nil {
		username := strings.TrimSpace(*p.Username)
		n := utf8.RuneCountInString(username)
		if n < minUsernameLen || n > maxUsernameLen || strings.IndexFunc(username, unicode.IsSpace) >= 0 {
			return out, fmt.Errorf("username must be %d to %d characters without spaces: %w",
				minUsernameLen, maxUsernameLen, types.ErrValidation)
		}
		out.Username = &username
	}
	if p.AvatarURL != nil {
		avatar := strings.TrimSpace(*p.AvatarURL)
		if avatar != "" {
			u, err := url.Parse(avatar)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return out, fmt.Errorf("avatar_url must be an http(s) URL: %w", types.ErrValidation)
			}
		}
		out.AvatarURL = &avatar
	}
	if p.Bio != nil {
		bio := strings.TrimSpace(*p.Bio)
		if utf8.RuneCountInString(bio) > maxBioLen {
			return out, fmt.Errorf("bio longer than %d characters: %w", maxBioLen, types.ErrValidation)
		}
		out.Bio = &bio
	}
	if p.Location != nil {
		location := strings.TrimSpace(*p.Location)
		if utf8.RuneCountInString(location) > maxLocationLen {
			return out, fmt.Errorf("location longer than %d characters: %w", maxLocationLen, types.ErrValidation)
		}
		out.Location = &location
	}
	return out, nil
}
