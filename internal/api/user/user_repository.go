package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/secondhand-market/app/db"
	"github.com/FACorreiaa/secondhand-market/internal/types"
)

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo defines the contract for user profile persistence.
type UserRepo interface {
	// GetUserByID retrieves a user's full profile by their unique ID.
	// Returns types.ErrNotFound if the user doesn't exist.
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
	// UpdateProfile updates mutable fields on a user's profile.
	// Nil fields in params are left untouched.
	UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) error
}

type PostgresUserRepo struct {
	logger *slog.Logger
	db     database.Querier
}

func NewPostgresUserRepo(db database.Querier, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		db:     db,
	}
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	var user types.UserProfile
	start := time.Now()
	query := `
		SELECT id, username, email, avatar_url, bio, location, role,
		       password_hash IS NOT NULL, google_id IS NOT NULL,
		       email_verified_at, last_login_at, created_at, updated_at
		FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.AvatarURL,
		&user.Bio,
		&user.Location,
		&user.Role,
		&user.HasPassword,
		&user.GoogleLinked,
		&user.EmailVerifiedAt,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt)
	database.ObserveQuery(ctx, "users", "SELECT", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateProfile", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "UpdateProfile"), slog.String("userID", userID.String()))

	var setClauses []string
	var args []interface{}
	argID := 1

	if params.Username != nil {
		setClauses = append(setClauses, fmt.Sprintf("username = $%d", argID))
		args = append(args, *params.Username)
		argID++
		span.SetAttributes(attribute.Bool("update.username", true))
	}
	if params.AvatarURL != nil {
		setClauses = append(setClauses, fmt.Sprintf("avatar_url = $%d", argID))
		args = append(args, nullIfEmpty(*params.AvatarURL))
		argID++
		span.SetAttributes(attribute.Bool("update.avatar_url", true))
	}
	if params.Bio != nil {
		setClauses = append(setClauses, fmt.Sprintf("bio = $%d", argID))
		args = append(args, nullIfEmpty(*params.Bio))
		argID++
		span.SetAttributes(attribute.Bool("update.bio", true))
	}
	if params.Location != nil {
		setClauses = append(setClauses, fmt.Sprintf("location = $%d", argID))
		args = append(args, nullIfEmpty(*params.Location))
		argID++
		span.SetAttributes(attribute.Bool("update.location", true))
	}

	if len(setClauses) == 0 {
		l.DebugContext(ctx, "UpdateProfile called with no fields to update")
		return nil
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, userID)

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d",
		strings.Join(setClauses, ", "),
		argID,
	)

	start := time.Now()
	tag, err := r.db.Exec(ctx, query, args...)
	database.ObserveQuery(ctx, "users", "UPDATE", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("username already taken: %w", types.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to execute update profile query", slog.Any("error", err))
		return fmt.Errorf("database error updating profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found for update: %w", types.ErrNotFound)
	}

	l.InfoContext(ctx, "User profile updated")
	return nil
}

// nullIfEmpty lets clients clear optional columns by sending "".
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
