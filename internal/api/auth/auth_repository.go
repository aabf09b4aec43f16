package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
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

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// NewUser is the row inserted by registration and OAuth sign-up.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash *string
	GoogleID     *string
	AvatarURL    *string
}

type AuthRepo interface {
	GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserAuth, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*types.UserAuth, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	// CreateUser inserts a verified user. When consumeCode is set the email's
	// verification code row is deleted in the same transaction.
	CreateUser(ctx context.Context, u NewUser, consumeCode bool) (*types.UserAuth, error)
	LinkGoogleID(ctx context.Context, userID uuid.UUID, googleID string, avatarURL *string) error
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error

	StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, token string) (*types.RefreshToken, error)
	RotateRefreshToken(ctx context.Context, oldToken string, userID uuid.UUID, newToken string, expiresAt time.Time) error
	RevokeRefreshToken(ctx context.Context, token string) error
	RevokeAllUserRefreshTokens(ctx context.Context, userID uuid.UUID) error

	GetVerificationCode(ctx context.Context, email string) (*types.VerificationCode, error)
	UpsertVerificationCode(ctx context.Context, email, codeHash string, expiresAt time.Time) error
	// ClaimCodeAttempt spends one attempt and returns the code it was spent on.
	ClaimCodeAttempt(ctx context.Context, email string, maxAttempts int) (*types.VerificationCode, error)
	MarkCodeVerified(ctx context.Context, email string) error
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	db     database.Querier
}

func NewPostgresAuthRepo(db database.Querier, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		db:     db,
	}
}

const userColumns = `id, username, email, password_hash, google_id, avatar_url, role, email_verified_at, created_at, updated_at`

func scanUser(row pgx.Row) (*types.UserAuth, error) {
	var u types.UserAuth
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.GoogleID, &u.AvatarURL,
		&u.Role, &u.EmailVerifiedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserAuth, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (r *PostgresAuthRepo) GetUserByGoogleID(ctx context.Context, googleID string) (*types.UserAuth, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID))
	if err != nil {
		return nil, fmt.Errorf("get user by google id: %w", err)
	}
	return u, nil
}

func (r *PostgresAuthRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(username) = lower($1))`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return exists, nil
}

func (r *PostgresAuthRepo) CreateUser(ctx context.Context, u NewUser, consumeCode bool) (*types.UserAuth, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "CreateUser", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()
	l := r.logger.With(slog.String("method", "CreateUser"), slog.String("email", u.Email))
	start := time.Now()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	created, err := scanUser(tx.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, google_id, avatar_url, email_verified_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING `+userColumns,
		u.Username, u.Email, u.PasswordHash, u.GoogleID, u.AvatarURL))
	database.ObserveQuery(ctx, "users", "INSERT", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		if database.IsUniqueViolation(err) {
			l.WarnContext(ctx, "Username or email already taken")
			return nil, fmt.Errorf("username or email already registered: %w", types.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	if consumeCode {
		if _, err := tx.Exec(ctx, `DELETE FROM email_verification_codes WHERE email = $1`, u.Email); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to consume verification code: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return nil, fmt.Errorf("failed to commit user creation: %w", err)
	}

	l.InfoContext(ctx, "User created", slog.String("userID", created.ID.String()))
	span.SetStatus(codes.Ok, "user created")
	return created, nil
}

func (r *PostgresAuthRepo) LinkGoogleID(ctx context.Context, userID uuid.UUID, googleID string, avatarURL *string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET google_id = $1, avatar_url = COALESCE(avatar_url, $2),
		    email_verified_at = COALESCE(email_verified_at, NOW()), updated_at = NOW()
		WHERE id = $3`, googleID, avatarURL, userID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("google account already linked: %w", types.ErrConflict)
		}
		return fmt.Errorf("failed to link google account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("link google account: %w", types.ErrNotFound)
	}
	return nil
}

func (r *PostgresAuthRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update password: %w", types.ErrNotFound)
	}
	return nil
}

func (r *PostgresAuthRepo) StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES ($1, $2, $3)`,
		userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) GetRefreshToken(ctx context.Context, token string) (*types.RefreshToken, error) {
	var rt types.RefreshToken
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, token, expires_at, revoked_at FROM refresh_tokens WHERE token = $1`,
		token).Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.ExpiresAt, &rt.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("refresh token: %w", types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load refresh token: %w", err)
	}
	return &rt, nil
}

// RotateRefreshToken revokes oldToken and stores newToken atomically. It fails with
// ErrUnauthenticated when oldToken was already revoked by a concurrent request.
func (r *PostgresAuthRepo) RotateRefreshToken(ctx context.Context, oldToken string, userID uuid.UUID, newToken string, expiresAt time.Time) error {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "RotateRefreshToken", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.sql.table", "refresh_tokens"),
	))
	defer span.End()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE token = $1 AND revoked_at IS NULL`, oldToken)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "token already revoked")
		return fmt.Errorf("refresh token already used: %w", types.ErrUnauthenticated)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO refresh_tokens (user_id, token, expires_at) VALUES ($1, $2, $3)`,
		userID, newToken, expiresAt); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit token rotation: %w", err)
	}
	span.SetStatus(codes.Ok, "rotated")
	return nil
}

func (r *PostgresAuthRepo) RevokeRefreshToken(ctx context.Context, token string) error {
	if _, err := r.db.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE token = $1 AND revoked_at IS NULL`, token); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID); err != nil {
		return fmt.Errorf("failed to revoke user refresh tokens: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) GetVerificationCode(ctx context.Context, email string) (*types.VerificationCode, error) {
	var vc types.VerificationCode
	err := r.db.QueryRow(ctx, `
		SELECT email, code_hash, expires_at, sent_at, attempts, verified_at
		FROM email_verification_codes WHERE email = $1`, email).
		Scan(&vc.Email, &vc.CodeHash, &vc.ExpiresAt, &vc.SentAt, &vc.Attempts, &vc.VerifiedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("verification code: %w", types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load verification code: %w", err)
	}
	return &vc, nil
}

func (r *PostgresAuthRepo) UpsertVerificationCode(ctx context.Context, email, codeHash string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO email_verification_codes (email, code_hash, expires_at, sent_at, attempts, verified_at)
		VALUES ($1, $2, $3, NOW(), 0, NULL)
		ON CONFLICT (email) DO UPDATE
		SET code_hash = EXCLUDED.code_hash, expires_at = EXCLUDED.expires_at,
		    sent_at = NOW(), attempts = 0, verified_at = NULL`,
		email, codeHash, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}
	return nil
}

// ClaimCodeAttempt counts the attempt before the code is compared, so
// concurrent guesses cannot overrun maxAttempts.
func (r *PostgresAuthRepo) ClaimCodeAttempt(ctx context.Context, email string, maxAttempts int) (*types.VerificationCode, error) {
	var vc types.VerificationCode
	err := r.db.QueryRow(ctx, `
		UPDATE email_verification_codes SET attempts = attempts + 1
		WHERE email = $1 AND attempts < $2
		RETURNING email, code_hash, expires_at, sent_at, attempts, verified_at`, email, maxAttempts).
		Scan(&vc.Email, &vc.CodeHash, &vc.ExpiresAt, &vc.SentAt, &vc.Attempts, &vc.VerifiedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: too many attempts, request a new code", types.ErrTooManyRequests)
		}
		return nil, fmt.Errorf("failed to record verification attempt: %w", err)
	}
	return &vc, nil
}

func (r *PostgresAuthRepo) MarkCodeVerified(ctx context.Context, email string) error {
	if _, err := r.db.Exec(ctx,
		`UPDATE email_verification_codes SET verified_at = NOW() WHERE email = $1`, email); err != nil {
		return fmt.Errorf("failed to mark code verified: %w", err)
	}
	return nil
}
