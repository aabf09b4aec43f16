package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/secondhand-market/app/mailer"
	"github.com/FACorreiaa/secondhand-market/app/observability/metrics"
	"github.com/FACorreiaa/secondhand-market/config"
	"github.com/FACorreiaa/secondhand-market/internal/types"
)

const (
	minUsernameLen = 2
	maxUsernameLen = 30
	minPasswordLen = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordBytes = 72
	codeDigits       = 6
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthService interface {
	SendVerificationCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) error
	Register(ctx context.Context, req types.RegisterRequest) (*types.AuthResult, error)
	Login(ctx context.Context, email, password string) (*types.AuthResult, error)
	RefreshSession(ctx context.Context, refreshToken string) (*types.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	LoginWithGoogleToken(ctx context.Context, accessToken string) (*types.AuthResult, error)
	LoginWithOAuthProfile(ctx context.Context, profile types.OAuthProfile) (*types.AuthResult, error)
	Me(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
}

type AuthServiceImpl struct {
	logger       *slog.Logger
	repo         AuthRepo
	tokens       *TokenManager
	mailer       mailer.Mailer
	google       GoogleVerifier
	cfg          config.VerificationConfig
	now          func() time.Time
	generateCode func() (string, error)
}

func NewAuthService(repo AuthRepo, tokens *TokenManager, m mailer.Mailer, google GoogleVerifier,
	cfg config.VerificationConfig, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:       logger,
		repo:         repo,
		tokens:       tokens,
		mailer:       m,
		google:       google,
		cfg:          cfg,
		now:          time.Now,
		generateCode: randomCode,
	}
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", types.ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email address", types.ErrValidation)
	}
	return email, nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", types.ErrValidation, minPasswordLen)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password is too long", types.ErrValidation)
	}
	return nil
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen || n > maxUsernameLen {
		return fmt.Errorf("%w: username must be %d to %d characters", types.ErrValidation, minUsernameLen, maxUsernameLen)
	}
	if strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: username must not contain spaces", types.ErrValidation)
	}
	return nil
}

func (s *AuthServiceImpl) record(ctx context.Context, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.Get().AuthRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func fail(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

// SendVerificationCode emails a fresh code to an address that is not yet registered.
func (s *AuthServiceImpl) SendVerificationCode(ctx context.Context, rawEmail string) (err error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "SendVerificationCode")
	defer span.End()
	defer func() { s.record(ctx, "send_code", err) }()

	email, err := normalizeEmail(rawEmail)
	if err != nil {
		fail(span, err, "invalid email")
		return err
	}
	l := s.logger.With(slog.String("method", "SendVerificationCode"), slog.String("email", email))

	if _, err = s.repo.GetUserByEmail(ctx, email); err == nil {
		err = fmt.Errorf("email already registered: %w", types.ErrConflict)
		fail(span, err, "email taken")
		return err
	} else if !errors.Is(err, types.ErrNotFound) {
		fail(span, err, "user lookup failed")
		return err
	}

	existing, err := s.repo.GetVerificationCode(ctx, email)
	switch {
	case err == nil:
		if wait := s.cfg.ResendCooldown - s.now().Sub(existing.SentAt); wait > 0 {
			err = fmt.Errorf("%w: retry in %d seconds", types.ErrTooManyRequests, int(wait.Seconds())+1)
			l.WarnContext(ctx, "Verification code requested during cooldown")
			fail(span, err, "cooldown")
			return err
		}
	case !errors.Is(err, types.ErrNotFound):
		fail(span, err, "code lookup failed")
		return err
	}

	code, err := s.generateCode()
	if err != nil {
		fail(span, err, "code generation failed")
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		err = fmt.Errorf("failed to hash code: %w", err)
		fail(span, err, "hash failed")
		return err
	}
	if err = s.repo.UpsertVerificationCode(ctx, email, string(hash), s.now().Add(s.cfg.CodeTTL)); err != nil {
		fail(span, err, "store code failed")
		return err
	}

	if err = s.mailer.SendVerificationCode(ctx, email, code, s.cfg.CodeTTL); err != nil {
		fail(span, err, "mail failed")
		return err
	}
	metrics.Get().VerificationEmailsTotal.Add(ctx, 1)
	l.InfoContext(ctx, "Verification code issued")
	span.SetStatus(codes.Ok, "code sent")
	return nil
}

// VerifyCode checks a code and marks the email as verified.
func (s *AuthServiceImpl) VerifyCode(ctx context.Context, rawEmail, code string) (err error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "VerifyCode")
	defer span.End()
	defer func() { s.record(ctx, "verify_code", err) }()

	email, err := normalizeEmail(rawEmail)
	if err != nil {
		fail(span, err, "invalid email")
		return err
	}
	l := s.logger.With(slog.String("method", "VerifyCode"), slog.String("email", email))

	code = strings.TrimSpace(code)
	if !codePattern.MatchString(code) {
		err = types.ErrInvalidCode
		fail(span, err, "malformed code")
		return err
	}

	vc, err := s.repo.GetVerificationCode(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			err = types.ErrInvalidCode
		}
		fail(span, err, "code lookup failed")
		return err
	}
	if s.now().After(vc.ExpiresAt) {
		err = types.ErrCodeExpired
		fail(span, err, "expired")
		return err
	}

	vc, err = s.repo.ClaimCodeAttempt(ctx, email, s.cfg.MaxAttempts)
	if err != nil {
		if !errors.Is(err, types.ErrTooManyRequests) {
			l.ErrorContext(ctx, "Failed to record attempt", slog.Any("error", err))
		}
		fail(span, err, "attempt not claimed")
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(vc.CodeHash), []byte(code)) != nil {
		err = types.ErrInvalidCode
		fail(span, err, "mismatch")
		return err
	}

	if err = s.repo.MarkCodeVerified(ctx, email); err != nil {
		fail(span, err, "mark verified failed")
		return err
	}
	l.InfoContext(ctx, "Email verified")
	span.SetStatus(codes.Ok, "verified")
	return nil
}

// Register creates an account for an email verified within the configured window.
func (s *AuthServiceImpl) Register(ctx context.Context, req types.RegisterRequest) (res *types.AuthResult, err error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register")
	defer span.End()
	defer func() { s.record(ctx, "register", err) }()

	username := strings.TrimSpace(req.Username)
	if err = validateUsername(username); err != nil {
		fail(span, err, "invalid username")
		return nil, err
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		fail(span, err, "invalid email")
		return nil, err
	}
	if err = validatePassword(req.Password); err != nil {
		fail(span, err, "invalid password")
		return nil, err
	}
	l := s.logger.With(slog.String("method", "Register"), slog.String("email", email))

	vc, err := s.repo.GetVerificationCode(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			err = types.ErrEmailNotVerified
		}
		fail(span, err, "no verification")
		return nil, err
	}
	if vc.VerifiedAt == nil || s.now().Sub(*vc.VerifiedAt) > s.cfg.VerifiedWindow {
		err = types.ErrEmailNotVerified
		fail(span, err, "not verified")
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		err = fmt.Errorf("failed to hash password: %w", err)
		fail(span, err, "hash failed")
		return nil, err
	}
	hashed := string(hash)

	user, err := s.repo.CreateUser(ctx, NewUser{Username: username, Email: email, PasswordHash: &hashed}, true)
	if err != nil {
		fail(span, err, "create failed")
		return nil, err
	}
	l.InfoContext(ctx, "User registered", slog.String("userID", user.ID.String()))

	res, err = s.issueTokens(ctx, user)
	if err != nil {
		fail(span, err, "token issue failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "registered")
	return res, nil
}

// Login authenticates with email and password.
func (s *AuthServiceImpl) Login(ctx context.Context, rawEmail, password string) (res *types.AuthResult, err error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login")
	defer span.End()
	defer func() { s.record(ctx, "login", err) }()

	email := strings.ToLower(strings.TrimSpace(rawEmail))
	l := s.logger.With(slog.String("method", "Login"), slog.String("email", email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			err = types.ErrUnauthenticated
		}
		fail(span, err, "lookup failed")
		return nil, err
	}
	if user.PasswordHash == nil {
		l.WarnContext(ctx, "Password login attempted on OAuth-only account")
		err = types.ErrUnauthenticated
		fail(span, err, "no password")
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)) != nil {
		err = types.ErrUnauthenticated
		fail(span, err, "wrong password")
		return nil, err
	}

	if lastErr := s.repo.UpdateLastLogin(ctx, user.ID); lastErr != nil {
		l.WarnContext(ctx, "Failed to update last login", slog.Any("error", lastErr))
	}
	res, err = s.issueTokens(ctx, user)
	if err != nil {
		fail(span, err, "token issue failed")
		return nil, err
	}
	l.InfoContext(ctx, "User logged in", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "logged in")
	return res, nil
}

// RefreshSession rotates a refresh token. Presenting a revoked token revokes every
// session of its owner.
func (s *AuthServiceImpl) RefreshSession(ctx context.Context, refreshToken string) (res *types.AuthResult, err error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "RefreshSession")
	defer span.End()
	defer func() { s.record(ctx, "refresh", err) }()
	l := s.logger.With(slog.String("method", "RefreshSession"))

	if refreshToken == "" {
		err = fmt.Errorf("refresh token required: %w", types.ErrUnauthenticated)
		fail(span, err, "missing token")
		return nil, err
	}

	stored, err := s.repo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			err = fmt.Errorf("unknown refresh token: %w", types.ErrUnauthenticated)
		}
		fail(span, err, "lookup failed")
		return nil, err
	}
	if stored.RevokedAt != nil {
		l.WarnContext(ctx, "Revoked refresh token reused, revoking all sessions", slog.String("userID", stored.UserID.String()))
		if revErr := s.repo.RevokeAllUserRefreshTokens(ctx, stored.UserID); revErr != nil {
			l.ErrorContext(ctx, "Failed to revoke sessions", slog.Any("error", revErr))
		}
		err = fmt.Errorf("refresh token revoked: %w", types.ErrUnauthenticated)
		fail(span, err, "revoked")
		return nil, err
	}
	if s.now().After(stored.ExpiresAt) {
		err = fmt.Errorf("refresh token expired: %w", types.ErrUnauthenticated)
		fail(span, err, "expired")
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			err = fmt.Errorf("user no longer exists: %w", types.ErrUnauthenticated)
		}
		fail(span, err, "user lookup failed")
		return nil, err
	}

	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		fail(span, err, "sign failed")
		return nil, err
	}
	newToken, expiresAt := s.tokens.NewRefreshToken()
	if err = s.repo.RotateRefreshToken(ctx, refreshToken, user.ID, newToken, expiresAt); err != nil {
		fail(span, err, "rotate failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "refreshed")
	return s.result(user, accessToken, newToken), nil
}

// Logout revokes the refresh token. Unknown or already revoked tokens are ignored.
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) (err error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Logout")
	defer span.End()
	defer func() { s.record(ctx, "logout", err) }()

	if refreshToken == "" {
		return nil
	}
	if err = s.repo.RevokeRefreshToken(ctx, refreshToken); err != nil {
		fail(span, err, "revoke failed")
		return err
	}
	return nil
}

// LoginWithGoogleToken signs in with an access token obtained by a client side Google SDK.
func (s *AuthServiceImpl) LoginWithGoogleToken(ctx context.Context, accessToken string) (*types.AuthResult, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "LoginWithGoogleToken")
	defer span.End()

	profile, err := s.google.FetchProfile(ctx, accessToken)
	if err != nil {
		s.record(ctx, "google", err)
		fail(span, err, "google verification failed")
		return nil, err
	}
	return s.LoginWithOAuthProfile(ctx, *profile)
}

// LoginWithOAuthProfile finds the account by provider id, then by email (linking it),
// and creates one otherwise.
func (s *AuthServiceImpl) LoginWithOAuthProfile(ctx context.Context, p types.OAuthProfile) (res *types.AuthResult, err error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "LoginWithOAuthProfile", trace.WithAttributes(
		attribute.String("oauth.provider", p.Provider),
	))
	defer span.End()
	defer func() { s.record(ctx, "google", err) }()
	l := s.logger.With(slog.String("method", "LoginWithOAuthProfile"), slog.String("provider", p.Provider))

	if p.ProviderUserID == "" {
		err = fmt.Errorf("%w: provider user id is required", types.ErrValidation)
		fail(span, err, "missing subject")
		return nil, err
	}

	user, err := s.repo.GetUserByGoogleID(ctx, p.ProviderUserID)
	switch {
	case err == nil:
	case errors.Is(err, types.ErrNotFound):
		user, err = s.linkOrCreate(ctx, p)
		if err != nil {
			fail(span, err, "link or create failed")
			return nil, err
		}
	default:
		fail(span, err, "lookup failed")
		return nil, err
	}

	if lastErr := s.repo.UpdateLastLogin(ctx, user.ID); lastErr != nil {
		l.WarnContext(ctx, "Failed to update last login", slog.Any("error", lastErr))
	}
	res, err = s.issueTokens(ctx, user)
	if err != nil {
		fail(span, err, "token issue failed")
		return nil, err
	}
	l.InfoContext(ctx, "OAuth login succeeded", slog.String("userID", user.ID.String()))
	span.SetStatus(codes.Ok, "logged in")
	return res, nil
}

func (s *AuthServiceImpl) linkOrCreate(ctx context.Context, p types.OAuthProfile) (*types.UserAuth, error) {
	if strings.TrimSpace(p.Email) == "" {
		return nil, fmt.Errorf("%w: provider did not return an email", types.ErrValidation)
	}
	email, err := normalizeEmail(p.Email)
	if err != nil {
		return nil, err
	}
	var avatar *string
	if p.AvatarURL != "" {
		avatar = &p.AvatarURL
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.GoogleID != nil && *existing.GoogleID != p.ProviderUserID {
			return nil, fmt.Errorf("email is linked to another google account: %w", types.ErrConflict)
		}
		if err := s.repo.LinkGoogleID(ctx, existing.ID, p.ProviderUserID, avatar); err != nil {
			return nil, err
		}
		existing.GoogleID = &p.ProviderUserID
		return existing, nil
	case !errors.Is(err, types.ErrNotFound):
		return nil, err
	}

	username, err := s.uniqueUsername(ctx, p.Name, email)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateUser(ctx, NewUser{
		Username:  username,
		Email:     email,
		GoogleID:  &p.ProviderUserID,
		AvatarURL: avatar,
	}, false)
}

// uniqueUsername derives a username from the display name or the email local part and
// appends a numeric suffix until it is free.
func (s *AuthServiceImpl) uniqueUsername(ctx context.Context, name, email string) (string, error) {
	base := usernameBase(name)
	if utf8.RuneCountInString(base) < minUsernameLen {
		base = usernameBase(strings.SplitN(email, "@", 2)[0])
	}
	if utf8.RuneCountInString(base) < minUsernameLen {
		base = "user"
	}

	for i := 0; i < 50; i++ {
		candidate := base
		if i > 0 {
			candidate = base + strconv.Itoa(i)
		}
		exists, err := s.repo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return base + strings.ReplaceAll(uuid.NewString(), "-", "")[:6], nil
}

func usernameBase(raw string) string {
	var b strings.Builder
	n := 0
	for _, r := range strings.ToLower(raw) {
		if n == maxUsernameLen-6 {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' {
			b.WriteRune(r)
			n++
		}
	}
	return b.String()
}

// Me returns the authenticated user's profile.
func (s *AuthServiceImpl) Me(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Me", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		fail(span, err, "lookup failed")
		return nil, err
	}
	return toProfile(user), nil
}

// ChangePassword replaces the password and signs out every session. Accounts created
// through Google may set a first password without providing an old one.
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) (err error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "ChangePassword", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()
	defer func() { s.record(ctx, "change_password", err) }()
	l := s.logger.With(slog.String("method", "ChangePassword"), slog.String("userID", userID.String()))

	if err = validatePassword(newPassword); err != nil {
		fail(span, err, "invalid password")
		return err
	}
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		fail(span, err, "lookup failed")
		return err
	}
	if user.PasswordHash != nil {
		if bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(oldPassword)) != nil {
			err = fmt.Errorf("old password does not match: %w", types.ErrUnauthenticated)
			fail(span, err, "wrong password")
			return err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		err = fmt.Errorf("failed to hash password: %w", err)
		fail(span, err, "hash failed")
		return err
	}
	if err = s.repo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		fail(span, err, "update failed")
		return err
	}
	if err = s.repo.RevokeAllUserRefreshTokens(ctx, userID); err != nil {
		fail(span, err, "revoke failed")
		return err
	}
	l.InfoContext(ctx, "Password changed, sessions revoked")
	span.SetStatus(codes.Ok, "password changed")
	return nil
}

func (s *AuthServiceImpl) issueTokens(ctx context.Context, user *types.UserAuth) (*types.AuthResult, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refreshToken, expiresAt := s.tokens.NewRefreshToken()
	if err := s.repo.StoreRefreshToken(ctx, user.ID, refreshToken, expiresAt); err != nil {
		return nil, err
	}
	return s.result(user, accessToken, refreshToken), nil
}

func (s *AuthServiceImpl) result(user *types.UserAuth, accessToken, refreshToken string) *types.AuthResult {
	return &types.AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
		User:         toProfile(user),
	}
}
