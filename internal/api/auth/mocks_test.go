package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/FACorreiaa/secondhand-market/internal/types"
)

type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) userResult(args mock.Arguments) (*types.UserAuth, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserAuth), args.Error(1)
}

func (m *MockAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error) {
	return m.userResult(m.Called(ctx, email))
}

func (m *MockAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.UserAuth, error) {
	return m.userResult(m.Called(ctx, userID))
}

func (m *MockAuthRepo) GetUserByGoogleID(ctx context.Context, googleID string) (*types.UserAuth, error) {
	return m.userResult(m.Called(ctx, googleID))
}

func (m *MockAuthRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthRepo) CreateUser(ctx context.Context, u NewUser, consumeCode bool) (*types.UserAuth, error) {
	return m.userResult(m.Called(ctx, u, consumeCode))
}

func (m *MockAuthRepo) LinkGoogleID(ctx context.Context, userID uuid.UUID, googleID string, avatarURL *string) error {
	return m.Called(ctx, userID, googleID, avatarURL).Error(0)
}

func (m *MockAuthRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockAuthRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	return m.Called(ctx, userID, passwordHash).Error(0)
}

func (m *MockAuthRepo) StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	return m.Called(ctx, userID, token, expiresAt).Error(0)
}

func (m *MockAuthRepo) GetRefreshToken(ctx context.Context, token string) (*types.RefreshToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RefreshToken), args.Error(1)
}

func (m *MockAuthRepo) RotateRefreshToken(ctx context.Context, oldToken string, userID uuid.UUID, newToken string, expiresAt time.Time) error {
	return m.Called(ctx, oldToken, userID, newToken, expiresAt).Error(0)
}

func (m *MockAuthRepo) RevokeRefreshToken(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockAuthRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockAuthRepo) GetVerificationCode(ctx context.Context, email string) (*types.VerificationCode, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.VerificationCode), args.Error(1)
}

func (m *MockAuthRepo) UpsertVerificationCode(ctx context.Context, email, codeHash string, expiresAt time.Time) error {
	return m.Called(ctx, email, codeHash, expiresAt).Error(0)
}

func (m *MockAuthRepo) ClaimCodeAttempt(ctx context.Context, email string, maxAttempts int) (*types.VerificationCode, error) {
	args := m.Called(ctx, email, maxAttempts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.VerificationCode), args.Error(1)
}

func (m *MockAuthRepo) MarkCodeVerified(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendVerificationCode(ctx context.Context, to, code string, ttl time.Duration) error {
	return m.Called(ctx, to, code, ttl).Error(0)
}

type MockGoogleVerifier struct {
	mock.Mock
}

func (m *MockGoogleVerifier) FetchProfile(ctx context.Context, accessToken string) (*types.OAuthProfile, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.OAuthProfile), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) authResult(args mock.Arguments) (*types.AuthResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AuthResult), args.Error(1)
}

func (m *MockAuthService) SendVerificationCode(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockAuthService) VerifyCode(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

func (m *MockAuthService) Register(ctx context.Context, req types.RegisterRequest) (*types.AuthResult, error) {
	return m.authResult(m.Called(ctx, req))
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*types.AuthResult, error) {
	return m.authResult(m.Called(ctx, email, password))
}

func (m *MockAuthService) RefreshSession(ctx context.Context, refreshToken string) (*types.AuthResult, error) {
	return m.authResult(m.Called(ctx, refreshToken))
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

func (m *MockAuthService) LoginWithGoogleToken(ctx context.Context, accessToken string) (*types.AuthResult, error) {
	return m.authResult(m.Called(ctx, accessToken))
}

func (m *MockAuthService) LoginWithOAuthProfile(ctx context.Context, profile types.OAuthProfile) (*types.AuthResult, error) {
	return m.authResult(m.Called(ctx, profile))
}

func (m *MockAuthService) Me(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.UserProfile), args.Error(1)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	return m.Called(ctx, userID, oldPassword, newPassword).Error(0)
}
