package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"

	"github.com/FACorreiaa/secondhand-market/internal/api"
	"github.com/FACorreiaa/secondhand-market/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	SendVerificationCode(w http.ResponseWriter, r *http.Request)
	VerifyCode(w http.ResponseWriter, r *http.Request)
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	RefreshSession(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	GoogleTokenLogin(w http.ResponseWriter, r *http.Request)
	GoogleLogin(w http.ResponseWriter, r *http.Request)
	GoogleCallback(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
	ChangePassword(w http.ResponseWriter, r *http.Request)
}

// HandlerOptions configures cookie and Google redirect behaviour.
type HandlerOptions struct {
	SecureCookies      bool
	RefreshTTL         time.Duration
	GoogleEnabled      bool
	SuccessRedirectURL string
}

type HandlerImpl struct {
	service AuthService
	logger  *slog.Logger
	opts    HandlerOptions

	beginAuth    func(w http.ResponseWriter, r *http.Request)
	completeAuth func(w http.ResponseWriter, r *http.Request) (goth.User, error)
}

func NewHandlerImpl(service AuthService, logger *slog.Logger, opts HandlerOptions) *HandlerImpl {
	return &HandlerImpl{
		service:      service,
		logger:       logger,
		opts:         opts,
		beginAuth:    gothic.BeginAuthHandler,
		completeAuth: gothic.CompleteUserAuth,
	}
}

func (h *HandlerImpl) writeSession(w http.ResponseWriter, r *http.Request, status int, res *types.AuthResult) {
	setRefreshCookie(w, res.RefreshToken, h.opts.RefreshTTL, h.opts.SecureCookies)
	w.Header().Set("Cache-Control", "no-store")
	api.WriteJSONResponse(w, r, status, res)
}

// SendVerificationCode godoc
// @Summary      Send email verification code
// @Description  Emails a 6-digit code to an address that is not registered yet.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body types.SendCodeRequest true "Email"
// @Success      202 {object} types.Response
// @Failure      400 {object} types.Response "Invalid email"
// @Failure      409 {object} types.Response "Email already registered"
// @Failure      429 {object} types.Response "Resend cooldown"
// @Router       /auth/send-code [post]
func (h *HandlerImpl) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req types.SendCodeRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.SendVerificationCode(r.Context(), req.Email); err != nil {
		h.logger.WarnContext(r.Context(), "Send verification code failed", slog.Any("error", err))
		api.ServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusAccepted, types.Response{Success: true, Message: "Verification code sent"})
}

// VerifyCode godoc
// @Summary      Verify email code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body types.VerifyCodeRequest true "Email and code"
// @Success      200 {object} types.Response
// @Failure      400 {object} types.Response "Invalid or expired code"
// @Failure      429 {object} types.Response "Too many attempts"
// @Router       /auth/verify-code [post]
func (h *HandlerImpl) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req types.VerifyCodeRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.VerifyCode(r.Context(), req.Email, req.Code); err != nil {
		api.ServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "Email verified"})
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates an account for an email verified with /auth/verify-code and opens a session.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body types.RegisterRequest true "Registration data"
// @Success      201 {object} types.AuthResult
// @Failure      400 {object} types.Response "Validation error"
// @Failure      403 {object} types.Response "Email not verified"
// @Failure      409 {object} types.Response "Username or email taken"
// @Router       /auth/register [post]
func (h *HandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.service.Register(r.Context(), req)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	h.writeSession(w, r, http.StatusCreated, res)
}

// Login godoc
// @Summary      Log in with email and password
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body types.LoginRequest true "Credentials"
// @Success      200 {object} types.AuthResult
// @Failure      401 {object} types.Response "Invalid credentials"
// @Router       /auth/login [post]
func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Email and password are required")
		return
	}
	res, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	h.writeSession(w, r, http.StatusOK, res)
}

// refreshTokenFromRequest reads the token from the JSON body, falling back to the cookie.
func (h *HandlerImpl) refreshTokenFromRequest(w http.ResponseWriter, r *http.Request) (string, error) {
	if r.ContentLength != 0 {
		var req types.RefreshRequest
		if err := api.DecodeJSONBody(w, r, &req); err != nil {
			return "", err
		}
		if req.RefreshToken != "" {
			return req.RefreshToken, nil
		}
	}
	if c, err := r.Cookie(RefreshCookieName); err == nil {
		return c.Value, nil
	}
	return "", nil
}

// RefreshSession godoc
// @Summary      Rotate the refresh token
// @Description  Accepts the refresh token in the body or the refresh_token cookie and returns a new pair.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body types.RefreshRequest false "Refresh token"
// @Success      200 {object} types.AuthResult
// @Failure      401 {object} types.Response "Invalid refresh token"
// @Router       /auth/refresh [post]
func (h *HandlerImpl) RefreshSession(w http.ResponseWriter, r *http.Request) {
	token, err := h.refreshTokenFromRequest(w, r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.service.RefreshSession(r.Context(), token)
	if err != nil {
		if errors.Is(err, types.ErrUnauthenticated) {
			clearRefreshCookie(w, h.opts.SecureCookies)
		}
		api.ServiceError(w, r, err)
		return
	}
	h.writeSession(w, r, http.StatusOK, res)
}

// Logout godoc
// @Summary      Log out
// @Description  Revokes the refresh token. Always succeeds for unknown tokens.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body types.RefreshRequest false "Refresh token"
// @Success      200 {object} types.Response
// @Router       /auth/logout [post]
func (h *HandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := h.refreshTokenFromRequest(w, r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.Logout(r.Context(), token); err != nil {
		api.ServiceError(w, r, err)
		return
	}
	clearRefreshCookie(w, h.opts.SecureCookies)
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "Logged out successfully"})
}

// GoogleTokenLogin godoc
// @Summary      Sign in with a Google access token
// @Description  For mobile and web clients that obtained a Google access token through a Google SDK.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body types.GoogleTokenRequest true "Google access token"
// @Success      200 {object} types.AuthResult
// @Failure      401 {object} types.Response "Token rejected by Google"
// @Router       /auth/google [post]
func (h *HandlerImpl) GoogleTokenLogin(w http.ResponseWriter, r *http.Request) {
	var req types.GoogleTokenRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.service.LoginWithGoogleToken(r.Context(), req.AccessToken)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	h.writeSession(w, r, http.StatusOK, res)
}

// GoogleLogin godoc
// @Summary      Start the Google redirect flow
// @Tags         Auth
// @Success      307
// @Failure      503 {object} types.Response "Google login not configured"
// @Router       /auth/google/login [get]
func (h *HandlerImpl) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.opts.GoogleEnabled {
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, "Google login is not configured")
		return
	}
	h.beginAuth(w, gothic.GetContextWithProvider(r, providerGoogle))
}

// GoogleCallback godoc
// @Summary      Complete the Google redirect flow
// @Description  Redirects to the configured success URL with the tokens in the fragment, or returns them as JSON.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} types.AuthResult
// @Success      302
// @Failure      401 {object} types.Response "Google authentication failed"
// @Router       /auth/google/callback [get]
func (h *HandlerImpl) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GoogleCallback"))
	if !h.opts.GoogleEnabled {
		api.ErrorResponse(w, r, http.StatusServiceUnavailable, "Google login is not configured")
		return
	}

	gothUser, err := h.completeAuth(w, gothic.GetContextWithProvider(r, providerGoogle))
	if err != nil {
		l.WarnContext(ctx, "Google authentication failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Google authentication failed")
		return
	}

	res, err := h.service.LoginWithOAuthProfile(ctx, profileFromGothUser(gothUser))
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}

	if h.opts.SuccessRedirectURL == "" {
		h.writeSession(w, r, http.StatusOK, res)
		return
	}
	fragment := url.Values{}
	fragment.Set("access_token", res.AccessToken)
	fragment.Set("refresh_token", res.RefreshToken)
	fragment.Set("token_type", res.TokenType)
	fragment.Set("expires_in", strconv.FormatInt(res.ExpiresIn, 10))
	setRefreshCookie(w, res.RefreshToken, h.opts.RefreshTTL, h.opts.SecureCookies)
	http.Redirect(w, r, h.opts.SuccessRedirectURL+"#"+fragment.Encode(), http.StatusFound)
}

// Me godoc
// @Summary      Current user
// @Tags         Auth
// @Produce      json
// @Success      200 {object} types.UserProfile
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /auth/me [get]
func (h *HandlerImpl) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	profile, err := h.service.Me(r.Context(), userID)
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

// ChangePassword godoc
// @Summary      Change password
// @Description  Requires the old password unless the account has none yet. Revokes all refresh tokens.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        request body types.ChangePasswordRequest true "Passwords"
// @Success      200 {object} types.Response
// @Failure      400 {object} types.Response
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /auth/password [put]
func (h *HandlerImpl) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		api.ServiceError(w, r, err)
		return
	}
	var req types.ChangePasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		api.ServiceError(w, r, err)
		return
	}
	clearRefreshCookie(w, h.opts.SecureCookies)
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "Password updated, please log in again"})
}
