package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NileshSanyal/supermart-backend/internal/model"
	"github.com/NileshSanyal/supermart-backend/internal/service"
	"github.com/NileshSanyal/supermart-backend/internal/token"
)

const (
	googleStateCookie = "supermart_oauth_state"
	googleStateMaxAge = 600

	msgInvalidCredentials   = "Invalid email and/or password"
	msgMissingRefreshToken  = "Missing required field refreshToken"
	msgInvalidRefreshToken  = "Invalid refreshToken"
	msgTooManyAttempts      = "Too many login attempts"
	msgInvalidEmailAddress  = "Invalid email address"
	msgUnknownError         = "Unknown error, please try again later."
	msgInternalError        = "Internal server error"
	msgGoogleDisabled       = "Google sign-in is not configured"
	msgGoogleInvalidState   = "Invalid sign-in state"
	msgGoogleSignInFailed   = "Google sign-in failed"
	msgPasswordResetSuccess = "Password updated successfully, please check your email address"
)

type authService interface {
	Login(ctx context.Context, email, password string) (token.Pair, error)
	Refresh(ctx context.Context, claims *token.Claims, refreshToken string) (token.Pair, error)
}

type passwordResetter interface {
	ForgotPassword(ctx context.Context, email string) error
}

type googleService interface {
	AuthCodeURL(state string) string
	SignIn(ctx context.Context, code string) (token.Pair, error)
}

type AuthHandler struct {
	svc    authService
	users  passwordResetter
	google googleService
}

// NewAuthHandler wires the auth routes. google may be nil when Google
// sign-in is not configured.
func NewAuthHandler(svc authService, users passwordResetter, google googleService) *AuthHandler {
	return &AuthHandler{svc: svc, users: users, google: google}
}

// Login godoc
// @Summary Login
// @Description Verifies email and password and issues an access/refresh token pair.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Email and password"
// @Success 201 {object} model.TokenResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/auth [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	writeTokenPair(c, pair)
}

// Refresh godoc
// @Summary Refresh token pair
// @Description Exchanges the refresh token issued with the bearer access token for a new pair. The access token may be expired.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.RefreshRequest true "Refresh token"
// @Success 201 {object} model.TokenResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/auth/refresh-token [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	claims := getClaims(c)
	if claims == nil {
		writeError(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	var req model.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token() == "" {
		writeError(c, http.StatusBadRequest, msgMissingRefreshToken)
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), claims, req.Token())
	if err != nil {
		writeAuthError(c, err)
		return
	}
	writeTokenPair(c, pair)
}

// ForgotPassword godoc
// @Summary Reset a forgotten password
// @Description Replaces the password with a generated one and emails it to the account address.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.ForgotPasswordRequest true "Account email"
// @Success 200 {object} model.APIResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /api/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req model.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if err := h.users.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.APIResponse{
		Status:  http.StatusOK,
		Message: msgPasswordResetSuccess,
	})
}

// Me godoc
// @Summary Get current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.AuthMeResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		writeError(c, http.StatusUnauthorized, msgUnauthorized)
		return
	}
	c.JSON(http.StatusOK, model.AuthMeResponse{
		UserID:  user.AccountID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	})
}

// GoogleLogin godoc
// @Summary Start Google sign-in
// @Tags auth
// @Success 302
// @Failure 404 {object} model.ErrorResponse
// @Router /api/auth/google [get]
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	if h.google == nil {
		writeError(c, http.StatusNotFound, msgGoogleDisabled)
		return
	}

	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(googleStateCookie, state, googleStateMaxAge, "/api/auth/google", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusFound, h.google.AuthCodeURL(state))
}

// GoogleCallback godoc
// @Summary Finish Google sign-in
// @Description Validates the state cookie, exchanges the code and issues a token pair.
// @Tags auth
// @Produce json
// @Param state query string true "OAuth state"
// @Param code query string true "Authorization code"
// @Success 201 {object} model.TokenResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /api/auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if h.google == nil {
		writeError(c, http.StatusNotFound, msgGoogleDisabled)
		return
	}

	expected, _ := c.Cookie(googleStateCookie)
	state := c.Query("state")
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		writeError(c, http.StatusBadRequest, msgGoogleInvalidState)
		return
	}
	c.SetCookie(googleStateCookie, "", -1, "/api/auth/google", "", c.Request.TLS != nil, true)

	pair, err := h.google.SignIn(c.Request.Context(), c.Query("code"))
	if err != nil {
		writeAuthError(c, err)
		return
	}
	writeTokenPair(c, pair)
}

func writeTokenPair(c *gin.Context, pair token.Pair) {
	c.JSON(http.StatusCreated, model.TokenResponse{
		Status:       http.StatusCreated,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(c, http.StatusBadRequest, msgInvalidCredentials)
	case errors.Is(err, service.ErrMissingRefreshToken):
		writeError(c, http.StatusBadRequest, msgMissingRefreshToken)
	case errors.Is(err, service.ErrInvalidRefreshToken):
		writeError(c, http.StatusBadRequest, msgInvalidRefreshToken)
	case errors.Is(err, service.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, msgInvalidRequest)
	case errors.Is(err, service.ErrRateLimited):
		writeError(c, http.StatusTooManyRequests, msgTooManyAttempts)
	case errors.Is(err, service.ErrNotFound):
		writeError(c, http.StatusNotFound, msgInvalidEmailAddress)
	case errors.Is(err, service.ErrExternalAuth):
		writeError(c, http.StatusUnauthorized, msgGoogleSignInFailed)
	case errors.Is(err, service.ErrMailDelivery):
		writeError(c, http.StatusInternalServerError, msgUnknownError)
	default:
		writeError(c, http.StatusInternalServerError, msgInternalError)
	}
}
