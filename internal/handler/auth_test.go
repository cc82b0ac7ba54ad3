package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NileshSanyal/supermart-backend/internal/model"
	"github.com/NileshSanyal/supermart-backend/internal/service"
	"github.com/NileshSanyal/supermart-backend/internal/token"
)

func TestLoginReturnsTokenPair(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, "a@b.com", "secret", false)

	w := ts.do(t, http.MethodPost, "/api/auth", jsonBody{"email": "a@b.com", "password": "secret"}, nil)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decodeTokens(t, w)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEqual(t, resp.AccessToken, resp.RefreshToken)
}

func TestLoginFailures(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, "a@b.com", "secret", false)

	tests := []struct {
		name    string
		body    any
		code    int
		message string
	}{
		{name: "wrong password", body: jsonBody{"email": "a@b.com", "password": "wrong-password"}, code: http.StatusBadRequest, message: msgInvalidCredentials},
		{name: "unknown account", body: jsonBody{"email": "who@b.com", "password": "secret"}, code: http.StatusBadRequest, message: msgInvalidCredentials},
		{name: "invalid email", body: jsonBody{"email": "nope", "password": "secret"}, code: http.StatusBadRequest, message: msgValidation},
		{name: "short password", body: jsonBody{"email": "a@b.com", "password": "abc"}, code: http.StatusBadRequest, message: msgValidation},
		{name: "broken json", body: `{"email":`, code: http.StatusBadRequest, message: msgInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/auth", tt.body, nil)
			require.Equal(t, tt.code, w.Code)
			resp := decodeError(t, w)
			assert.True(t, resp.Error)
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestLoginValidationMessages(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/auth", jsonBody{"email": "nope", "password": "abc"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp model.ValidationErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.ElementsMatch(t, []model.FieldError{
		{Field: "email", Message: "Must be a valid email address"},
		{Field: "password", Message: "Password must have at least 5 characters"},
	}, resp.Errors)
}

func TestRefreshFlow(t *testing.T) {
	ts := newTestServer(t)
	account := ts.seed(t, "a@b.com", "secret", false)
	pair := ts.issue(t, account)

	w := ts.do(t, http.MethodPost, "/api/auth/refresh-token", jsonBody{"refreshToken": pair.RefreshToken}, bearer(pair.AccessToken))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	next := decodeTokens(t, w)
	assert.NotEmpty(t, next.AccessToken)
	assert.NotEqual(t, pair.AccessToken, next.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// The new pair works for the next round.
	w = ts.do(t, http.MethodPost, "/api/auth/refresh-token", jsonBody{"refresh_token": next.RefreshToken}, bearer(next.AccessToken))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRefreshWithExpiredAccessToken(t *testing.T) {
	ts := newTestServer(t, withTTL(-time.Minute))
	account := ts.seed(t, "a@b.com", "secret", false)
	pair := ts.issue(t, account)

	w := ts.do(t, http.MethodGet, "/api/auth/me", nil, bearer(pair.AccessToken))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, http.MethodPost, "/api/auth/refresh-token", jsonBody{"refreshToken": pair.RefreshToken}, bearer(pair.AccessToken))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRefreshFailures(t *testing.T) {
	ts := newTestServer(t)
	account := ts.seed(t, "a@b.com", "secret", false)
	first := ts.issue(t, account)
	second := ts.issue(t, account)

	tests := []struct {
		name    string
		headers map[string]string
		body    any
		code    int
		message string
	}{
		{name: "no authorization header", body: jsonBody{"refreshToken": first.RefreshToken}, code: http.StatusUnauthorized, message: msgUnauthorized},
		{name: "wrong scheme", headers: map[string]string{"Authorization": "Token xyz"}, body: jsonBody{"refreshToken": first.RefreshToken}, code: http.StatusUnauthorized, message: msgUnauthorized},
		{name: "tampered payload", headers: bearer(tamper(first.AccessToken, 1)), body: jsonBody{"refreshToken": first.RefreshToken}, code: http.StatusForbidden, message: msgForbidden},
		{name: "tampered signature", headers: bearer(tamper(first.AccessToken, 2)), body: jsonBody{"refreshToken": first.RefreshToken}, code: http.StatusForbidden, message: msgForbidden},
		{name: "missing refresh token", headers: bearer(first.AccessToken), body: jsonBody{}, code: http.StatusBadRequest, message: msgMissingRefreshToken},
		{name: "empty body", headers: bearer(first.AccessToken), body: "", code: http.StatusBadRequest, message: msgMissingRefreshToken},
		{name: "refresh token from another pair", headers: bearer(second.AccessToken), body: jsonBody{"refreshToken": first.RefreshToken}, code: http.StatusBadRequest, message: msgInvalidRefreshToken},
		{name: "garbage refresh token", headers: bearer(first.AccessToken), body: jsonBody{"refreshToken": "bm9wZQ=="}, code: http.StatusBadRequest, message: msgInvalidRefreshToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/auth/refresh-token", tt.body, tt.headers)
			require.Equal(t, tt.code, w.Code, w.Body.String())
			assert.Equal(t, tt.message, decodeError(t, w).Message)
		})
	}
}

func TestRefreshForDeletedAccountIsMismatch(t *testing.T) {
	ts := newTestServer(t)
	account := ts.seed(t, "a@b.com", "secret", false)
	pair := ts.issue(t, account)
	ts.store.accounts = nil

	w := ts.do(t, http.MethodPost, "/api/auth/refresh-token", jsonBody{"refreshToken": pair.RefreshToken}, bearer(pair.AccessToken))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgInvalidRefreshToken, decodeError(t, w).Message)
}

func TestForgotPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, "a@b.com", "secret", false)

	w := ts.do(t, http.MethodPost, "/api/auth/forgot-password", jsonBody{"email": "a@b.com"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, ts.mailer.sent, 1)

	// Old password stops working.
	w = ts.do(t, http.MethodPost, "/api/auth", jsonBody{"email": "a@b.com", "password": "secret"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/auth/forgot-password", jsonBody{"email": "ghost@b.com"}, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, msgInvalidEmailAddress, decodeError(t, w).Message)
}

func TestForgotPasswordMailFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.seed(t, "a@b.com", "secret", false)
	ts.mailer.err = errors.New("smtp down")

	w := ts.do(t, http.MethodPost, "/api/auth/forgot-password", jsonBody{"email": "a@b.com"}, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, msgUnknownError, decodeError(t, w).Message)
}

func TestMe(t *testing.T) {
	ts := newTestServer(t)
	account := ts.seed(t, "a@b.com", "secret", true)
	pair := ts.issue(t, account)

	w := ts.do(t, http.MethodGet, "/api/auth/me", nil, bearer(pair.AccessToken))
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.AuthMeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.AuthMeResponse{UserID: account.ID, Email: "a@b.com", IsAdmin: true}, resp)
}

func TestGoogleRoutesDisabled(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/auth/google", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodGet, "/api/auth/google/callback?state=x&code=y", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGoogleRedirectAndCallback(t *testing.T) {
	ts := newTestServer(t, withGoogle())
	ts.google.pair = token.Pair{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 3600}

	w := ts.do(t, http.MethodGet, "/api/auth/google", nil, nil)
	require.Equal(t, http.StatusFound, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, googleStateCookie, cookies[0].Name)
	assert.Equal(t, state, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	cookie := googleStateCookie + "=" + state

	w = ts.do(t, http.MethodGet, "/api/auth/google/callback?state=other&code=c", nil, map[string]string{"Cookie": cookie})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/auth/google/callback?state="+state+"&code=c", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/auth/google/callback?state="+state+"&code=c", nil, map[string]string{"Cookie": cookie})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "c", ts.google.code)
	assert.Equal(t, "access", decodeTokens(t, w).AccessToken)

	ts.google.err = service.ErrExternalAuth
	w = ts.do(t, http.MethodGet, "/api/auth/google/callback?state="+state+"&code=c", nil, map[string]string{"Cookie": cookie})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, msgGoogleSignInFailed, decodeError(t, w).Message)
}

// jsonBody is a short JSON object literal for request bodies.
type jsonBody = map[string]any
