package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/NileshSanyal/supermart-backend/internal/db"
	"github.com/NileshSanyal/supermart-backend/internal/logging"
	"github.com/NileshSanyal/supermart-backend/internal/mail"
	"github.com/NileshSanyal/supermart-backend/internal/model"
	"github.com/NileshSanyal/supermart-backend/internal/password"
	"github.com/NileshSanyal/supermart-backend/internal/service"
	"github.com/NileshSanyal/supermart-backend/internal/token"
)

var (
	testSecret = []byte("handler-test-secret")
	testHasher = password.NewArgon2idHasher(password.Params{Memory: 8 * 1024, Time: 1, Threads: 1, SaltLen: 16, KeyLen: 32})
)

type memStore struct {
	mu       sync.Mutex
	accounts []*model.Account
}

func (m *memStore) CreateAccount(_ context.Context, account *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == account.Email {
			return db.ErrDuplicate
		}
	}
	cp := *account
	m.accounts = append(m.accounts, &cp)
	return nil
}

func (m *memStore) GetAccountByEmail(_ context.Context, email string) (*model.Account, error) {
	return m.find(func(a *model.Account) bool { return a.Email == email })
}

func (m *memStore) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	return m.find(func(a *model.Account) bool { return a.ID == id })
}

func (m *memStore) find(match func(*model.Account) bool) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memStore) ListAccounts(_ context.Context, offset, limit int) ([]model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Account{}
	for i := offset; i < len(m.accounts) && len(out) < limit; i++ {
		out = append(out, *m.accounts[i])
	}
	return out, nil
}

func (m *memStore) UpdatePasswordHash(_ context.Context, email, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			a.PasswordHash = hash
			return nil
		}
	}
	return db.ErrNotFound
}

func (m *memStore) SetGoogleProfile(_ context.Context, id string, profile model.GoogleProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.ID == id {
			a.Google = &profile
			return nil
		}
	}
	return db.ErrNotFound
}

type captureMailer struct {
	sent []mail.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeGoogle struct {
	pair token.Pair
	err  error
	code string
}

func (g *fakeGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example/auth?state=" + state
}

func (g *fakeGoogle) SignIn(_ context.Context, code string) (token.Pair, error) {
	g.code = code
	return g.pair, g.err
}

type testServer struct {
	router  *gin.Engine
	store   *memStore
	mailer  *captureMailer
	tokens  *token.Manager
	google  *fakeGoogle
	authSvc *service.AuthService
}

type serverOption func(*serverConfig)

type serverConfig struct {
	ttl              time.Duration
	allowAdmin       bool
	google           bool
	origins          []string
	allowCredentials bool
}

func withTTL(ttl time.Duration) serverOption {
	return func(c *serverConfig) { c.ttl = ttl }
}

func withAdminSignup() serverOption {
	return func(c *serverConfig) { c.allowAdmin = true }
}

func withGoogle() serverOption {
	return func(c *serverConfig) { c.google = true }
}

func withCORS(allowCredentials bool, origins ...string) serverOption {
	return func(c *serverConfig) {
		c.origins = origins
		c.allowCredentials = allowCredentials
	}
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := serverConfig{ttl: time.Hour}
	for _, opt := range opts {
		opt(&cfg)
	}

	tokens, err := token.NewManager(testSecret, cfg.ttl)
	require.NoError(t, err)

	ts := &testServer{store: &memStore{}, mailer: &captureMailer{}, tokens: tokens}
	logger := logging.Discard()

	ts.authSvc, err = service.NewAuthService(ts.store, tokens, testHasher, logger)
	require.NoError(t, err)
	users := service.NewUserService(ts.store, testHasher, ts.mailer, nil, logger, cfg.allowAdmin)

	var google googleService
	if cfg.google {
		ts.google = &fakeGoogle{}
		google = ts.google
	}

	ts.router = NewRouter(RouterConfig{
		Logger:           logger,
		AllowedOrigins:   cfg.origins,
		AllowCredentials: cfg.allowCredentials,
		Verifier:         ts.authSvc,
		Auth:             NewAuthHandler(ts.authSvc, users, google),
		Users:            NewUserHandler(users),
	})
	return ts
}

func (ts *testServer) seed(t *testing.T, email, plain string, isAdmin bool) *model.Account {
	t.Helper()
	hash, err := testHasher.Hash(plain)
	require.NoError(t, err)
	account := &model.Account{ID: service.NewAccountID(), Email: email, PasswordHash: hash, IsAdmin: isAdmin}
	require.NoError(t, ts.store.CreateAccount(context.Background(), account))
	return account
}

func (ts *testServer) issue(t *testing.T, account *model.Account) token.Pair {
	t.Helper()
	pair, err := ts.tokens.Issue(token.Identity{AccountID: account.ID, Email: account.Email, IsAdmin: account.IsAdmin})
	require.NoError(t, err)
	return pair
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func bearer(accessToken string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + accessToken}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeTokens(t *testing.T, w *httptest.ResponseRecorder) model.TokenResponse {
	t.Helper()
	var resp model.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// tamper flips one character in the given token segment (0 header, 1 payload, 2 signature).
func tamper(tok string, segment int) string {
	start := 0
	for i := 0; i < segment; i++ {
		start += bytes.IndexByte([]byte(tok[start:]), '.') + 1
	}
	pos := start + 2
	b := []byte(tok)
	if b[pos] == 'A' {
		b[pos] = 'B'
	} else {
		b[pos] = 'A'
	}
	return string(b)
}
