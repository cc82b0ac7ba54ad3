package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NileshSanyal/supermart-backend/internal/db"
	"github.com/NileshSanyal/supermart-backend/internal/logging"
	"github.com/NileshSanyal/supermart-backend/internal/mail"
	"github.com/NileshSanyal/supermart-backend/internal/model"
	"github.com/NileshSanyal/supermart-backend/internal/ratelimit"
	"github.com/NileshSanyal/supermart-backend/internal/token"
)

var testSecret = []byte("service-test-secret")

type memStore struct {
	mu       sync.Mutex
	accounts []*model.Account
	err      error
}

func (m *memStore) add(a *model.Account) *model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = append(m.accounts, a)
	return a
}

func (m *memStore) CreateAccount(_ context.Context, account *model.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, a := range m.accounts {
		if a.Email == account.Email || a.ID == account.ID {
			return db.ErrDuplicate
		}
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
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
	if m.err != nil {
		return nil, m.err
	}
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
	if m.err != nil {
		return nil, m.err
	}
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
			p := profile
			a.Google = &p
			return nil
		}
	}
	return db.ErrNotFound
}

// plainHasher keeps tests fast; argon2id itself is covered in the password package.
type plainHasher struct {
	verifyCalls int
}

func (h *plainHasher) Hash(pw string) (string, error) {
	if pw == "" {
		return "", errors.New("empty")
	}
	return "plain$" + pw, nil
}

func (h *plainHasher) Verify(pw, encoded string) (bool, error) {
	h.verifyCalls++
	stored, ok := strings.CutPrefix(encoded, "plain$")
	if !ok {
		return false, errors.New("malformed hash")
	}
	return stored == pw, nil
}

type fakeLimiter struct {
	attemptErr error
	attempts   map[string]int
	resets     int
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{attempts: map[string]int{}}
}

func (l *fakeLimiter) AttemptLogin(_ context.Context, email string) error {
	l.attempts[email]++
	return l.attemptErr
}

func (l *fakeLimiter) Reset(_ context.Context, email string) error {
	l.resets++
	delete(l.attempts, email)
	return nil
}

type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func newTokenManager(t *testing.T, ttl time.Duration) *token.Manager {
	t.Helper()
	m, err := token.NewManager(testSecret, ttl)
	require.NoError(t, err)
	return m
}

func newAuthService(t *testing.T, store AccountStore, hasher *plainHasher, opts ...AuthOption) *AuthService {
	t.Helper()
	svc, err := NewAuthService(store, newTokenManager(t, time.Hour), hasher, logging.Discard(), opts...)
	require.NoError(t, err)
	return svc
}

var _ LoginLimiter = (*ratelimit.Limiter)(nil)
var _ AccountStore = (*db.Postgres)(nil)
var _ AccountStore = (*db.Mongo)(nil)
