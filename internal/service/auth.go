package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/NileshSanyal/supermart-backend/internal/db"
	"github.com/NileshSanyal/supermart-backend/internal/metrics"
	"github.com/NileshSanyal/supermart-backend/internal/model"
	"github.com/NileshSanyal/supermart-backend/internal/password"
	"github.com/NileshSanyal/supermart-backend/internal/ratelimit"
	"github.com/NileshSanyal/supermart-backend/internal/token"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidCredentials  = errors.New("invalid email and/or password")
	ErrInvalidToken        = errors.New("invalid token")
	ErrMissingRefreshToken = errors.New("missing refresh token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrRateLimited         = errors.New("rate limited")
	ErrMailDelivery        = errors.New("mail delivery failed")
	ErrExternalAuth        = errors.New("external sign-in failed")
	ErrMisconfigured       = errors.New("auth config invalid")
)

// AccountStore is implemented by both db.Postgres and db.Mongo.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	ListAccounts(ctx context.Context, offset, limit int) ([]model.Account, error)
	UpdatePasswordHash(ctx context.Context, email, passwordHash string) error
	SetGoogleProfile(ctx context.Context, id string, profile model.GoogleProfile) error
}

// LoginLimiter reserves an attempt before the password is checked and clears
// the count after a successful login.
type LoginLimiter interface {
	AttemptLogin(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

type AuthOption func(*AuthService)

// WithLimiter enables per-email login throttling.
func WithLimiter(l LoginLimiter) AuthOption {
	return func(s *AuthService) { s.limiter = l }
}

func WithMetrics(m *metrics.Metrics) AuthOption {
	return func(s *AuthService) { s.metrics = m }
}

type AuthService struct {
	store   AccountStore
	tokens  *token.Manager
	hasher  password.Hasher
	limiter LoginLimiter
	metrics *metrics.Metrics
	logger  *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(store AccountStore, tokens *token.Manager, hasher password.Hasher, logger *slog.Logger, opts ...AuthOption) (*AuthService, error) {
	if tokens == nil {
		return nil, fmt.Errorf("%w: token manager is required", ErrMisconfigured)
	}
	s := &AuthService{
		store:  store,
		tokens: tokens,
		hasher: hasher,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Login checks email and password and issues a new token pair. Unknown
// accounts and wrong passwords both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, plain string) (token.Pair, error) {
	email = NormalizeEmail(email)

	if err := s.checkLimiter(ctx, email); err != nil {
		s.metrics.RecordAuth(metrics.OpLogin, metrics.OutcomeRateLimited)
		return token.Pair{}, err
	}

	account, err := s.store.GetAccountByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.logger.ErrorContext(ctx, "account lookup failed", "op", metrics.OpLogin, "error", err)
			s.metrics.RecordAuth(metrics.OpLogin, metrics.OutcomeError)
			return token.Pair{}, err
		}
		// Spend the same hashing work as a real verification.
		_, _ = s.hasher.Verify(plain, s.dummy(ctx))
		return token.Pair{}, s.rejectLogin(ctx)
	}

	ok, err := s.hasher.Verify(plain, account.PasswordHash)
	if err != nil {
		s.logger.WarnContext(ctx, "stored password hash unreadable", "user_id", account.ID, "error", err)
	}
	if !ok {
		return token.Pair{}, s.rejectLogin(ctx)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.logger.WarnContext(ctx, "login limiter reset failed", "error", err)
		}
	}

	pair, err := s.issue(account)
	if err != nil {
		s.logger.ErrorContext(ctx, "token issue failed", "op", metrics.OpLogin, "error", err)
		s.metrics.RecordAuth(metrics.OpLogin, metrics.OutcomeError)
		return token.Pair{}, err
	}
	s.metrics.RecordAuth(metrics.OpLogin, metrics.OutcomeSuccess)
	s.logger.InfoContext(ctx, "login succeeded", "user_id", account.ID)
	return pair, nil
}

// Refresh exchanges a refresh token for a new pair. claims come from the
// presented access token, which may already be expired. The account is read
// again so changes such as the admin flag take effect.
func (s *AuthService) Refresh(ctx context.Context, claims *token.Claims, refreshToken string) (token.Pair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return token.Pair{}, ErrMissingRefreshToken
	}
	if claims == nil {
		return token.Pair{}, ErrInvalidRefreshToken
	}

	account, err := s.store.GetAccountByEmail(ctx, NormalizeEmail(claims.Email))
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.logger.ErrorContext(ctx, "account lookup failed", "op", metrics.OpRefresh, "error", err)
		}
		s.metrics.RecordAuth(metrics.OpRefresh, metrics.OutcomeRejected)
		return token.Pair{}, ErrInvalidRefreshToken
	}

	matched := s.tokens.MatchRefreshToken(claims, refreshToken)
	if !matched || account.ID != claims.UserID {
		s.metrics.RecordAuth(metrics.OpRefresh, metrics.OutcomeRejected)
		s.logger.InfoContext(ctx, "refresh token rejected", "user_id", claims.UserID)
		return token.Pair{}, ErrInvalidRefreshToken
	}

	pair, err := s.issue(account)
	if err != nil {
		s.logger.ErrorContext(ctx, "token issue failed", "op", metrics.OpRefresh, "error", err)
		s.metrics.RecordAuth(metrics.OpRefresh, metrics.OutcomeError)
		return token.Pair{}, err
	}
	s.metrics.RecordAuth(metrics.OpRefresh, metrics.OutcomeSuccess)
	return pair, nil
}

// ParseAccessToken verifies signature and expiry.
func (s *AuthService) ParseAccessToken(tokenStr string) (*token.Claims, error) {
	claims, err := s.tokens.Parse(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

// ParseRefreshAccessToken verifies the signature but tolerates expiry.
func (s *AuthService) ParseRefreshAccessToken(tokenStr string) (*token.Claims, error) {
	claims, err := s.tokens.ParseAllowExpired(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

func (s *AuthService) issue(account *model.Account) (token.Pair, error) {
	return issuePair(s.tokens, s.metrics, account)
}

func issuePair(tokens *token.Manager, m *metrics.Metrics, account *model.Account) (token.Pair, error) {
	pair, err := tokens.Issue(token.Identity{
		AccountID: account.ID,
		Email:     account.Email,
		IsAdmin:   account.IsAdmin,
	})
	if err != nil {
		if errors.Is(err, token.ErrMisconfigured) {
			return token.Pair{}, fmt.Errorf("%w: %w", ErrMisconfigured, err)
		}
		return token.Pair{}, err
	}
	m.RecordIssued()
	return pair, nil
}

// checkLimiter fails open when Redis is unreachable.
func (s *AuthService) checkLimiter(ctx context.Context, email string) error {
	if s.limiter == nil {
		return nil
	}
	err := s.limiter.AttemptLogin(ctx, email)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ratelimit.ErrRateLimited):
		s.logger.WarnContext(ctx, "login throttled", "email", email)
		return ErrRateLimited
	default:
		s.logger.WarnContext(ctx, "login limiter unavailable", "error", err)
		return nil
	}
}

func (s *AuthService) rejectLogin(ctx context.Context) error {
	s.metrics.RecordAuth(metrics.OpLogin, metrics.OutcomeRejected)
	s.logger.InfoContext(ctx, "login rejected")
	return ErrInvalidCredentials
}

// fallbackDummyHash is a well-formed argon2id hash of no known password, used
// when the hasher cannot produce a fresh dummy hash.
const fallbackDummyHash = "$argon2id$v=19$m=65536,t=1,p=4$AAECAwQFBgcICQoLDA0ODw$ZGVmZ2hpamtsbW5vcHFyc3R1dnd4eXp7fH1+f4CBgoM"

func (s *AuthService) dummy(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("supermart-timing-equaliser")
		if err != nil {
			s.logger.ErrorContext(ctx, "dummy password hash failed, using fallback", "error", err)
			hash = fallbackDummyHash
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// NormalizeEmail lowercases and trims an email address before lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
