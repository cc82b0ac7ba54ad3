package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/NileshSanyal/supermart-backend/internal/db"
	"github.com/NileshSanyal/supermart-backend/internal/mail"
	"github.com/NileshSanyal/supermart-backend/internal/metrics"
	"github.com/NileshSanyal/supermart-backend/internal/model"
	"github.com/NileshSanyal/supermart-backend/internal/password"
)

const (
	accountIDPrefix        = "userid-"
	defaultPageSize        = 10
	maxPageSize            = 100
	maxPageIndex           = math.MaxInt32 / maxPageSize
	resetPasswordLength    = 12
	unusablePasswordLength = 32
)

type UserService struct {
	store            AccountStore
	hasher           password.Hasher
	mailer           mail.Mailer
	metrics          *metrics.Metrics
	logger           *slog.Logger
	allowAdminSignup bool
}

func NewUserService(store AccountStore, hasher password.Hasher, mailer mail.Mailer, m *metrics.Metrics, logger *slog.Logger, allowAdminSignup bool) *UserService {
	return &UserService{
		store:            store,
		hasher:           hasher,
		mailer:           mailer,
		metrics:          m,
		logger:           logger,
		allowAdminSignup: allowAdminSignup,
	}
}

func (s *UserService) Register(ctx context.Context, email, plain string) (*model.Account, error) {
	return s.create(ctx, email, plain, false)
}

// RegisterAdmin creates an account with the admin flag set. It is refused
// unless admin sign-up is enabled in configuration.
func (s *UserService) RegisterAdmin(ctx context.Context, email, plain string) (*model.Account, error) {
	if !s.allowAdminSignup {
		return nil, ErrForbidden
	}
	return s.create(ctx, email, plain, true)
}

func (s *UserService) create(ctx context.Context, email, plain string, isAdmin bool) (*model.Account, error) {
	email = NormalizeEmail(email)
	if email == "" || plain == "" {
		return nil, ErrInvalidInput
	}

	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &model.Account{
		ID:           NewAccountID(),
		Email:        email,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			s.metrics.RecordAuth(metrics.OpRegister, metrics.OutcomeRejected)
			return nil, ErrConflict
		}
		s.logger.ErrorContext(ctx, "create account failed", "error", err)
		s.metrics.RecordAuth(metrics.OpRegister, metrics.OutcomeError)
		return nil, err
	}

	s.metrics.RecordAuth(metrics.OpRegister, metrics.OutcomeSuccess)
	s.logger.InfoContext(ctx, "account registered", "user_id", account.ID, "is_admin", isAdmin)
	return account, nil
}

// List returns one page of accounts ordered by creation time. pageIndex is
// zero-based; an empty page is ErrNotFound.
func (s *UserService) List(ctx context.Context, pageIndex, pageSize int) ([]model.Account, error) {
	pageIndex, pageSize = normalizePage(pageIndex, pageSize)

	list, err := s.store.ListAccounts(ctx, pageIndex*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.Account, error) {
	if !ValidAccountID(id) {
		return nil, ErrInvalidInput
	}
	account, err := s.store.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return account, nil
}

// ForgotPassword replaces the account password with a generated one and mails
// it to the account address.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	if _, err := s.store.GetAccountByEmail(ctx, email); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.metrics.RecordAuth(metrics.OpForgotPassword, metrics.OutcomeRejected)
			return ErrNotFound
		}
		return err
	}

	generated, err := password.Generate(resetPasswordLength)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(generated)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePasswordHash(ctx, email, hash); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.mailer.Send(ctx, mail.PasswordReset(email, generated)); err != nil {
		s.logger.ErrorContext(ctx, "password reset mail failed", "error", err)
		s.metrics.RecordAuth(metrics.OpForgotPassword, metrics.OutcomeError)
		return fmt.Errorf("%w: %w", ErrMailDelivery, err)
	}

	s.metrics.RecordAuth(metrics.OpForgotPassword, metrics.OutcomeSuccess)
	s.logger.InfoContext(ctx, "password reset")
	return nil
}

// NewAccountID returns a fresh "userid-<uuid v4>" identifier.
func NewAccountID() string {
	return accountIDPrefix + uuid.NewString()
}

func ValidAccountID(id string) bool {
	rest, ok := strings.CutPrefix(id, accountIDPrefix)
	if !ok || len(rest) != 36 {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

// normalizePage keeps index*size inside int32, well clear of overflow.
func normalizePage(index, size int) (int, int) {
	if index < 0 {
		index = 0
	}
	if index > maxPageIndex {
		index = maxPageIndex
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return index, size
}
