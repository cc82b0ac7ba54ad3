package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/NileshSanyal/supermart-backend/internal/config"
	"github.com/NileshSanyal/supermart-backend/internal/db"
	"github.com/NileshSanyal/supermart-backend/internal/metrics"
	"github.com/NileshSanyal/supermart-backend/internal/model"
	"github.com/NileshSanyal/supermart-backend/internal/password"
	"github.com/NileshSanyal/supermart-backend/internal/token"
)

const (
	googleIssuer  = "https://accounts.google.com"
	googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

var googleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.google.com/o/oauth2/v2/auth",
	TokenURL:  "https://oauth2.googleapis.com/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// GoogleAuthService signs accounts in with a Google ID token and issues the
// same token pair as a password login.
type GoogleAuthService struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	store    AccountStore
	hasher   password.Hasher
	tokens   *token.Manager
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewGoogleAuthService uses Google's published endpoints. Signing keys are
// fetched lazily on first verification.
func NewGoogleAuthService(ctx context.Context, cfg config.GoogleConfig, store AccountStore, hasher password.Hasher, tokens *token.Manager, m *metrics.Metrics, logger *slog.Logger) *GoogleAuthService {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     googleEndpoint,
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}
	verifier := oidc.NewVerifier(googleIssuer, oidc.NewRemoteKeySet(ctx, googleJWKSURL), &oidc.Config{ClientID: cfg.ClientID})
	return newGoogleAuthService(oauthCfg, verifier, store, hasher, tokens, m, logger)
}

func newGoogleAuthService(oauthCfg *oauth2.Config, verifier *oidc.IDTokenVerifier, store AccountStore, hasher password.Hasher, tokens *token.Manager, m *metrics.Metrics, logger *slog.Logger) *GoogleAuthService {
	return &GoogleAuthService{
		oauth:    oauthCfg,
		verifier: verifier,
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		metrics:  m,
		logger:   logger,
	}
}

func (s *GoogleAuthService) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// SignIn exchanges an authorization code, verifies the returned ID token and
// finds or creates the account for its verified email address.
func (s *GoogleAuthService) SignIn(ctx context.Context, code string) (token.Pair, error) {
	if code == "" {
		return token.Pair{}, ErrInvalidInput
	}

	oauthToken, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return token.Pair{}, s.reject(ctx, "code exchange failed", err)
	}
	rawIDToken, ok := oauthToken.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return token.Pair{}, s.reject(ctx, "token response has no id_token", nil)
	}

	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return token.Pair{}, s.reject(ctx, "id token verification failed", err)
	}
	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return token.Pair{}, s.reject(ctx, "id token claims unreadable", err)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return token.Pair{}, s.reject(ctx, "google email missing or unverified", nil)
	}

	account, err := s.findOrCreate(ctx, NormalizeEmail(claims.Email))
	if err != nil {
		s.metrics.RecordAuth(metrics.OpGoogle, metrics.OutcomeError)
		return token.Pair{}, err
	}

	profile := model.GoogleProfile{GoogleID: idToken.Subject, UserName: claims.Name}
	if account.Google == nil || *account.Google != profile {
		if err := s.store.SetGoogleProfile(ctx, account.ID, profile); err != nil {
			s.logger.ErrorContext(ctx, "store google profile failed", "user_id", account.ID, "error", err)
			s.metrics.RecordAuth(metrics.OpGoogle, metrics.OutcomeError)
			return token.Pair{}, err
		}
		account.Google = &profile
	}

	pair, err := issuePair(s.tokens, s.metrics, account)
	if err != nil {
		s.metrics.RecordAuth(metrics.OpGoogle, metrics.OutcomeError)
		return token.Pair{}, err
	}
	s.metrics.RecordAuth(metrics.OpGoogle, metrics.OutcomeSuccess)
	s.logger.InfoContext(ctx, "google sign-in succeeded", "user_id", account.ID)
	return pair, nil
}

func (s *GoogleAuthService) findOrCreate(ctx context.Context, email string) (*model.Account, error) {
	account, err := s.store.GetAccountByEmail(ctx, email)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	// Google-only accounts get a random password nobody knows; forgot-password
	// can still set a usable one later.
	random, err := password.Generate(unusablePasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(random)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account = &model.Account{ID: NewAccountID(), Email: email, PasswordHash: hash}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			// Lost a race with a concurrent sign-in for the same address.
			return s.store.GetAccountByEmail(ctx, email)
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "account created from google sign-in", "user_id", account.ID)
	return account, nil
}

func (s *GoogleAuthService) reject(ctx context.Context, msg string, err error) error {
	s.metrics.RecordAuth(metrics.OpGoogle, metrics.OutcomeRejected)
	if err != nil {
		s.logger.WarnContext(ctx, msg, "error", err)
		return fmt.Errorf("%w: %w", ErrExternalAuth, err)
	}
	s.logger.WarnContext(ctx, msg)
	return ErrExternalAuth
}
