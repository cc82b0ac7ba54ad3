// Package token issues and verifies the service's access/refresh token pairs.
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMisconfigured = errors.New("token config invalid")
	ErrInvalidToken  = errors.New("invalid token")
)

// Claims is the payload of an access token. Field names match the JSON the
// service has always issued so tokens from older deployments still parse.
type Claims struct {
	UserID     string     `json:"userId"`
	Email      string     `json:"email"`
	IsAdmin    bool       `json:"isAdmin"`
	RefreshKey RefreshKey `json:"refreshKey"`
	jwt.RegisteredClaims
}

// RefreshKey is the per-issuance salt. It encodes as a base64 string and also
// decodes the {"type":"Buffer","data":[...]} shape older tokens carry.
type RefreshKey []byte

func (k *RefreshKey) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '{' {
		var buf struct {
			Type string `json:"type"`
			Raw  []int  `json:"data"`
		}
		if err := json.Unmarshal(data, &buf); err != nil {
			return err
		}
		if buf.Type != "Buffer" {
			return fmt.Errorf("unsupported refreshKey type %q", buf.Type)
		}
		out := make([]byte, len(buf.Raw))
		for i, v := range buf.Raw {
			if v < 0 || v > 255 {
				return fmt.Errorf("refreshKey byte out of range: %d", v)
			}
			out[i] = byte(v)
		}
		*k = out
		return nil
	}

	var raw []byte
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*k = raw
	return nil
}

// Identity is what gets copied from an account record into a new token.
type Identity struct {
	AccountID string
	Email     string
	IsAdmin   bool
}

type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	random io.Reader
}

// NewManager returns a Manager signing with secret. ttl is the access token
// lifetime; it is not range-checked here so callers can mint already-expired
// tokens.
func NewManager(secret []byte, ttl time.Duration) (*Manager, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: signing secret is empty", ErrMisconfigured)
	}
	return &Manager{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		random: defaultRandom,
	}, nil
}

// Issue mints a fresh access/refresh pair for id. Every call draws a new salt,
// so pairs for the same account are unlinkable.
func (m *Manager) Issue(id Identity) (Pair, error) {
	if m == nil || len(m.secret) == 0 {
		return Pair{}, fmt.Errorf("%w: signing secret is empty", ErrMisconfigured)
	}

	salt, err := NewRefreshSalt(m.random)
	if err != nil {
		return Pair{}, err
	}

	now := time.Now()
	claims := Claims{
		UserID:     id.AccountID,
		Email:      id.Email,
		IsAdmin:    id.IsAdmin,
		RefreshKey: salt,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Pair{}, fmt.Errorf("sign access token: %w", err)
	}

	return Pair{
		AccessToken:  signed,
		RefreshToken: DeriveRefreshToken(salt, id.AccountID, m.secret),
		ExpiresIn:    int64(m.ttl.Seconds()),
	}, nil
}

// Parse verifies signature and expiry.
func (m *Manager) Parse(tokenStr string) (*Claims, error) {
	return m.parse(tokenStr, jwt.WithExpirationRequired())
}

// ParseAllowExpired verifies the signature and claim structure but ignores
// expiry. Only the refresh path uses it.
func (m *Manager) ParseAllowExpired(tokenStr string) (*Claims, error) {
	claims, err := m.parse(tokenStr, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	if len(claims.RefreshKey) == 0 {
		return nil, fmt.Errorf("%w: missing refresh key", ErrInvalidToken)
	}
	return claims, nil
}

// MatchRefreshToken checks presented against the refresh token derived from claims.
func (m *Manager) MatchRefreshToken(claims *Claims, presented string) bool {
	return MatchRefreshToken(claims, presented, m.secret)
}

func (m *Manager) parse(tokenStr string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing userId", ErrInvalidToken)
	}
	return claims, nil
}
