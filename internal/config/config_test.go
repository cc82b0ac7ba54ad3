package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Auth.JWTAccessTTL)
	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 5, cfg.Auth.LoginMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LoginLockout)
	assert.False(t, cfg.Auth.AllowAdminSignup)
	assert.False(t, cfg.Server.AllowCredentials)
	assert.False(t, cfg.Google.Enabled())
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load("")
	require.ErrorIs(t, err, ErrMisconfigured)
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "ttl", key: "JWT_ACCESS_TTL", val: "soon"},
		{name: "negative-ttl", key: "JWT_ACCESS_TTL", val: "-1m"},
		{name: "attempts", key: "LOGIN_MAX_ATTEMPTS", val: "many"},
		{name: "driver", key: "STORE_DRIVER", val: "sqlite"},
		{name: "admin-signup", key: "ALLOW_ADMIN_SIGNUP", val: "maybe"},
		{name: "cors-credentials", key: "CORS_ALLOW_CREDENTIALS", val: "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret")
			t.Setenv(tt.key, tt.val)

			_, err := Load("")
			require.ErrorIs(t, err, ErrMisconfigured)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nSTORE_DRIVER=mongo\nCORS_ALLOWED_ORIGINS=http://a.test, http://b.test\n"), 0o600))

	// godotenv does not override variables that are already set.
	t.Setenv("JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	t.Setenv("STORE_DRIVER", "")
	require.NoError(t, os.Unsetenv("STORE_DRIVER"))
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	require.NoError(t, os.Unsetenv("CORS_ALLOWED_ORIGINS"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, StoreDriverMongo, cfg.Store.Driver)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
}

func TestLoadMissingEnvFileIgnored(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
}

func TestGoogleEnabled(t *testing.T) {
	g := GoogleConfig{ClientID: "id", ClientSecret: "secret"}
	assert.False(t, g.Enabled())
	g.RedirectURL = "http://localhost/cb"
	assert.True(t, g.Enabled())
}
