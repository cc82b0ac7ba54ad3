package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMisconfigured = errors.New("config invalid")

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	SMTP     SMTPConfig
	Google   GoogleConfig
}

type ServerConfig struct {
	Port             string
	LogFormat        string
	AllowedOrigins   []string
	AllowCredentials bool
}

type AuthConfig struct {
	JWTSecret        string
	JWTAccessTTL     time.Duration
	AllowAdminSignup bool
	LoginMaxAttempts int
	LoginLockout     time.Duration
}

type StoreConfig struct {
	Driver        string
	ConnectTries  uint64
	RetryInterval time.Duration
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether Google sign-in credentials are configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RedirectURL != ""
}

// Load reads the optional .env file at envFile (ignored when absent) and then
// builds the configuration from the process environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	accessTTL, err := parseDuration("JWT_ACCESS_TTL", "1h")
	if err != nil {
		return Config{}, err
	}
	lockout, err := parseDuration("LOGIN_LOCKOUT", "15m")
	if err != nil {
		return Config{}, err
	}
	retryInterval, err := parseDuration("DB_CONNECT_RETRY_INTERVAL", "5s")
	if err != nil {
		return Config{}, err
	}
	maxAttempts, err := parseInt("LOGIN_MAX_ATTEMPTS", 5)
	if err != nil {
		return Config{}, err
	}
	connectTries, err := parseInt("DB_CONNECT_RETRIES", 5)
	if err != nil {
		return Config{}, err
	}
	redisDB, err := parseInt("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	allowAdminSignup, err := parseBool("ALLOW_ADMIN_SIGNUP", false)
	if err != nil {
		return Config{}, err
	}
	allowCredentials, err := parseBool("CORS_ALLOW_CREDENTIALS", false)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Server: ServerConfig{
			Port:             getenv("PORT", "8080"),
			LogFormat:        getenv("LOG_FORMAT", "json"),
			AllowedOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
			AllowCredentials: allowCredentials,
		},
		Auth: AuthConfig{
			JWTSecret:        os.Getenv("JWT_SECRET"),
			JWTAccessTTL:     accessTTL,
			AllowAdminSignup: allowAdminSignup,
			LoginMaxAttempts: maxAttempts,
			LoginLockout:     lockout,
		},
		Store: StoreConfig{
			Driver:        strings.ToLower(getenv("STORE_DRIVER", StoreDriverPostgres)),
			ConnectTries:  uint64(max(connectTries, 0)),
			RetryInterval: retryInterval,
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Mongo: MongoConfig{
			URI:      getenv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getenv("MONGO_DATABASE", "supermart"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getenv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getenv("MAIL_FROM", "no-reply@supermart.local"),
		},
		Google: GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("%w: JWT_SECRET is required", ErrMisconfigured)
	}
	if c.Auth.JWTAccessTTL <= 0 {
		return fmt.Errorf("%w: JWT_ACCESS_TTL must be positive", ErrMisconfigured)
	}
	if c.Auth.LoginMaxAttempts <= 0 {
		return fmt.Errorf("%w: LOGIN_MAX_ATTEMPTS must be positive", ErrMisconfigured)
	}
	if c.Auth.LoginLockout <= 0 {
		return fmt.Errorf("%w: LOGIN_LOCKOUT must be positive", ErrMisconfigured)
	}
	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMongo:
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", ErrMisconfigured, c.Store.Driver)
	}
	return nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getenv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", ErrMisconfigured, key)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", ErrMisconfigured, key)
	}
	return n, nil
}

func parseBool(key string, fallback bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: invalid %s", ErrMisconfigured, key)
	}
	return parsed, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
