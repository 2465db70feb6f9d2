package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const devJWTSecret = "dev-secret"

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Pagination   PaginationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN selects the
// in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	PharmacistSeed        SeedAccount
}

// SeedAccount describes a staff account provisioned at startup.
type SeedAccount struct {
	Email    string
	Username string
	Password string
}

// Enabled reports whether a seed account was configured.
func (s SeedAccount) Enabled() bool {
	return s.Email != ""
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// PaginationConfig bounds ticket listing pages.
type PaginationConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the configuration from environment variables. Malformed
// numbers and booleans are reported together rather than silently replaced.
func FromEnv() (*Config, error) {
	env := &envReader{}
	cfg := &Config{
		App:          env.app(),
		Postgres:     env.postgres(),
		Redis:        env.redis(),
		Logger:       LoggerConfig{Level: env.str("LOG_LEVEL", "info")},
		Auth:         env.auth(),
		Notification: env.notification(),
		Pagination:   env.pagination(),
	}
	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if c.App.Env == "production" && c.Auth.JWTSecret == devJWTSecret {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be set in production"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("AUTH_BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost))
	}
	if c.Auth.AccessTokenTTLMinutes <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TOKEN_TTL_MINUTES must be positive"))
	}
	if c.Pagination.DefaultLimit <= 0 || c.Pagination.MaxLimit < c.Pagination.DefaultLimit {
		errs = append(errs, fmt.Errorf("ticket page limits invalid: default %d, max %d", c.Pagination.DefaultLimit, c.Pagination.MaxLimit))
	}
	if seed := c.Auth.PharmacistSeed; seed.Enabled() && (seed.Username == "" || seed.Password == "") {
		errs = append(errs, errors.New("PHARMACIST_SEED_USERNAME and PHARMACIST_SEED_PASSWORD are required with PHARMACIST_SEED_EMAIL"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func (e *envReader) app() AppConfig {
	return AppConfig{
		Name:                  e.str("APP_NAME", "pharmacy-helpdesk"),
		Env:                   e.str("APP_ENV", "development"),
		Host:                  e.str("APP_HOST", "0.0.0.0"),
		Port:                  e.str("APP_PORT", "8080"),
		Version:               e.str("APP_VERSION", "dev"),
		RequestTimeoutSeconds: e.intVal("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
	}
}

func (e *envReader) postgres() PostgresConfig {
	return PostgresConfig{
		DSN:            os.Getenv("POSTGRES_DSN"),
		MaxConns:       e.int32Val("POSTGRES_MAX_CONNS", 10),
		MinConns:       e.int32Val("POSTGRES_MIN_CONNS", 2),
		RunMigrations:  e.boolVal("POSTGRES_RUN_MIGRATIONS", true),
		MigrationsDir:  e.str("POSTGRES_MIGRATIONS_DIR", "migrations"),
		ConnMaxIdleSec: e.int32Val("POSTGRES_CONN_MAX_IDLE_SECONDS", 30),
		ConnMaxLifeSec: e.int32Val("POSTGRES_CONN_MAX_LIFE_SECONDS", 300),
	}
}

func (e *envReader) redis() RedisConfig {
	return RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       e.intVal("REDIS_DB", 0),
	}
}

func (e *envReader) auth() AuthConfig {
	return AuthConfig{
		JWTSecret:             e.str("AUTH_JWT_SECRET", devJWTSecret),
		AccessTokenTTLMinutes: e.intVal("AUTH_ACCESS_TOKEN_TTL_MINUTES", 30),
		BcryptCost:            e.intVal("AUTH_BCRYPT_COST", 12),
		PharmacistSeed: SeedAccount{
			Email:    os.Getenv("PHARMACIST_SEED_EMAIL"),
			Username: os.Getenv("PHARMACIST_SEED_USERNAME"),
			Password: os.Getenv("PHARMACIST_SEED_PASSWORD"),
		},
	}
}

func (e *envReader) notification() NotificationConfig {
	return NotificationConfig{
		EmailFrom:  e.str("NOTIFY_EMAIL_FROM", "noreply@example.com"),
		WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
	}
}

func (e *envReader) pagination() PaginationConfig {
	return PaginationConfig{
		DefaultLimit: e.intVal("TICKETS_DEFAULT_LIMIT", 10),
		MaxLimit:     e.intVal("TICKETS_MAX_LIMIT", 100),
	}
}

// envReader reads typed variables and collects parse failures by key.
type envReader struct {
	errs []error
}

func (e *envReader) str(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func (e *envReader) intVal(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return parsed
}

func (e *envReader) int32Val(key string, fallback int32) int32 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(val, 10, 32)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return int32(parsed)
}

func (e *envReader) boolVal(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return parsed
}
