package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for both services.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Issuer       IssuerConfig
	Catalog      CatalogConfig
	Notification NotificationConfig
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

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token issuing parameters. Only the issuer reads it.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// IssuerConfig tells the catalog where to delegate authorization decisions.
type IssuerConfig struct {
	BaseURL       string
	TimeoutMillis int
}

// CatalogConfig tunes the cached listing.
type CatalogConfig struct {
	CacheTTLSeconds    int
	DefaultLimit       int
	PurgeTimeoutMillis int
}

// NotificationConfig holds the mutation audit target.
type NotificationConfig struct {
	WebhookURL string
}

const (
	defaultIssuerTimeout = 2 * time.Second
	defaultPurgeTimeout  = 2 * time.Second
	defaultCacheTTL      = 60 * time.Second
	defaultPageLimit     = 10
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load(serviceName, defaultPort string) (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", serviceName),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", getEnv("PORT", defaultPort)),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations/"+serviceName),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             os.Getenv("AUTH_JWT_SECRET"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		Issuer: IssuerConfig{
			BaseURL:       getEnv("ISSUER_BASE_URL", "http://auth-service:3000"),
			TimeoutMillis: getEnvAsInt("ISSUER_TIMEOUT_MILLIS", 2000),
		},
		Catalog: CatalogConfig{
			CacheTTLSeconds:    getEnvAsInt("CATALOG_CACHE_TTL_SECONDS", 60),
			DefaultLimit:       getEnvAsInt("CATALOG_DEFAULT_LIMIT", defaultPageLimit),
			PurgeTimeoutMillis: getEnvAsInt("CATALOG_PURGE_TIMEOUT_MILLIS", 2000),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// ValidateIssuer checks the settings only the identity service needs.
func (c *Config) ValidateIssuer() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	return c.validatePostgres()
}

// ValidateCatalog checks the settings only the catalog service needs.
func (c *Config) ValidateCatalog() error {
	if c.Issuer.BaseURL == "" {
		return errors.New("ISSUER_BASE_URL is required")
	}
	return c.validatePostgres()
}

func (c *Config) validatePostgres() error {
	if c.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN is required")
	}
	return nil
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

// Timeout bounds every delegated authorization call. It is never zero.
func (i IssuerConfig) Timeout() time.Duration {
	if i.TimeoutMillis <= 0 {
		return defaultIssuerTimeout
	}
	return time.Duration(i.TimeoutMillis) * time.Millisecond
}

// CacheTTL returns how long a cached page lives.
func (c CatalogConfig) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return defaultCacheTTL
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// PageLimit returns the listing page size used when the caller sends none.
func (c CatalogConfig) PageLimit() int {
	if c.DefaultLimit <= 0 {
		return defaultPageLimit
	}
	return c.DefaultLimit
}

// PurgeTimeout bounds a post-commit cache purge.
func (c CatalogConfig) PurgeTimeout() time.Duration {
	if c.PurgeTimeoutMillis <= 0 {
		return defaultPurgeTimeout
	}
	return time.Duration(c.PurgeTimeoutMillis) * time.Millisecond
}

// TokenTTL returns the validity window of issued tokens.
func (a AuthConfig) TokenTTL() time.Duration {
	if a.AccessTokenTTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
