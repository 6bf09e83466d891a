package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Refresh-token store backends selectable via AUTH_REFRESH_STORE.
const (
	RefreshStorePostgres = "postgres"
	RefreshStoreRedis    = "redis"
	RefreshStoreMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
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

// AuthConfig defines token issuance parameters. The signing secret and both
// TTLs have no defaults: the service must not start without them.
type AuthConfig struct {
	JWTSecret       []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	BcryptCost      int
	RefreshStore    string
	SweepInterval   time.Duration
}

// minSecretBytes is the decoded length required of AUTH_JWT_SECRET (256 bits).
const minSecretBytes = 32

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	authCfg, err := loadAuth()
	if err != nil {
		return nil, err
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "session-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
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
		Auth: authCfg,
	}

	return cfg, nil
}

func loadAuth() (AuthConfig, error) {
	encoded := os.Getenv("AUTH_JWT_SECRET")
	if encoded == "" {
		return AuthConfig{}, fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	secret, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return AuthConfig{}, fmt.Errorf("AUTH_JWT_SECRET must be base64: %w", err)
	}
	if len(secret) < minSecretBytes {
		return AuthConfig{}, fmt.Errorf("AUTH_JWT_SECRET must decode to at least %d bytes, got %d", minSecretBytes, len(secret))
	}

	accessTTL, err := requiredDuration("AUTH_ACCESS_TOKEN_TTL")
	if err != nil {
		return AuthConfig{}, err
	}
	refreshTTL, err := requiredDuration("AUTH_REFRESH_TOKEN_TTL")
	if err != nil {
		return AuthConfig{}, err
	}

	store := getEnv("AUTH_REFRESH_STORE", RefreshStorePostgres)
	switch store {
	case RefreshStorePostgres, RefreshStoreRedis, RefreshStoreMemory:
	default:
		return AuthConfig{}, fmt.Errorf("invalid AUTH_REFRESH_STORE %q", store)
	}

	sweep, err := time.ParseDuration(getEnv("AUTH_SWEEP_INTERVAL", "1h"))
	if err != nil {
		return AuthConfig{}, fmt.Errorf("invalid AUTH_SWEEP_INTERVAL: %w", err)
	}

	return AuthConfig{
		JWTSecret:       secret,
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
		BcryptCost:      getEnvAsInt("AUTH_BCRYPT_COST", 12),
		RefreshStore:    store,
		SweepInterval:   sweep,
	}, nil
}

func requiredDuration(key string) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return parsed, nil
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
