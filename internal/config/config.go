package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Twilio    TwilioConfig
	Sunburst  SunburstConfig
	Nominatim NominatimConfig
	Dispatch  DispatchConfig
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

// TwilioConfig holds SMS transport credentials.
type TwilioConfig struct {
	AccountSID        string
	AuthToken         string
	FromNumber        string
	PublicBaseURL     string
	ValidateSignature bool
}

// SunburstConfig holds quality-provider session credentials.
type SunburstConfig struct {
	BaseURL        string
	Email          string
	Password       string
	TimeoutSeconds int
}

// NominatimConfig holds geocoder endpoint settings.
type NominatimConfig struct {
	BaseURL        string
	UserAgent      string
	TimeoutSeconds int
}

// DispatchConfig controls the daily forecast batch.
type DispatchConfig struct {
	Enabled                bool
	At                     string // HH:MM local time-of-day
	Timezone               string
	Parallelism            int
	PerClientTimeoutSecond int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "sundown-service"),
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
		Twilio: TwilioConfig{
			AccountSID:        os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:         os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber:        os.Getenv("TWILIO_FROM_NUMBER"),
			PublicBaseURL:     getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
			ValidateSignature: getEnvAsBool("TWILIO_VALIDATE_SIGNATURE", true),
		},
		Sunburst: SunburstConfig{
			BaseURL:        getEnv("SUNBURST_BASE_URL", "https://sunburst.sunsetwx.com/v1"),
			Email:          os.Getenv("SUNBURST_EMAIL"),
			Password:       os.Getenv("SUNBURST_PASSWORD"),
			TimeoutSeconds: getEnvAsInt("SUNBURST_TIMEOUT_SECONDS", 10),
		},
		Nominatim: NominatimConfig{
			BaseURL:        getEnv("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
			UserAgent:      getEnv("NOMINATIM_USER_AGENT", "sundown-service"),
			TimeoutSeconds: getEnvAsInt("NOMINATIM_TIMEOUT_SECONDS", 10),
		},
		Dispatch: DispatchConfig{
			Enabled:                getEnvAsBool("DISPATCH_ENABLED", true),
			At:                     getEnv("DISPATCH_AT", "16:00"),
			Timezone:               getEnv("DISPATCH_TZ", "America/New_York"),
			Parallelism:            getEnvAsInt("DISPATCH_PARALLELISM", 4),
			PerClientTimeoutSecond: getEnvAsInt("DISPATCH_PER_CLIENT_TIMEOUT_SECONDS", 30),
		},
	}

	return cfg, nil
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

// Timeout returns the geocoder HTTP timeout.
func (n NominatimConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// Timeout returns the quality-provider HTTP timeout.
func (s SunburstConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// PerClientTimeout bounds a single client's forecast+send during a batch.
func (d DispatchConfig) PerClientTimeout() time.Duration {
	if d.PerClientTimeoutSecond <= 0 {
		return 30 * time.Second
	}
	return time.Duration(d.PerClientTimeoutSecond) * time.Second
}

// AtTime parses the HH:MM daily trigger time.
func (d DispatchConfig) AtTime() (hour, minute int, err error) {
	if _, err := fmt.Sscanf(d.At, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("invalid DISPATCH_AT %q: %w", d.At, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid DISPATCH_AT %q", d.At)
	}
	return hour, minute, nil
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
