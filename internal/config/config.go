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
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Access       AccessConfig
	SLA          SLAConfig
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

// LoggerConfig configures logging behavior. Service appears on every log
// line so aggregated output stays attributable.
type LoggerConfig struct {
	Level   string
	Service string
}

// AccessConfig selects the agent-visibility rule. Parsed and validated at
// startup; an unknown value aborts boot rather than silently falling back.
type AccessConfig struct {
	AgentVisibility string
}

// SLAConfig is the hours-by-priority table used to stamp ticket due dates.
type SLAConfig struct {
	LowHours      int
	MediumHours   int
	HighHours     int
	UrgentHours   int
	CriticalHours int
	DefaultHours  int
}

// HoursFor returns the SLA window for a priority value, falling back to the
// default window for anything unrecognized.
func (s SLAConfig) HoursFor(priority string) int {
	switch priority {
	case "low":
		return s.LowHours
	case "medium":
		return s.MediumHours
	case "high":
		return s.HighHours
	case "urgent":
		return s.UrgentHours
	case "critical":
		return s.CriticalHours
	default:
		return s.DefaultHours
	}
}

// DueIn returns the SLA window for a priority as a duration.
func (s SLAConfig) DueIn(priority string) time.Duration {
	return time.Duration(s.HoursFor(priority)) * time.Hour
}

// NotificationConfig controls how rendered notifications leave the process:
// always logged, and pushed onto a Redis queue for the external mailer when
// QueueEnabled is set.
type NotificationConfig struct {
	EmailFrom    string
	QueueEnabled bool
	QueueKey     string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "q-reserve"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Service: getEnv("APP_NAME", "q-reserve"),
		},
		Access: AccessConfig{
			AgentVisibility: getEnv("ACCESS_AGENT_VISIBILITY", "assigned"),
		},
		SLA: SLAConfig{
			LowHours:      getEnvAsInt("SLA_HOURS_LOW", 72),
			MediumHours:   getEnvAsInt("SLA_HOURS_MEDIUM", 24),
			HighHours:     getEnvAsInt("SLA_HOURS_HIGH", 8),
			UrgentHours:   getEnvAsInt("SLA_HOURS_URGENT", 4),
			CriticalHours: getEnvAsInt("SLA_HOURS_CRITICAL", 1),
			DefaultHours:  getEnvAsInt("SLA_HOURS_DEFAULT", 24),
		},
		Notification: NotificationConfig{
			EmailFrom:    getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			QueueEnabled: getEnvAsBool("NOTIFY_QUEUE_ENABLED", false),
			QueueKey:     getEnv("NOTIFY_QUEUE_KEY", "q-reserve:notifications"),
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
