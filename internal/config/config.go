package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	MigrateOnStart    bool

	// SchedulerToken is the shared credential trusted callers present to the
	// sync trigger instead of an interactive session.
	SchedulerToken    string
	SchedulerEnabled  bool
	SchedulerInterval time.Duration

	FieldService FieldServiceConfig
	Notify       NotifyConfig
	Redis        RedisConfig
}

// FieldServiceConfig configures access to the external field-service platform.
type FieldServiceConfig struct {
	BaseURL            string        `env:"FIELDSERVICE_BASE_URL" envDefault:"https://api.servicetitan.io"`
	TokenURL           string        `env:"FIELDSERVICE_TOKEN_URL" envDefault:"https://auth.servicetitan.io/connect/token"`
	ClientID           string        `env:"FIELDSERVICE_CLIENT_ID"`
	ClientSecret       string        `env:"FIELDSERVICE_CLIENT_SECRET"`
	TenantID           string        `env:"FIELDSERVICE_TENANT_ID"`
	AppKey             string        `env:"FIELDSERVICE_APP_KEY"`
	Timeout            time.Duration `env:"FIELDSERVICE_TIMEOUT" envDefault:"30s"`
	RetryCount         int           `env:"FIELDSERVICE_RETRY_COUNT" envDefault:"2"`
	PageSize           int           `env:"FIELDSERVICE_PAGE_SIZE" envDefault:"50"`
	ReferenceTTL       time.Duration `env:"FIELDSERVICE_REFERENCE_TTL" envDefault:"10m"`
	RateLimitPerSecond float64       `env:"FIELDSERVICE_RATE_LIMIT_PER_SECOND" envDefault:"0"`
	RateLimitBurst     int           `env:"FIELDSERVICE_RATE_LIMIT_BURST" envDefault:"10"`
}

// NotifyConfig configures contractor payment notifications.
type NotifyConfig struct {
	SlackWebhookURL string `env:"SLACK_WEBHOOK_URL"`
	SMTPHost        string `env:"SMTP_HOST"`
	SMTPPort        int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername    string `env:"SMTP_USERNAME"`
	SMTPPassword    string `env:"SMTP_PASSWORD"`
	SMTPFrom        string `env:"SMTP_FROM"`
	Workers         int    `env:"NOTIFY_WORKERS" envDefault:"2"`
	QueueSize       int    `env:"NOTIFY_QUEUE_SIZE" envDefault:"100"`
}

// RedisConfig is optional; an empty address disables shared rate limiting.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Load loads configuration from environment variables and .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "fieldops"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "fieldops"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		MigrateOnStart:    getenvBool("MIGRATE_ON_START", true),
		SchedulerToken:    strings.TrimSpace(getenv("SCHEDULER_TOKEN", "")),
		SchedulerEnabled:  getenvBool("SCHEDULER_ENABLED", false),
		SchedulerInterval: getenvDuration("SCHEDULER_INTERVAL", time.Hour),
	}

	if err := env.Parse(&cfg.FieldService); err != nil {
		return Config{}, fmt.Errorf("parse field service config: %w", err)
	}
	if err := env.Parse(&cfg.Notify); err != nil {
		return Config{}, fmt.Errorf("parse notify config: %w", err)
	}
	if err := env.Parse(&cfg.Redis); err != nil {
		return Config{}, fmt.Errorf("parse redis config: %w", err)
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
