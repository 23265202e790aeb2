// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq client and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// DedupeConfig provides settings for webhook delivery deduplication.
type DedupeConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetWebhookDedupeTTL() time.Duration
}

// WebhookConfig provides settings for the voice provider webhook route.
type WebhookConfig interface {
	GetWebhookSecret() string
	GetWebhookPublicURL() string
}

// CallProviderConfig provides settings for the voice platform REST API.
type CallProviderConfig interface {
	GetVapiBaseURL() string
	GetProviderTimeout() time.Duration
}

// CalendarConfig provides settings for the calendar provider.
type CalendarConfig interface {
	GetCalendarBaseURL() string
	GetCalendarTokenURL() string
	GetServiceAccountFile() string
	GetCalendarAccessToken() string
	GetCalendarTimezone() string
	GetProviderTimeout() time.Duration
}

// SMTPConfig provides settings for booking notification emails.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	IsSMTPEnabled() bool
}

// StorageConfig provides settings for the MinIO call-report archive.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketCallReports() string
	IsMinIOEnabled() bool
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig interface {
	IsMetricsEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	JWTAccessSecret        string
	CORSAllowAll           bool
	CORSOrigins            []string
	CORSAllowCreds         bool
	RedisURL               string
	RedisTLSInsecure       bool
	AsynqQueueName         string
	AsynqConcurrency       int
	WebhookDedupeTTL       time.Duration
	WebhookSecret          string
	WebhookPublicURL       string
	VapiBaseURL            string
	ProviderTimeout        time.Duration
	CalendarBaseURL        string
	CalendarTokenURL       string
	ServiceAccountFile     string
	CalendarAccessToken    string
	CalendarTimezone       string
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	EmailFromName          string
	EmailFromAddress       string
	MinIOEndpoint          string
	MinIOAccessKey         string
	MinIOSecretKey         string
	MinIOUseSSL            bool
	MinioBucketCallReports string
	MetricsEnabled         bool
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// DedupeConfig implementation
func (c *Config) GetWebhookDedupeTTL() time.Duration { return c.WebhookDedupeTTL }

// WebhookConfig implementation
func (c *Config) GetWebhookSecret() string    { return c.WebhookSecret }
func (c *Config) GetWebhookPublicURL() string { return c.WebhookPublicURL }

// CallProviderConfig implementation
func (c *Config) GetVapiBaseURL() string            { return c.VapiBaseURL }
func (c *Config) GetProviderTimeout() time.Duration { return c.ProviderTimeout }

// CalendarConfig implementation
func (c *Config) GetCalendarBaseURL() string     { return c.CalendarBaseURL }
func (c *Config) GetCalendarTokenURL() string    { return c.CalendarTokenURL }
func (c *Config) GetServiceAccountFile() string  { return c.ServiceAccountFile }
func (c *Config) GetCalendarAccessToken() string { return c.CalendarAccessToken }
func (c *Config) GetCalendarTimezone() string    { return c.CalendarTimezone }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) IsSMTPEnabled() bool {
	return c.SMTPHost != "" && c.EmailFromAddress != ""
}

// StorageConfig implementation
func (c *Config) GetMinIOEndpoint() string          { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string         { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string         { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool              { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketCallReports() string { return c.MinioBucketCallReports }
func (c *Config) IsMinIOEnabled() bool              { return c.MinIOEndpoint != "" }

// MetricsConfig implementation
func (c *Config) IsMetricsEnabled() bool { return c.MetricsEnabled }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		JWTAccessSecret:        getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:           corsAllowAll,
		CORSOrigins:            corsOrigins,
		CORSAllowCreds:         strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:               getEnv("REDIS_URL", ""),
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:         getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:       mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		WebhookDedupeTTL:       mustDuration(getEnv("WEBHOOK_DEDUPE_TTL", "15m")),
		WebhookSecret:          getEnv("WEBHOOK_SECRET", ""),
		WebhookPublicURL:       getEnv("WEBHOOK_PUBLIC_URL", "http://localhost:8080/api/v1/webhook/vapi"),
		VapiBaseURL:            getEnv("VAPI_BASE_URL", "https://api.vapi.ai"),
		ProviderTimeout:        mustDuration(getEnv("PROVIDER_TIMEOUT", "15s")),
		CalendarBaseURL:        getEnv("GOOGLE_CALENDAR_BASE_URL", "https://www.googleapis.com/calendar/v3"),
		CalendarTokenURL:       getEnv("GOOGLE_TOKEN_URL", ""),
		ServiceAccountFile:     getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", "service_account.json"),
		CalendarAccessToken:    getEnv("GOOGLE_CALENDAR_ACCESS_TOKEN", ""),
		CalendarTimezone:       getEnv("CALENDAR_TIMEZONE", "America/New_York"),
		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:           getEnv("SMTP_USERNAME", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		EmailFromName:          getEnv("EMAIL_FROM_NAME", "Revive"),
		EmailFromAddress:       getEnv("EMAIL_FROM_ADDRESS", ""),
		MinIOEndpoint:          getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:         getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:         getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:            strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketCallReports: getEnv("MINIO_BUCKET_CALL_REPORTS", "call-reports"),
		MetricsEnabled:         strings.EqualFold(getEnv("METRICS_ENABLED", "true"), "true"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.WebhookDedupeTTL <= 0 {
		return nil, fmt.Errorf("WEBHOOK_DEDUPE_TTL must be a positive duration")
	}
	if _, err := time.LoadLocation(cfg.CalendarTimezone); err != nil {
		return nil, fmt.Errorf("CALENDAR_TIMEZONE is invalid: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
