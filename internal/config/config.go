package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Billing  BillingConfig
	SMTP     SMTPConfig
	Alerts   AlertConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type BillingConfig struct {
	// WebhookSecret is the shared secret the provider signs payloads with.
	WebhookSecret string
	ServerKey     string
	IsProduction  bool
	PortalBaseURL string
	// ProviderTimeout bounds every outbound call to the billing provider.
	ProviderTimeout time.Duration
	// ResyncInterval drives the periodic full reconciliation sweep.
	ResyncInterval time.Duration
	// LedgerRetention bounds how long processed webhook rows are kept for
	// duplicate detection before purge.
	LedgerRetention time.Duration
	// EntitlementSyncSLA is the accepted latency between payment completion
	// and entitlement visibility. Configured, never hardcoded; resyncs
	// older than this are flagged.
	EntitlementSyncSLA time.Duration
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type AlertConfig struct {
	// OperatorEmail receives escalations (retry threshold, signature floods).
	OperatorEmail string
	// MaxEventAttempts: pending webhook rows redelivered more times than
	// this escalate to the operator.
	MaxEventAttempts int
	// SignatureFailureThreshold: bad signatures per window before alerting.
	SignatureFailureThreshold int
	SignatureFailureWindow    time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Billing: BillingConfig{
			WebhookSecret:      getEnv("BILLING_WEBHOOK_SECRET", ""),
			ServerKey:          getEnv("BILLING_SERVER_KEY", ""),
			IsProduction:       getEnv("BILLING_IS_PRODUCTION", "false") == "true",
			PortalBaseURL:      getEnv("BILLING_PORTAL_BASE_URL", ""),
			ProviderTimeout:    getEnvAsDuration("BILLING_PROVIDER_TIMEOUT", 10*time.Second),
			ResyncInterval:     getEnvAsDuration("BILLING_RESYNC_INTERVAL", 6*time.Hour),
			LedgerRetention:    getEnvAsDuration("WEBHOOK_LEDGER_RETENTION", 30*24*time.Hour),
			EntitlementSyncSLA: getEnvAsDuration("ENTITLEMENT_SYNC_SLA", 60*time.Second),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "ScanGuard"),
		},
		Alerts: AlertConfig{
			OperatorEmail:             getEnv("ALERT_OPERATOR_EMAIL", ""),
			MaxEventAttempts:          getEnvAsInt("ALERT_MAX_EVENT_ATTEMPTS", 5),
			SignatureFailureThreshold: getEnvAsInt("ALERT_SIGNATURE_FAILURE_THRESHOLD", 10),
			SignatureFailureWindow:    getEnvAsDuration("ALERT_SIGNATURE_FAILURE_WINDOW", 5*time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
