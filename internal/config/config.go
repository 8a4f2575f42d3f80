package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Payment      PaymentConfig
	Mail         MailConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	Timezone              string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN             string
	ApplicationName string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	MigrationsDir   string
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
	Service     string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int

	// Bootstrap admin account, created or promoted at startup when both are set.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// PaymentConfig holds the Chapa gateway settings.
type PaymentConfig struct {
	APIURL           string
	SecretKey        string
	WebhookSecret    string
	TimeoutSeconds   int
	FrontendURL      string
	WebhookBaseURL   string
	DefaultCurrency  string
	DefaultPhone     string
	VerifyRatePerMin int
}

// MailConfig configures outbound email.
type MailConfig struct {
	SendgridAPIKey string
	FromAddress    string
	FromName       string
}

// NotificationConfig holds recipients and thresholds for alerts.
type NotificationConfig struct {
	AdminEmails            []string
	LargeDonationThreshold decimal.Decimal
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	threshold, err := decimal.NewFromString(getEnv("LARGE_DONATION_THRESHOLD", "10000"))
	if err != nil {
		return nil, fmt.Errorf("invalid LARGE_DONATION_THRESHOLD: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "teqwa-core"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8000"),
			Version:               getEnv("APP_VERSION", "dev"),
			Timezone:              getEnv("APP_TIMEZONE", "Africa/Addis_Ababa"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			ApplicationName: getEnv("APP_NAME", "teqwa-core"),
			MaxConns:        int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:        int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:   getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:   getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
			Service:     getEnv("APP_NAME", "teqwa-core"),
		},
		Auth: AuthConfig{
			JWTSecret:              getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:  getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 12),
			BootstrapAdminEmail:    strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL")),
			BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		},
		Payment: PaymentConfig{
			APIURL:           strings.TrimRight(getEnv("CHAPA_API_URL", "https://api.chapa.co/v1"), "/"),
			SecretKey:        strings.TrimSpace(os.Getenv("CHAPA_SECRET_KEY")),
			WebhookSecret:    os.Getenv("CHAPA_WEBHOOK_SECRET"),
			TimeoutSeconds:   getEnvAsInt("CHAPA_TIMEOUT_SECONDS", 30),
			FrontendURL:      strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
			WebhookBaseURL:   strings.TrimRight(os.Getenv("WEBHOOK_BASE_URL"), "/"),
			DefaultCurrency:  getEnv("PAYMENT_DEFAULT_CURRENCY", "ETB"),
			DefaultPhone:     getEnv("PAYMENT_DEFAULT_PHONE", "0900000000"),
			VerifyRatePerMin: getEnvAsInt("VERIFY_RATE_LIMIT", 30),
		},
		Mail: MailConfig{
			SendgridAPIKey: os.Getenv("SENDGRID_API_KEY"),
			FromAddress:    getEnv("MAIL_FROM", "noreply@teqwa.org"),
			FromName:       getEnv("MAIL_FROM_NAME", "Teqwa Team"),
		},
		Notification: NotificationConfig{
			AdminEmails:            splitList(os.Getenv("ADMIN_ALERT_EMAILS")),
			LargeDonationThreshold: threshold,
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

// Location resolves the configured timezone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Configured reports whether the gateway secret key is present.
func (p PaymentConfig) Configured() bool {
	return p.SecretKey != ""
}

// Timeout returns the outbound gateway call timeout.
func (p PaymentConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// CallbackURL is where the gateway delivers webhooks.
func (p PaymentConfig) CallbackURL() string {
	base := p.WebhookBaseURL
	if base == "" {
		base = strings.Replace(p.FrontendURL, "5173", "8000", 1)
	}
	return base + "/api/v1/payments/webhook/"
}

// ReturnURL is where the payer lands after checkout.
func (p PaymentConfig) ReturnURL(txRef string) string {
	return fmt.Sprintf("%s/payment/success/%s", p.FrontendURL, txRef)
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

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
