package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewWebhookConfigHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	Telemetry TelemetryConfig

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
	DBLogLevel        string
	DBSlowQuery       time.Duration

	// SettingsEncryptionSecret keys the AES-GCM cipher protecting the Stripe
	// private key and webhook secret at rest.
	SettingsEncryptionSecret string

	Stripe     StripeConfig
	Membership MembershipConfig
	Redis      RedisConfig
	Checkout   CheckoutConfig
	Admin      AdminConfig
	Receipt    ReceiptConfig
	Scheduler  SchedulerConfig
}

type StripeConfig struct {
	APIBaseURL string
	Timeout    time.Duration
}

type MembershipConfig struct {
	// ExtensionMonths is the length of the period added by a membership
	// contribution. Zero disables period computation.
	ExtensionMonths int
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type CheckoutConfig struct {
	RateLimitPerMinute int
	RateLimitBurst     int
}

// AdminConfig lists argon2 hashes of the bearer tokens allowed on the admin API.
type AdminConfig struct {
	AdminTokenHashes []string
	StaffTokenHashes []string
}

// TelemetryConfig feeds the zap logger and the OTLP trace and metric exporters.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	OtelEnabled   bool
	OtlpEndpoint  string
	OtlpProtocol  string
	SamplingRatio float64
}

// SchedulerConfig drives the background history watchdog.
type SchedulerConfig struct {
	Enabled        bool
	RunInterval    time.Duration
	StaleThreshold time.Duration
}

type ReceiptConfig struct {
	OrganizationName string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "galette-stripe"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		Telemetry: TelemetryConfig{
			LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			OtelEnabled:   getenvBool("OTEL_ENABLED", false),
			OtlpEndpoint:  strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")),
			OtlpProtocol:  strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "galette"),
		DBUser:            getenv("DATABASE_USER", "galette"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBLogLevel:        strings.ToLower(getenv("DATABASE_LOG_LEVEL", "warn")),
		DBSlowQuery:       getenvDuration("DATABASE_SLOW_QUERY", 200*time.Millisecond),

		SettingsEncryptionSecret: strings.TrimSpace(getenv("SETTINGS_ENCRYPTION_SECRET", "")),

		Stripe: StripeConfig{
			APIBaseURL: strings.TrimRight(getenv("STRIPE_API_BASE_URL", "https://api.stripe.com"), "/"),
			Timeout:    getenvDuration("STRIPE_API_TIMEOUT", 12*time.Second),
		},
		Membership: MembershipConfig{
			ExtensionMonths: getenvInt("MEMBERSHIP_EXTENSION_MONTHS", 12),
		},
		Redis: RedisConfig{
			Enabled:  getenvBool("REDIS_ENABLED", false),
			Addr:     getenv("REDIS_ADDR", "localhost:6379"),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Checkout: CheckoutConfig{
			RateLimitPerMinute: getenvInt("CHECKOUT_RATE_LIMIT_PER_MINUTE", 30),
			RateLimitBurst:     getenvInt("CHECKOUT_RATE_LIMIT_BURST", 10),
		},
		Admin: AdminConfig{
			AdminTokenHashes: splitList(getenv("ADMIN_TOKEN_HASHES", "")),
			StaffTokenHashes: splitList(getenv("STAFF_TOKEN_HASHES", "")),
		},
		Receipt: ReceiptConfig{
			OrganizationName: getenv("RECEIPT_ORGANIZATION_NAME", "Galette"),
		},
		Scheduler: SchedulerConfig{
			Enabled:        getenvBool("SCHEDULER_ENABLED", true),
			RunInterval:    getenvDuration("SCHEDULER_RUN_INTERVAL", time.Minute),
			StaleThreshold: getenvDuration("SCHEDULER_STALE_THRESHOLD", 15*time.Minute),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
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
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

// splitList splits a comma separated value, dropping empty items.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
