package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	Timezone    string
	PublicDir   string

	OTLPEndpoint  string
	Observability ObservabilityConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Auth      AuthConfig
	Bootstrap BootstrapConfig
	Email     EmailConfig
	Validator EmailValidationConfig
	OTP       OTPConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig

	DefaultDailyThreshold float64
}

// ObservabilityConfig carries logging and telemetry knobs.
type ObservabilityConfig struct {
	LogLevel           string
	LogFormat          string
	OtelEnabled        bool
	OTLPProtocol       string
	SamplingRatio      float64
	MetricsInterval    time.Duration
	SlowQueryThreshold time.Duration
	TraceHealthChecks  bool
}

type AuthConfig struct {
	JWTSecret        string
	JWTTTL           time.Duration
	AllowAdminSignup bool
}

// BootstrapConfig seeds an administrator on startup when Email is set.
type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

func (c EmailConfig) Enabled() bool {
	return strings.TrimSpace(c.SMTPHost) != ""
}

type EmailValidationConfig struct {
	APIKey   string
	URL      string
	Timeout  time.Duration
	MinScore float64
}

type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
	Store       string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type RateLimitConfig struct {
	OTPRate       float64
	OTPBurst      int
	UsageLockTTL  time.Duration
	UsageLockWait time.Duration
}

const (
	OTPStoreDB    = "db"
	OTPStoreRedis = "redis"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "aquaalerts"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":5000"),
		Timezone:     strings.TrimSpace(getenv("APP_TIMEZONE", "Local")),
		PublicDir:    getenv("PUBLIC_DIR", "./public"),
		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),

		Observability: ObservabilityConfig{
			LogLevel:           strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:          strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", ""))),
			OtelEnabled:        getenvBool("OTEL_ENABLED", false),
			OTLPProtocol:       strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			SamplingRatio:      getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
			MetricsInterval:    getenvDuration("OTEL_METRICS_INTERVAL", 15*time.Second),
			SlowQueryThreshold: getenvDuration("DATABASE_SLOW_QUERY_THRESHOLD", 200*time.Millisecond),
			TraceHealthChecks:  getenvBool("OTEL_TRACE_HEALTH_CHECKS", false),
		},

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "aquaalerts"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "aquaalerts.db"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),

		Auth: AuthConfig{
			JWTSecret:        strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
			JWTTTL:           getenvDuration("AUTH_JWT_TTL", 30*24*time.Hour),
			AllowAdminSignup: getenvBool("AUTH_ALLOW_ADMIN_SIGNUP", false),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    strings.ToLower(strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_EMAIL", ""))),
			AdminPassword: getenv("BOOTSTRAP_ADMIN_PASSWORD", ""),
			AdminName:     getenv("BOOTSTRAP_ADMIN_NAME", "AquaAlerts Admin"),
		},
		Email: EmailConfig{
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     int(getenvInt64("SMTP_PORT", 587)),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "AquaAlerts <no-reply@aquaalerts.local>"),
		},
		Validator: EmailValidationConfig{
			APIKey:   strings.TrimSpace(getenv("EMAIL_VALIDATION_API_KEY", "")),
			URL:      getenv("EMAIL_VALIDATION_URL", "https://api.emailvalidation.io/v1/info"),
			Timeout:  getenvDuration("EMAIL_VALIDATION_TIMEOUT", 10*time.Second),
			MinScore: getenvFloat("EMAIL_VALIDATION_MIN_SCORE", 0.70),
		},
		OTP: OTPConfig{
			TTL:         getenvDuration("OTP_TTL", 10*time.Minute),
			MaxAttempts: int(getenvInt64("OTP_MAX_ATTEMPTS", 5)),
			Store:       normalizeOTPStore(getenv("OTP_STORE", OTPStoreDB)),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		RateLimit: RateLimitConfig{
			OTPRate:       getenvFloat("RATE_LIMIT_OTP_RATE", 1.0/60.0),
			OTPBurst:      int(getenvInt64("RATE_LIMIT_OTP_BURST", 3)),
			UsageLockTTL:  getenvDuration("USAGE_LOCK_TTL", 5*time.Second),
			UsageLockWait: getenvDuration("USAGE_LOCK_WAIT", 250*time.Millisecond),
		},
		DefaultDailyThreshold: getenvFloat("DEFAULT_DAILY_THRESHOLD", 200),
	}

	if cfg.Auth.JWTSecret == "" {
		log.Println("AUTH_JWT_SECRET is empty; tokens are signed with an ephemeral development secret")
	}
	if cfg.OTP.Store == OTPStoreRedis && !cfg.Redis.Enabled() {
		log.Println("OTP_STORE=redis requires REDIS_ADDR; falling back to db")
		cfg.OTP.Store = OTPStoreDB
	}

	return cfg
}

// Location resolves the calendar used to normalize usage days.
func (c Config) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("unknown APP_TIMEZONE %q, using local time: %v", name, err)
		return time.Local
	}
	return loc
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func normalizeOTPStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case OTPStoreRedis:
		return OTPStoreRedis
	default:
		return OTPStoreDB
	}
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

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
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
