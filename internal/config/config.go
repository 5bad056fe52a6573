package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultCorrelationSecret = "change-me-correlation-secret"
	defaultSessionCookieName = "wizard_sid"
	defaultCRMBaseURL        = "http://localhost:9090/api"
)

// Config holds everything the API server and the ledger tools read from the
// environment.
type Config struct {
	AppEnv   string `mapstructure:"APP_ENV"`
	AppPort  string `mapstructure:"APP_PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	SessionTTL        time.Duration `mapstructure:"SESSION_TTL"`
	SessionCookieName string        `mapstructure:"SESSION_COOKIE_NAME"`
	CookieSecure      bool          `mapstructure:"COOKIE_SECURE"`
	CookieSameSite    string        `mapstructure:"COOKIE_SAMESITE"`

	CRMBaseURL string        `mapstructure:"CRM_BASE_URL"`
	CRMToken   string        `mapstructure:"CRM_TOKEN"`
	CRMTimeout time.Duration `mapstructure:"CRM_TIMEOUT"`

	StripeSecretKey  string `mapstructure:"STRIPE_SECRET_KEY"`
	PaymentCurrency  string `mapstructure:"PAYMENT_CURRENCY"`
	PaymentReturnURL string `mapstructure:"PAYMENT_RETURN_URL"`
	FrontendURL      string `mapstructure:"FRONTEND_URL"`

	CorrelationSecret string        `mapstructure:"CORRELATION_SECRET"`
	CorrelationTTL    time.Duration `mapstructure:"CORRELATION_TTL"`

	InternalToken string `mapstructure:"INTERNAL_TOKEN"`

	RateLimitPerMin    int    `mapstructure:"RATE_LIMIT_PER_MIN"`
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	LedgerRetention time.Duration `mapstructure:"LEDGER_RETENTION"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	normalize(cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "hotelwizard.db")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_TTL", "2h")
	v.SetDefault("SESSION_COOKIE_NAME", defaultSessionCookieName)
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("COOKIE_SAMESITE", "Lax")
	v.SetDefault("CRM_BASE_URL", defaultCRMBaseURL)
	v.SetDefault("CRM_TOKEN", "")
	v.SetDefault("CRM_TIMEOUT", "10s")
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("PAYMENT_CURRENCY", "php")
	v.SetDefault("PAYMENT_RETURN_URL", "http://localhost:8080/api/v1/wizard/payment/return")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173/reservation")
	v.SetDefault("CORRELATION_SECRET", defaultCorrelationSecret)
	v.SetDefault("CORRELATION_TTL", "1h")
	v.SetDefault("INTERNAL_TOKEN", "")
	v.SetDefault("RATE_LIMIT_PER_MIN", 30)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("LEDGER_RETENTION", "72h")
}

func normalize(cfg *Config) {
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.SessionCookieName = strings.TrimSpace(cfg.SessionCookieName)
	cfg.CookieSameSite = strings.TrimSpace(cfg.CookieSameSite)
	cfg.CRMBaseURL = strings.TrimRight(strings.TrimSpace(cfg.CRMBaseURL), "/")
	cfg.PaymentCurrency = strings.ToLower(strings.TrimSpace(cfg.PaymentCurrency))
	cfg.CorrelationSecret = strings.TrimSpace(cfg.CorrelationSecret)
}

func validateConfig(cfg *Config) error {
	if cfg.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if cfg.CorrelationTTL <= 0 {
		return fmt.Errorf("CORRELATION_TTL must be > 0")
	}
	if cfg.CRMTimeout <= 0 {
		return fmt.Errorf("CRM_TIMEOUT must be > 0")
	}
	if cfg.LedgerRetention <= 0 {
		return fmt.Errorf("LEDGER_RETENTION must be > 0")
	}
	if cfg.RateLimitPerMin <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MIN must be > 0")
	}
	if cfg.SessionCookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}
	if cfg.CRMBaseURL == "" {
		return fmt.Errorf("CRM_BASE_URL must not be empty")
	}
	if cfg.PaymentReturnURL == "" {
		return fmt.Errorf("PAYMENT_RETURN_URL must not be empty")
	}
	if cfg.FrontendURL == "" {
		return fmt.Errorf("FRONTEND_URL must not be empty")
	}
	sameSite := strings.ToLower(cfg.CookieSameSite)
	if sameSite != "lax" && sameSite != "none" && sameSite != "strict" {
		return fmt.Errorf("COOKIE_SAMESITE must be one of: Lax, None, Strict")
	}
	if sameSite == "none" && !cfg.CookieSecure {
		return fmt.Errorf("COOKIE_SECURE must be true when COOKIE_SAMESITE=None")
	}

	if cfg.IsProdLike() {
		if isEmptyOrDefault(cfg.CorrelationSecret, defaultCorrelationSecret) {
			return fmt.Errorf("in prod/release CORRELATION_SECRET must be set and not default")
		}
		if strings.TrimSpace(cfg.StripeSecretKey) == "" {
			return fmt.Errorf("in prod/release STRIPE_SECRET_KEY must be set")
		}
		if strings.TrimSpace(cfg.CRMToken) == "" {
			return fmt.Errorf("in prod/release CRM_TOKEN must be set")
		}
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return fmt.Errorf("in prod/release REDIS_ADDR must be set")
		}
		if !cfg.CookieSecure {
			return fmt.Errorf("in prod/release COOKIE_SECURE must be true")
		}
	}
	return nil
}

func (c *Config) IsProdLike() bool {
	env := strings.ToLower(strings.TrimSpace(c.AppEnv))
	return env == "prod" || env == "production" || env == "release"
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}
