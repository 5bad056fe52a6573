package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "wizard_sid", cfg.SessionCookieName)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10*time.Second, cfg.CRMTimeout)
	assert.Equal(t, "php", cfg.PaymentCurrency)
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.False(t, cfg.IsProdLike())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("CRM_BASE_URL", "https://crm.example/api/")
	t.Setenv("PAYMENT_CURRENCY", "USD")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "https://crm.example/api", cfg.CRMBaseURL)
	assert.Equal(t, "usd", cfg.PaymentCurrency)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		return &Config{
			AppEnv:            "dev",
			SessionTTL:        time.Hour,
			SessionCookieName: "wizard_sid",
			CookieSameSite:    "Lax",
			CRMBaseURL:        "http://crm",
			CRMTimeout:        time.Second,
			PaymentReturnURL:  "http://api/return",
			FrontendURL:       "http://app",
			CorrelationSecret: defaultCorrelationSecret,
			CorrelationTTL:    time.Hour,
			RateLimitPerMin:   10,
			LedgerRetention:   time.Hour,
		}
	}

	require.NoError(t, validateConfig(base()))

	cfg := base()
	cfg.SessionTTL = 0
	assert.EqualError(t, validateConfig(cfg), "SESSION_TTL must be > 0")

	cfg = base()
	cfg.CookieSameSite = "loose"
	assert.Error(t, validateConfig(cfg))

	cfg = base()
	cfg.CookieSameSite = "None"
	assert.EqualError(t, validateConfig(cfg), "COOKIE_SECURE must be true when COOKIE_SAMESITE=None")

	cfg = base()
	cfg.AppEnv = "production"
	assert.EqualError(t, validateConfig(cfg), "in prod/release CORRELATION_SECRET must be set and not default")

	cfg.CorrelationSecret = "s3cret"
	cfg.StripeSecretKey = "sk_live_x"
	cfg.CRMToken = "t"
	cfg.RedisAddr = "redis:6379"
	assert.EqualError(t, validateConfig(cfg), "in prod/release COOKIE_SECURE must be true")

	cfg.CookieSecure = true
	assert.NoError(t, validateConfig(cfg))
}
