package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/omniloja/sellerbridge/internal/pkg/env"
)

// Config is the process-wide read-only configuration. It is built once at
// startup and handed to each component's constructor; business logic never
// reads the environment directly.
type Config struct {
	AppHost string
	AppPort string

	// Billing provider (Asaas) API access.
	AsaasBaseURL string `validate:"required,url"`
	AsaasAPIKey  string `validate:"required"`

	// Marketplace platform (Webkul) API access.
	WebkulBaseURL string `validate:"required,url"`
	WebkulAPIKey  string `validate:"required"`

	// Shared secret checked against the X-Webhook-Secret header. Empty
	// disables the check.
	WebhookSecret string

	// Static key protecting the operational stats endpoint. Empty
	// disables the guard.
	OpsAPIKey string

	// Defaults applied when building a seller request.
	DefaultContact string `validate:"required"`
	DefaultState   string `validate:"required"`
	DefaultCountry string `validate:"required"`
	PlanID         string `validate:"required"`
	PlanName       string `validate:"required"`

	// Bound on every upstream call (customer fetch, payment fetch, seller
	// creation).
	UpstreamTimeout time.Duration

	// TTL for the per-payment provisioning lock.
	LockTTL time.Duration

	CacheHost string
	CachePort string
}

// Load reads configuration from the environment. Call env.SetupEnvFile first.
func Load() (*Config, error) {
	cfg := &Config{
		AppHost:         env.GetEnv("APP_HOST", "0.0.0.0"),
		AppPort:         env.GetEnv("APP_PORT", "5000"),
		AsaasBaseURL:    env.GetEnv("ASAAS_BASE_URL", "https://api.asaas.com/v3"),
		AsaasAPIKey:     env.GetEnv("ASAAS_API_KEY", ""),
		WebkulBaseURL:   env.GetEnv("WEBKUL_BASE_URL", ""),
		WebkulAPIKey:    env.GetEnv("WEBKUL_API_KEY", ""),
		WebhookSecret:   env.GetEnv("WEBHOOK_SECRET", ""),
		OpsAPIKey:       env.GetEnv("OPS_API_KEY", ""),
		DefaultContact:  env.GetEnv("SELLER_DEFAULT_CONTACT", "0000000000"),
		DefaultState:    env.GetEnv("SELLER_DEFAULT_STATE", "SP"),
		DefaultCountry:  env.GetEnv("SELLER_DEFAULT_COUNTRY", "BR"),
		PlanID:          env.GetEnv("SELLER_PLAN_ID", ""),
		PlanName:        env.GetEnv("SELLER_PLAN_NAME", ""),
		UpstreamTimeout: secondsEnv("UPSTREAM_TIMEOUT_SECONDS", 10),
		LockTTL:         secondsEnv("PROVISION_LOCK_TTL_SECONDS", 30),
		CacheHost:       env.GetEnv("CACHE_HOST", "localhost"),
		CachePort:       env.GetEnv("CACHE_PORT", "6379"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func secondsEnv(key string, def int) time.Duration {
	raw := env.GetEnv(key, "")
	if raw == "" {
		return time.Duration(def) * time.Second
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return time.Duration(def) * time.Second
	}
	return time.Duration(n) * time.Second
}
