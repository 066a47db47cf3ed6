/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables or an optional
 * .env file, providing a centralized place for every setting and its default.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the service.
type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	AppEnv      string `mapstructure:"APP_ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// DatabaseMaxConns caps the pgx pool size.
	DatabaseMaxConns int32 `mapstructure:"DATABASE_MAX_CONNS"`
	RunMigrations    bool  `mapstructure:"RUN_MIGRATIONS"`

	StripeWebhookSecret    string        `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	StripeWebhookTolerance time.Duration `mapstructure:"STRIPE_WEBHOOK_TOLERANCE"`
	// StripeSecretKey enables the subscription management endpoints.
	StripeSecretKey  string `mapstructure:"STRIPE_SECRET_KEY"`
	StripePriceWeek  string `mapstructure:"STRIPE_PRICE_WEEK"`
	StripePriceMonth string `mapstructure:"STRIPE_PRICE_MONTH"`
	StripePriceYear  string `mapstructure:"STRIPE_PRICE_YEAR"`

	ClerkJWKSURL  string `mapstructure:"CLERK_JWKS_URL"`
	ClerkIssuer   string `mapstructure:"CLERK_ISSUER"`
	ClerkAudience string `mapstructure:"CLERK_AUDIENCE"`

	OpenRouterAPIKey            string        `mapstructure:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL           string        `mapstructure:"OPENROUTER_BASE_URL"`
	MealPlanModel               string        `mapstructure:"MEALPLAN_MODEL"`
	MealPlanMaxRetries          int           `mapstructure:"MEALPLAN_MAX_RETRIES"`
	MealPlanRetryDelay          time.Duration `mapstructure:"MEALPLAN_RETRY_DELAY"`
	MealPlanRequireSubscription bool          `mapstructure:"MEALPLAN_REQUIRE_SUBSCRIPTION"`
	MealPlanRateLimitPerMinute  int           `mapstructure:"MEALPLAN_RATE_LIMIT_PER_MINUTE"`

	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`

	RabbitMQURL                string `mapstructure:"RABBITMQ_URL"`
	SubscriptionEventsExchange string `mapstructure:"SUBSCRIPTION_EVENTS_EXCHANGE"`

	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

var boundKeys = []string{
	"SERVER_PORT",
	"APP_ENV",
	"DATABASE_URL",
	"DATABASE_MAX_CONNS",
	"RUN_MIGRATIONS",
	"STRIPE_WEBHOOK_SECRET",
	"STRIPE_WEBHOOK_TOLERANCE",
	"STRIPE_SECRET_KEY",
	"STRIPE_PRICE_WEEK",
	"STRIPE_PRICE_MONTH",
	"STRIPE_PRICE_YEAR",
	"CLERK_JWKS_URL",
	"CLERK_ISSUER",
	"CLERK_AUDIENCE",
	"OPENROUTER_API_KEY",
	"OPENROUTER_BASE_URL",
	"MEALPLAN_MODEL",
	"MEALPLAN_MAX_RETRIES",
	"MEALPLAN_RETRY_DELAY",
	"MEALPLAN_REQUIRE_SUBSCRIPTION",
	"MEALPLAN_RATE_LIMIT_PER_MINUTE",
	"REDIS_URL",
	"REDIS_RATE_LIMIT_PREFIX",
	"RABBITMQ_URL",
	"SUBSCRIPTION_EVENTS_EXCHANGE",
	"CORS_ALLOWED_ORIGINS",
}

// LoadConfig reads configuration from environment variables, falling back to
// a .env file in the given path when one exists.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("DATABASE_MAX_CONNS", 10)
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("STRIPE_WEBHOOK_TOLERANCE", "5m")
	v.SetDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("MEALPLAN_MODEL", "meta-llama/llama-3.2-3b-instruct:free")
	v.SetDefault("MEALPLAN_MAX_RETRIES", 2)
	v.SetDefault("MEALPLAN_RETRY_DELAY", "2s")
	v.SetDefault("MEALPLAN_REQUIRE_SUBSCRIPTION", false)
	v.SetDefault("MEALPLAN_RATE_LIMIT_PER_MINUTE", 10)
	v.SetDefault("REDIS_RATE_LIMIT_PREFIX", "mealplanner:rate_limit")
	v.SetDefault("SUBSCRIPTION_EVENTS_EXCHANGE", "subscription_events")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	for _, key := range boundKeys {
		_ = v.BindEnv(key)
	}

	// The .env file is optional.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	// Hosting platforms inject PORT.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.ServerPort = port
	}
	cfg.CORSAllowedOrigins = splitList(cfg.CORSAllowedOrigins)
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
	cfg.RabbitMQURL = strings.TrimSpace(cfg.RabbitMQURL)
	if cfg.MealPlanMaxRetries < 0 {
		cfg.MealPlanMaxRetries = 0
	}

	return cfg, nil
}

// Validate reports every missing required setting at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DatabaseURL) == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if strings.TrimSpace(c.StripeWebhookSecret) == "" {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_SECRET is required"))
	}
	if strings.TrimSpace(c.ClerkJWKSURL) == "" {
		errs = append(errs, errors.New("CLERK_JWKS_URL is required"))
	}
	if c.StripeWebhookTolerance <= 0 {
		errs = append(errs, errors.New("STRIPE_WEBHOOK_TOLERANCE must be positive"))
	}
	return errors.Join(errs...)
}

// StripePrices maps each plan a user can switch to onto its Stripe price ID.
// Plans without a configured price are omitted.
func (c Config) StripePrices() map[string]string {
	prices := make(map[string]string, 3)
	for plan, price := range map[string]string{
		"week":  c.StripePriceWeek,
		"month": c.StripePriceMonth,
		"year":  c.StripePriceYear,
	} {
		if price = strings.TrimSpace(price); price != "" {
			prices[plan] = price
		}
	}
	return prices
}

// IsDevelopment reports whether the service runs in local development mode.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// splitList accepts both a real list and a single comma-separated env value.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
