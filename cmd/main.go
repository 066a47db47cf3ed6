package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/adityagupta7711/Meal-planner/internal/api"
	"github.com/adityagupta7711/Meal-planner/internal/app"
	"github.com/adityagupta7711/Meal-planner/internal/config"
	"github.com/adityagupta7711/Meal-planner/internal/store"
	"github.com/adityagupta7711/Meal-planner/internal/webhook"
	"github.com/adityagupta7711/Meal-planner/pkg/llmclient"
	"github.com/adityagupta7711/Meal-planner/pkg/rabbitmq"
	"github.com/adityagupta7711/Meal-planner/pkg/ratelimit"
	"github.com/adityagupta7711/Meal-planner/pkg/stripeclient"
)

// maskURLForLog hides credentials embedded in connection URLs.
func maskURLForLog(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "<unparseable>"
	}
	if u.User != nil {
		u.User = url.UserPassword("****", "****")
	}
	return u.String()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	// Load .env file for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("cannot build logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("unable to parse database URL", zap.Error(err))
	}
	dbConfig.MaxConns = cfg.DatabaseMaxConns
	dbConfig.MinConns = 1
	dbConfig.MaxConnLifetime = 30 * time.Minute
	dbConfig.MaxConnIdleTime = 5 * time.Minute

	dbpool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		logger.Fatal("unable to connect to database", zap.Error(err))
	}
	defer dbpool.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := dbpool.Ping(pingCtx); err != nil {
		cancelPing()
		logger.Fatal("database ping failed", zap.Error(err))
	}
	cancelPing()
	logger.Info("database connection established")

	if cfg.RunMigrations {
		applied, err := store.Migrate(dbpool)
		if err != nil {
			logger.Fatal("database migration failed", zap.Error(err))
		}
		logger.Info("database schema ready", zap.Bool("migrations_applied", applied))
	}

	// Lifecycle notifications are optional; billing must keep working without a broker.
	var notifier app.Notifier
	if cfg.RabbitMQURL != "" {
		logger.Info("connecting to RabbitMQ", zap.String("url", maskURLForLog(cfg.RabbitMQURL)))
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("failed to connect to RabbitMQ; continuing without notifications", zap.Error(err))
		} else {
			defer producer.Close()
			notifier = rabbitmq.NewSubscriptionNotifier(producer, cfg.SubscriptionEventsExchange)
		}
	}

	var limiter api.RateLimiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable at startup; limiter will fail open until it recovers",
				zap.String("url", maskURLForLog(cfg.RedisURL)), zap.Error(err))
		}
		cancel()
		limiter = ratelimit.NewLimiter(redisClient, cfg.RedisRateLimitPrefix)
	}

	profileRepo := store.NewProfileRepository(dbpool)
	reconciler := app.NewReconciler(profileRepo, notifier, logger.Named("reconciler"))
	eventRouter := app.NewEventRouter(reconciler, logger.Named("events"))
	var processor app.SubscriptionProcessor
	if cfg.StripeSecretKey != "" {
		processor = stripeclient.NewClient(cfg.StripeSecretKey, cfg.StripePrices())
	} else {
		logger.Warn("STRIPE_SECRET_KEY is not set; subscription cancel and plan changes are disabled")
	}
	profileService := app.NewProfileService(profileRepo, processor, logger.Named("profiles"))

	mealPlanCfg := app.DefaultMealPlanConfig()
	mealPlanCfg.Model = cfg.MealPlanModel
	mealPlanCfg.MaxRetries = cfg.MealPlanMaxRetries
	mealPlanCfg.RetryDelay = cfg.MealPlanRetryDelay
	if cfg.OpenRouterAPIKey == "" {
		logger.Warn("OPENROUTER_API_KEY is not set; meal plan generation will fail")
	}
	generator := app.NewMealPlanGenerator(
		llmclient.NewClient(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL),
		mealPlanCfg,
		logger.Named("mealplans"),
	)

	authenticator := webhook.NewAuthenticator(cfg.StripeWebhookSecret, webhook.WithTolerance(cfg.StripeWebhookTolerance))

	handler := api.NewHandler(
		authenticator,
		eventRouter,
		profileService,
		generator,
		api.Options{RequireSubscription: cfg.MealPlanRequireSubscription},
		logger.Named("api"),
	)
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Auth: api.ClerkAuthMiddleware(api.AuthMiddlewareConfig{
			JWKSURL:             cfg.ClerkJWKSURL,
			ExpectedIssuer:      cfg.ClerkIssuer,
			ExpectedAudience:    cfg.ClerkAudience,
			AllowHeaderFallback: cfg.IsDevelopment(),
		}, logger.Named("auth")),
		MealPlanLimiter: limiter,
		MealPlanLimit:   cfg.MealPlanRateLimitPerMinute,
	}, logger.Named("http"))

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.ServerPort), zap.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
		return
	}

	logger.Info("server gracefully stopped")
}
