/**
 * @description
 * This file sets up the HTTP router using go-chi/chi. It applies the shared
 * middleware stack, exposes the unauthenticated Stripe webhook, and groups the
 * user-facing routes behind the Clerk session middleware.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterConfig carries the cross-cutting router settings.
type RouterConfig struct {
	AllowedOrigins []string
	// Auth authenticates user-facing routes, normally ClerkAuthMiddleware.
	Auth func(http.Handler) http.Handler
	// MealPlanLimiter and MealPlanLimit bound generation requests per user per minute.
	MealPlanLimiter RateLimiter
	MealPlanLimit   int
}

// NewRouter creates a new Chi router and registers the service routes.
func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) *chi.Mux {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Meal planner service is healthy"))
	})

	// Stripe authenticates with the signature header, not a session.
	r.Post("/webhooks/stripe", h.handleStripeWebhook)

	r.Group(func(r chi.Router) {
		if cfg.Auth != nil {
			r.Use(cfg.Auth)
		}

		r.Post("/profiles", h.handleCreateProfile)
		r.Get("/profiles/me/subscription", h.handleGetSubscription)
		r.Post("/profiles/me/subscription/cancel", h.handleCancelSubscription)
		r.Post("/profiles/me/subscription/plan", h.handleChangePlan)

		r.With(UserRateLimit(cfg.MealPlanLimiter, "meal_plan", cfg.MealPlanLimit, time.Minute, logger)).
			Post("/meal-plans", h.handleGenerateMealPlan)
	})

	return r
}
