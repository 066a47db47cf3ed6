/**
 * @description
 * This file contains the HTTP handler type for the service and the narrow
 * interfaces it consumes. Handlers parse requests, call into internal/app and
 * map the outcome to a status code; they hold no business rules of their own.
 */
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/adityagupta7711/Meal-planner/internal/app"
	"github.com/adityagupta7711/Meal-planner/internal/domain"
	"github.com/adityagupta7711/Meal-planner/pkg/ratelimit"
)

// WebhookAuthenticator verifies a raw webhook delivery.
type WebhookAuthenticator interface {
	Authenticate(body []byte, signatureHeader string) (domain.Event, error)
}

// EventDispatcher routes an authenticated event to its handler.
type EventDispatcher interface {
	Route(ctx context.Context, event domain.Event) error
}

// ProfileService is the profile API used by signed-in users.
type ProfileService interface {
	CreateProfile(ctx context.Context, identity app.Identity) (bool, error)
	GetSubscriptionStatus(ctx context.Context, userID string) (*domain.SubscriptionStatus, error)
	RequireActiveSubscription(ctx context.Context, userID string) error
	CancelSubscription(ctx context.Context, userID string) error
	ChangePlan(ctx context.Context, userID, plan string) error
}

// MealPlanner generates weekly meal plans.
type MealPlanner interface {
	Generate(ctx context.Context, req domain.MealPlanRequest) (domain.MealPlan, error)
}

// RateLimiter is a per-subject request budget.
type RateLimiter interface {
	Allow(ctx context.Context, scope, subject string, limit int, window time.Duration) (ratelimit.Decision, error)
}

// Options tunes handler behaviour.
type Options struct {
	// RequireSubscription gates meal-plan generation behind an active subscription.
	RequireSubscription bool
}

// Handler holds the application services that handlers interact with.
type Handler struct {
	webhooks  WebhookAuthenticator
	events    EventDispatcher
	profiles  ProfileService
	mealPlans MealPlanner
	opts      Options
	logger    *zap.Logger
}

// NewHandler creates a new Handler with the given services.
func NewHandler(
	webhooks WebhookAuthenticator,
	events EventDispatcher,
	profiles ProfileService,
	mealPlans MealPlanner,
	opts Options,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		webhooks:  webhooks,
		events:    events,
		profiles:  profiles,
		mealPlans: mealPlans,
		opts:      opts,
		logger:    logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func writeError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorResponse{Error: message})
}
