package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/adityagupta7711/Meal-planner/internal/app"
	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

const maxMealPlanBodyBytes = 16 << 10

type mealPlanResponse struct {
	MealPlan domain.MealPlan `json:"mealPlan"`
}

// handleGenerateMealPlan generates a weekly plan for the caller's preferences.
func (h *Handler) handleGenerateMealPlan(w http.ResponseWriter, r *http.Request) {
	identity, ok := CurrentIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if h.opts.RequireSubscription {
		if err := h.profiles.RequireActiveSubscription(r.Context(), identity.ID); err != nil {
			h.writeMealPlanError(w, identity.ID, err)
			return
		}
	}

	var req domain.MealPlanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMealPlanBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	plan, err := h.mealPlans.Generate(r.Context(), req)
	if err != nil {
		h.writeMealPlanError(w, identity.ID, err)
		return
	}

	respondWithJSON(w, http.StatusOK, mealPlanResponse{MealPlan: plan})
}

func (h *Handler) writeMealPlanError(w http.ResponseWriter, userID string, err error) {
	status, message := mealPlanErrorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("error generating meal plan", zap.String("user_id", userID), zap.Error(err))
	}
	writeError(w, status, message)
}

func mealPlanErrorStatus(err error) (int, string) {
	var genErr *domain.GenerationError
	switch {
	case errors.Is(err, app.ErrInvalidMealPlanRequest):
		return http.StatusBadRequest, "dietType and a positive calories target are required"
	case errors.Is(err, domain.ErrSubscriptionRequired):
		return http.StatusPaymentRequired, "An active subscription is required to generate meal plans"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "Rate limit exceeded. Please wait and try again."
	case errors.As(err, &genErr):
		return http.StatusInternalServerError, "Failed to parse meal plan. Please try again."
	default:
		return http.StatusInternalServerError, "Failed to generate meal plan. Please try again later."
	}
}
