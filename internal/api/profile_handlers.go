package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/adityagupta7711/Meal-planner/internal/app"
	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

type messageResponse struct {
	Message string `json:"message"`
}

type subscriptionResponse struct {
	Subscription *domain.SubscriptionStatus `json:"subscription"`
}

type changePlanRequest struct {
	NewPlan string `json:"newPlan"`
}

const maxChangePlanBodyBytes = 1 << 10

// handleCreateProfile creates the caller's profile on first sign-in.
func (h *Handler) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := CurrentIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	created, err := h.profiles.CreateProfile(r.Context(), identity)
	if err != nil {
		status, message := profileErrorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("failed to create profile", zap.String("user_id", identity.ID), zap.Error(err))
		}
		writeError(w, status, message)
		return
	}

	if created {
		respondWithJSON(w, http.StatusCreated, messageResponse{Message: "Profile created successfully."})
		return
	}
	respondWithJSON(w, http.StatusOK, messageResponse{Message: "Profile already exists."})
}

// handleGetSubscription returns the caller's subscription status.
func (h *Handler) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	identity, ok := CurrentIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	status, err := h.profiles.GetSubscriptionStatus(r.Context(), identity.ID)
	if err != nil {
		code, message := profileErrorStatus(err)
		if code >= http.StatusInternalServerError {
			h.logger.Error("failed to fetch subscription status", zap.String("user_id", identity.ID), zap.Error(err))
		}
		writeError(w, code, message)
		return
	}

	respondWithJSON(w, http.StatusOK, subscriptionResponse{Subscription: status})
}

// handleCancelSubscription asks the processor to cancel the caller's
// subscription. The profile changes when the deletion webhook arrives.
func (h *Handler) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	identity, ok := CurrentIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.profiles.CancelSubscription(r.Context(), identity.ID); err != nil {
		h.writeProfileError(w, "failed to cancel subscription", identity.ID, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, messageResponse{Message: "Subscription cancellation requested."})
}

// handleChangePlan asks the processor to move the caller's subscription to
// another plan. The profile tier changes when the update webhook arrives.
func (h *Handler) handleChangePlan(w http.ResponseWriter, r *http.Request) {
	identity, ok := CurrentIdentity(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req changePlanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChangePlanBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.profiles.ChangePlan(r.Context(), identity.ID, req.NewPlan); err != nil {
		h.writeProfileError(w, "failed to change subscription plan", identity.ID, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, messageResponse{Message: "Subscription plan change requested."})
}

func (h *Handler) writeProfileError(w http.ResponseWriter, msg, userID string, err error) {
	status, message := profileErrorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.String("user_id", userID), zap.Error(err))
	}
	writeError(w, status, message)
}

func profileErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnknownPlan):
		return http.StatusBadRequest, "Unknown plan"
	case errors.Is(err, domain.ErrNoSubscription):
		return http.StatusConflict, "No subscription to manage"
	case errors.Is(err, domain.ErrSubscriptionManagementDisabled):
		return http.StatusServiceUnavailable, "Subscription management is unavailable"
	case errors.Is(err, app.ErrEmailRequired):
		return http.StatusBadRequest, "User does not have an email address"
	case errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusNotFound, "No profile found"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}
