package api

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/adityagupta7711/Meal-planner/internal/webhook"
)

// maxWebhookBodyBytes bounds a single delivery. Stripe events are far smaller.
const maxWebhookBodyBytes = 1 << 20

// handleStripeWebhook authenticates the delivery against the raw body and
// routes it. Any non-2xx answer makes Stripe redeliver the event later.
func (h *Handler) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Warn("failed to read webhook body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "unable to read request body")
		return
	}

	event, err := h.webhooks.Authenticate(body, r.Header.Get(webhook.SignatureHeader))
	if err != nil {
		h.logger.Warn("rejected webhook delivery", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.events.Route(r.Context(), event); err != nil {
		h.logger.Error("webhook handler failed",
			zap.String("event_id", event.EventID()),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
		writeError(w, http.StatusBadRequest, "webhook handler failed")
		return
	}

	respondWithJSON(w, http.StatusOK, struct{}{})
}
