package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

type recordingHandlers struct {
	calls []string
	err   error
}

func (h *recordingHandlers) Activate(_ context.Context, ev domain.CheckoutCompleted) error {
	h.calls = append(h.calls, "activate:"+ev.ID)
	return h.err
}

func (h *recordingHandlers) MarkPastDue(_ context.Context, ev domain.PaymentFailed) error {
	h.calls = append(h.calls, "past_due:"+ev.ID)
	return h.err
}

func (h *recordingHandlers) Cancel(_ context.Context, ev domain.SubscriptionDeleted) error {
	h.calls = append(h.calls, "cancel:"+ev.ID)
	return h.err
}

func (h *recordingHandlers) ChangeTier(_ context.Context, ev domain.SubscriptionUpdated) error {
	h.calls = append(h.calls, "change_tier:"+ev.ID)
	return h.err
}

func TestEventRouter_Route(t *testing.T) {
	tests := []struct {
		name  string
		event domain.Event
		want  []string
	}{
		{"checkout completed", checkout("evt_1", "u1", "sub_1", "monthly"), []string{"activate:evt_1"}},
		{"payment failed", paymentFailed("evt_2", "sub_1"), []string{"past_due:evt_2"}},
		{"subscription deleted", deleted("evt_3", "sub_1"), []string{"cancel:evt_3"}},
		{"subscription updated", updated("evt_5", "sub_1", "year"), []string{"change_tier:evt_5"}},
		{"unrecognized", domain.UnrecognizedEvent{EventMeta: domain.EventMeta{ID: "evt_4", Type: "customer.created"}}, nil},
		{"nil event", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers := &recordingHandlers{}
			router := NewEventRouter(handlers, nil)

			require.NoError(t, router.Route(context.Background(), tt.event))
			assert.Equal(t, tt.want, handlers.calls)
		})
	}
}

func TestEventRouter_ReturnsHandlerError(t *testing.T) {
	handlerErr := errors.New("store unavailable")
	router := NewEventRouter(&recordingHandlers{err: handlerErr}, nil)

	err := router.Route(context.Background(), deleted("evt_1", "sub_1"))

	assert.ErrorIs(t, err, handlerErr)
}
