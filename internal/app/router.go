package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

// SubscriptionHandlers is the set of handlers the EventRouter dispatches to.
type SubscriptionHandlers interface {
	Activate(ctx context.Context, event domain.CheckoutCompleted) error
	MarkPastDue(ctx context.Context, event domain.PaymentFailed) error
	Cancel(ctx context.Context, event domain.SubscriptionDeleted) error
	ChangeTier(ctx context.Context, event domain.SubscriptionUpdated) error
}

// EventRouter dispatches authenticated events by kind.
type EventRouter struct {
	handlers SubscriptionHandlers
	logger   *zap.Logger
}

// NewEventRouter creates a router over the given handlers.
func NewEventRouter(handlers SubscriptionHandlers, logger *zap.Logger) *EventRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventRouter{handlers: handlers, logger: logger}
}

// Route calls the handler for the event's kind synchronously. Unrecognized
// kinds are acknowledged without side effects; handler errors are returned as is.
func (r *EventRouter) Route(ctx context.Context, event domain.Event) error {
	switch ev := event.(type) {
	case domain.CheckoutCompleted:
		return r.handlers.Activate(ctx, ev)
	case domain.PaymentFailed:
		return r.handlers.MarkPastDue(ctx, ev)
	case domain.SubscriptionDeleted:
		return r.handlers.Cancel(ctx, ev)
	case domain.SubscriptionUpdated:
		return r.handlers.ChangeTier(ctx, ev)
	case nil:
		return nil
	default:
		r.logger.Info("unhandled webhook event type",
			zap.String("event_id", event.EventID()),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}
}
