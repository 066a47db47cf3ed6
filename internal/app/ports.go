/**
 * @description
 * This file declares the collaborators the application layer depends on. The
 * concrete implementations live in internal/store, pkg/rabbitmq,
 * pkg/llmclient and pkg/stripeclient and are wired together in cmd/main.go.
 */
package app

import (
	"context"

	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

// ProfileStore defines the profile persistence operations the service needs.
// Implementations must execute each call atomically.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	GetByProcessorSubscriptionID(ctx context.Context, subscriptionID string) (*domain.Profile, error)
	Create(ctx context.Context, userID, email string) (bool, error)
	Update(ctx context.Context, userID string, update domain.ProfileUpdate) error
	// UpdateBySubscriptionID applies update only while a profile still holds
	// subscriptionID, returning domain.ErrProfileNotFound otherwise.
	UpdateBySubscriptionID(ctx context.Context, subscriptionID string, update domain.ProfileUpdate) error
}

// Notifier publishes subscription lifecycle changes to other services.
type Notifier interface {
	NotifySubscriptionChanged(ctx context.Context, change domain.SubscriptionChanged) error
}

// SubscriptionProcessor changes subscriptions at the payment processor. The
// local profile follows through the webhooks the processor sends back.
type SubscriptionProcessor interface {
	CancelSubscription(ctx context.Context, subscriptionID string) error
	ChangeSubscriptionPlan(ctx context.Context, subscriptionID, plan string) error
}

// CompletionRequest is a single prompt sent to the language model.
type CompletionRequest struct {
	Model       string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Completer calls a language-model completion endpoint and returns the text.
// A rate-limit response must be reported as domain.ErrRateLimited.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
