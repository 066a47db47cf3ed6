/**
 * @description
 * This file models the billing events delivered by Stripe once they have been
 * authenticated. Events form a closed tagged union: every recognised kind has a
 * strongly-typed payload and anything else becomes an UnrecognizedEvent.
 */
package domain

import "time"

// Stripe event types handled by this service.
const (
	EventTypeCheckoutCompleted   = "checkout.session.completed"
	EventTypeInvoicePaymentFail  = "invoice.payment_failed"
	EventTypeSubscriptionDeleted = "customer.subscription.deleted"
	EventTypeSubscriptionUpdated = "customer.subscription.updated"
)

// Event is an authenticated processor event.
type Event interface {
	EventID() string
	EventType() string
	isEvent()
}

// EventMeta carries the envelope fields shared by all events.
type EventMeta struct {
	ID        string
	Type      string
	CreatedAt time.Time
	Livemode  bool
}

func (m EventMeta) EventID() string   { return m.ID }
func (m EventMeta) EventType() string { return m.Type }
func (EventMeta) isEvent()            {}

// CheckoutCompleted is a completed checkout session (activation).
type CheckoutCompleted struct {
	EventMeta
	SessionID      string
	UserID         string
	Email          string
	SubscriptionID string
	Tier           string
}

// PaymentFailed is a failed invoice charge. It never carries the user identity.
type PaymentFailed struct {
	EventMeta
	InvoiceID      string
	SubscriptionID string
}

// SubscriptionDeleted is a cancelled subscription.
type SubscriptionDeleted struct {
	EventMeta
	SubscriptionID string
}

// SubscriptionUpdated is a change to a live subscription, such as a plan
// switch. Tier is read from the subscription's plan metadata.
type SubscriptionUpdated struct {
	EventMeta
	SubscriptionID string
	Tier           string
	Status         string
}

// UnrecognizedEvent is any kind outside the handled set.
type UnrecognizedEvent struct {
	EventMeta
}

// SubscriptionChanged is the internal notification published after the
// reconciler has applied a transition.
type SubscriptionChanged struct {
	EventID        string            `json:"event_id"`
	UserID         string            `json:"user_id"`
	SubscriptionID string            `json:"subscription_id,omitempty"`
	Tier           string            `json:"tier,omitempty"`
	State          SubscriptionState `json:"state"`
	OccurredAt     time.Time         `json:"occurred_at"`
}
