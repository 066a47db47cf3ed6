package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProfileNotFound is returned by the profile store when no row matches.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrInvariantViolation marks a profile whose fields contradict each other.
	ErrInvariantViolation = errors.New("profile invariant violated")
	// ErrRateLimited is returned when the language-model endpoint signals rate limiting.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrSubscriptionRequired is returned when a premium feature is requested without an active subscription.
	ErrSubscriptionRequired = errors.New("active subscription required")
	// ErrNoSubscription is returned when a management action targets a profile
	// that holds no processor subscription.
	ErrNoSubscription = errors.New("no subscription to manage")
	// ErrUnknownPlan is returned for a plan with no configured processor price.
	ErrUnknownPlan = errors.New("unknown subscription plan")
	// ErrSubscriptionManagementDisabled is returned when no processor client is configured.
	ErrSubscriptionManagementDisabled = errors.New("subscription management is not configured")
)

// StoreError wraps a persistence failure. It is treated as transient: the
// processor is expected to redeliver the event that caused it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// GenerationError reports a meal-plan response that could not be trusted.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("meal plan generation failed: %s: %v", e.Reason, e.Err)
	}
	return "meal plan generation failed: " + e.Reason
}

func (e *GenerationError) Unwrap() error { return e.Err }
