/**
 * @description
 * This file defines the Profile record, the single durable per-user record that
 * tracks subscription state, together with the explicit subscription state
 * enumerant that is stored alongside the raw fields.
 *
 * @notes
 * - Nullable columns use pgtype.Text so the JSON form renders SQL NULL as null.
 * - The state column is written by the reconciler on every transition and can be
 *   cross-checked against the raw fields with Validate.
 */
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// SubscriptionState is the conceptual subscription state of a profile.
type SubscriptionState string

const (
	StateUnsubscribed SubscriptionState = "unsubscribed"
	StateActive       SubscriptionState = "active"
	StatePastDue      SubscriptionState = "past_due"
)

// TierUnspecified is recorded when a completed checkout carries no plan type.
const TierUnspecified = "unspecified"

// Profile represents the structure of a user's profile in the database.
type Profile struct {
	ID                      uuid.UUID         `json:"id"`
	UserID                  string            `json:"userId"`
	Email                   string            `json:"email"`
	SubscriptionActive      bool              `json:"subscriptionActive"`
	SubscriptionTier        pgtype.Text       `json:"subscriptionTier"`
	ProcessorSubscriptionID pgtype.Text       `json:"stripeSubscriptionId"`
	SubscriptionState       SubscriptionState `json:"subscriptionState"`
	CreatedAt               time.Time         `json:"createdAt"`
	UpdatedAt               time.Time         `json:"updatedAt"`
}

// State derives the conceptual state from the raw fields.
func (p Profile) State() SubscriptionState {
	switch {
	case p.SubscriptionActive:
		return StateActive
	case p.ProcessorSubscriptionID.Valid:
		return StatePastDue
	default:
		return StateUnsubscribed
	}
}

// Validate reports a violation of the profile invariants.
func (p Profile) Validate() error {
	if p.SubscriptionActive && (!p.SubscriptionTier.Valid || !p.ProcessorSubscriptionID.Valid) {
		return fmt.Errorf("%w: active subscription for user %s is missing tier or subscription id", ErrInvariantViolation, p.UserID)
	}
	if p.SubscriptionState != "" && p.SubscriptionState != p.State() {
		return fmt.Errorf("%w: stored state %q does not match fields (%q) for user %s", ErrInvariantViolation, p.SubscriptionState, p.State(), p.UserID)
	}
	return nil
}

// ProfileUpdate is a targeted field-set applied atomically by the store.
// A nil pointer leaves the column untouched; a pgtype.Text with Valid=false
// writes NULL.
type ProfileUpdate struct {
	SubscriptionActive      *bool
	SubscriptionTier        *pgtype.Text
	ProcessorSubscriptionID *pgtype.Text
	SubscriptionState       *SubscriptionState
}

// Empty reports whether the update sets no field.
func (u ProfileUpdate) Empty() bool {
	return u.SubscriptionActive == nil && u.SubscriptionTier == nil &&
		u.ProcessorSubscriptionID == nil && u.SubscriptionState == nil
}

// Apply returns a copy of p with the update applied.
func (u ProfileUpdate) Apply(p Profile) Profile {
	if u.SubscriptionActive != nil {
		p.SubscriptionActive = *u.SubscriptionActive
	}
	if u.SubscriptionTier != nil {
		p.SubscriptionTier = *u.SubscriptionTier
	}
	if u.ProcessorSubscriptionID != nil {
		p.ProcessorSubscriptionID = *u.ProcessorSubscriptionID
	}
	if u.SubscriptionState != nil {
		p.SubscriptionState = *u.SubscriptionState
	}
	return p
}

// SubscriptionStatus is the DTO returned to the signed-in user.
type SubscriptionStatus struct {
	SubscriptionActive bool              `json:"subscriptionActive"`
	SubscriptionTier   pgtype.Text       `json:"subscriptionTier"`
	State              SubscriptionState `json:"state"`
}

// Text wraps a string as a non-null pgtype.Text.
func Text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}

// NullText is SQL NULL.
func NullText() pgtype.Text {
	return pgtype.Text{}
}
