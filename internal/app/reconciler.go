/**
 * @description
 * This file contains the subscription reconciliation logic. Each handler turns
 * one authenticated Stripe event into a targeted profile mutation.
 *
 * Key features:
 * - Idempotent: every mutation is a field-set, never an increment, so replays
 *   and reordering converge on the processor's latest state.
 * - Resolution misses (no profile for the correlation key) are logged and
 *   acknowledged so the processor does not redeliver them forever.
 * - Store failures are returned unchanged so the processor retries delivery.
 */
package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

// Reconciler applies processor events to profiles.
type Reconciler struct {
	store    ProfileStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewReconciler creates a Reconciler. notifier may be nil.
func NewReconciler(store ProfileStore, notifier Notifier, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Activate records a completed checkout: Unsubscribed|PastDue|Active -> Active.
func (r *Reconciler) Activate(ctx context.Context, event domain.CheckoutCompleted) error {
	log := r.eventLogger(event.EventMeta).With(
		zap.String("session_id", event.SessionID),
		zap.String("user_id", event.UserID),
		zap.String("subscription_id", event.SubscriptionID),
	)

	if event.UserID == "" {
		// TODO: confirm with product whether a paid checkout without a linked user should page someone.
		log.Warn("checkout completed without user id; acknowledging without changes")
		return nil
	}
	if event.SubscriptionID == "" {
		log.Warn("checkout completed without subscription id; acknowledging without changes")
		return nil
	}

	tier := event.Tier
	if tier == "" {
		log.Warn("checkout completed without plan type; recording unspecified tier")
		tier = domain.TierUnspecified
	}

	created, err := r.store.Create(ctx, event.UserID, event.Email)
	if err != nil {
		log.Error("failed to ensure profile", zap.Error(err))
		return err
	}
	if created {
		log.Info("created profile for checkout that completed before first session")
	}

	if err := r.store.Update(ctx, event.UserID, activationUpdate(event.SubscriptionID, tier)); err != nil {
		log.Error("failed to activate subscription", zap.Error(err))
		return err
	}

	log.Info("subscription activated", zap.String("tier", tier))
	r.notify(ctx, log, domain.SubscriptionChanged{
		EventID:        event.ID,
		UserID:         event.UserID,
		SubscriptionID: event.SubscriptionID,
		Tier:           tier,
		State:          domain.StateActive,
	})
	return nil
}

// MarkPastDue records a failed invoice charge: Active -> PastDue. Tier and
// subscription ID are kept so a later successful payment needs no new plan.
func (r *Reconciler) MarkPastDue(ctx context.Context, event domain.PaymentFailed) error {
	log := r.eventLogger(event.EventMeta).With(
		zap.String("invoice_id", event.InvoiceID),
		zap.String("subscription_id", event.SubscriptionID),
	)

	profile, err := r.resolve(ctx, log, event.SubscriptionID)
	if err != nil || profile == nil {
		return err
	}
	log = log.With(zap.String("user_id", profile.UserID))

	if missed, err := r.applyToSubscription(ctx, log, event.SubscriptionID, pastDueUpdate()); missed || err != nil {
		if err != nil {
			log.Error("failed to mark subscription past due", zap.Error(err))
		}
		return err
	}

	log.Info("subscription marked past due")
	r.notify(ctx, log, domain.SubscriptionChanged{
		EventID:        event.ID,
		UserID:         profile.UserID,
		SubscriptionID: event.SubscriptionID,
		Tier:           profile.SubscriptionTier.String,
		State:          domain.StatePastDue,
	})
	return nil
}

// Cancel records a deleted subscription: Active|PastDue -> Unsubscribed. The
// subscription ID is released so it can never resolve to this profile again.
func (r *Reconciler) Cancel(ctx context.Context, event domain.SubscriptionDeleted) error {
	log := r.eventLogger(event.EventMeta).With(zap.String("subscription_id", event.SubscriptionID))

	profile, err := r.resolve(ctx, log, event.SubscriptionID)
	if err != nil || profile == nil {
		return err
	}
	log = log.With(zap.String("user_id", profile.UserID))

	if missed, err := r.applyToSubscription(ctx, log, event.SubscriptionID, cancellationUpdate()); missed || err != nil {
		if err != nil {
			log.Error("failed to cancel subscription", zap.Error(err))
		}
		return err
	}

	log.Info("subscription cancelled")
	r.notify(ctx, log, domain.SubscriptionChanged{
		EventID:        event.ID,
		UserID:         profile.UserID,
		SubscriptionID: event.SubscriptionID,
		State:          domain.StateUnsubscribed,
	})
	return nil
}

// ChangeTier records a plan switch on a live subscription. Only the tier
// changes; activity is driven by checkout, payment-failure and deletion events.
func (r *Reconciler) ChangeTier(ctx context.Context, event domain.SubscriptionUpdated) error {
	log := r.eventLogger(event.EventMeta).With(
		zap.String("subscription_id", event.SubscriptionID),
		zap.String("status", event.Status),
	)

	if event.Tier == "" {
		log.Debug("subscription updated without plan type; acknowledging without changes")
		return nil
	}

	profile, err := r.resolve(ctx, log, event.SubscriptionID)
	if err != nil || profile == nil {
		return err
	}
	log = log.With(zap.String("user_id", profile.UserID), zap.String("tier", event.Tier))

	if profile.SubscriptionTier.Valid && profile.SubscriptionTier.String == event.Tier {
		log.Debug("subscription tier unchanged")
		return nil
	}

	if missed, err := r.applyToSubscription(ctx, log, event.SubscriptionID, tierUpdate(event.Tier)); missed || err != nil {
		if err != nil {
			log.Error("failed to change subscription tier", zap.Error(err))
		}
		return err
	}

	log.Info("subscription tier changed")
	r.notify(ctx, log, domain.SubscriptionChanged{
		EventID:        event.ID,
		UserID:         profile.UserID,
		SubscriptionID: event.SubscriptionID,
		Tier:           event.Tier,
		State:          profile.State(),
	})
	return nil
}

// resolve finds the profile holding subscriptionID. A nil profile with a nil
// error is a resolution miss.
func (r *Reconciler) resolve(ctx context.Context, log *zap.Logger, subscriptionID string) (*domain.Profile, error) {
	if subscriptionID == "" {
		log.Warn("event carries no subscription id; acknowledging without changes")
		return nil, nil
	}

	profile, err := r.store.GetByProcessorSubscriptionID(ctx, subscriptionID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		log.Info("no profile found for subscription id; acknowledging without changes")
		return nil, nil
	}
	if err != nil {
		log.Error("failed to resolve profile by subscription id", zap.Error(err))
		return nil, err
	}
	return profile, nil
}

// applyToSubscription writes update to the profile still holding
// subscriptionID. missed is true when an activation replaced or released the
// subscription after resolve read it; that is acknowledged like any other miss.
func (r *Reconciler) applyToSubscription(ctx context.Context, log *zap.Logger, subscriptionID string, update domain.ProfileUpdate) (missed bool, err error) {
	err = r.store.UpdateBySubscriptionID(ctx, subscriptionID, update)
	if errors.Is(err, domain.ErrProfileNotFound) {
		log.Info("subscription no longer held by profile; acknowledging without changes")
		return true, nil
	}
	return false, err
}

func (r *Reconciler) notify(ctx context.Context, log *zap.Logger, change domain.SubscriptionChanged) {
	if r.notifier == nil {
		return
	}
	change.OccurredAt = r.now().UTC()
	if err := r.notifier.NotifySubscriptionChanged(ctx, change); err != nil {
		log.Warn("failed to publish subscription change", zap.Error(err))
	}
}

func (r *Reconciler) eventLogger(meta domain.EventMeta) *zap.Logger {
	return r.logger.With(zap.String("event_id", meta.ID), zap.String("event_type", meta.Type))
}

func activationUpdate(subscriptionID, tier string) domain.ProfileUpdate {
	active := true
	state := domain.StateActive
	tierText := domain.Text(tier)
	subText := domain.Text(subscriptionID)
	return domain.ProfileUpdate{
		SubscriptionActive:      &active,
		SubscriptionTier:        &tierText,
		ProcessorSubscriptionID: &subText,
		SubscriptionState:       &state,
	}
}

func pastDueUpdate() domain.ProfileUpdate {
	active := false
	state := domain.StatePastDue
	return domain.ProfileUpdate{
		SubscriptionActive: &active,
		SubscriptionState:  &state,
	}
}

func tierUpdate(tier string) domain.ProfileUpdate {
	tierText := domain.Text(tier)
	return domain.ProfileUpdate{SubscriptionTier: &tierText}
}

func cancellationUpdate() domain.ProfileUpdate {
	active := false
	state := domain.StateUnsubscribed
	tier := domain.NullText()
	sub := domain.NullText()
	return domain.ProfileUpdate{
		SubscriptionActive:      &active,
		SubscriptionTier:        &tier,
		ProcessorSubscriptionID: &sub,
		SubscriptionState:       &state,
	}
}
