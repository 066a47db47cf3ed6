package app

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

// ErrEmailRequired is returned when the identity provider has no email for the user.
var ErrEmailRequired = errors.New("user does not have an email address")

// Identity is the signed-in user as reported by the identity provider.
type Identity struct {
	ID    string
	Email string
}

// ProfileService provides the profile operations used by signed-in users.
type ProfileService struct {
	store     ProfileStore
	processor SubscriptionProcessor
	logger    *zap.Logger
}

// NewProfileService creates a new profile service. processor may be nil, in
// which case subscription management returns
// domain.ErrSubscriptionManagementDisabled.
func NewProfileService(store ProfileStore, processor SubscriptionProcessor, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{store: store, processor: processor, logger: logger}
}

// CreateProfile creates the user's profile on first session. Calling it again
// for the same user is a successful no-op reported with created=false.
func (s *ProfileService) CreateProfile(ctx context.Context, identity Identity) (bool, error) {
	if strings.TrimSpace(identity.ID) == "" {
		return false, errors.New("user ID cannot be empty")
	}
	email := strings.TrimSpace(identity.Email)
	if email == "" {
		return false, ErrEmailRequired
	}

	created, err := s.store.Create(ctx, identity.ID, email)
	if err != nil {
		s.logger.Error("failed to create profile", zap.String("user_id", identity.ID), zap.Error(err))
		return false, err
	}
	if created {
		s.logger.Info("profile created", zap.String("user_id", identity.ID))
	}
	return created, nil
}

// GetSubscriptionStatus returns the subscription fields of the user's profile.
func (s *ProfileService) GetSubscriptionStatus(ctx context.Context, userID string) (*domain.SubscriptionStatus, error) {
	profile, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := profile.Validate(); err != nil {
		// The read still reflects the stored row; flag it for investigation.
		s.logger.Error("stored profile violates invariants", zap.String("user_id", userID), zap.Error(err))
	}
	return &domain.SubscriptionStatus{
		SubscriptionActive: profile.SubscriptionActive,
		SubscriptionTier:   profile.SubscriptionTier,
		State:              profile.State(),
	}, nil
}

// RequireActiveSubscription gates premium features.
func (s *ProfileService) RequireActiveSubscription(ctx context.Context, userID string) error {
	profile, err := s.store.Get(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return domain.ErrSubscriptionRequired
	}
	if err != nil {
		return err
	}
	if !profile.SubscriptionActive {
		return domain.ErrSubscriptionRequired
	}
	return nil
}

// CancelSubscription asks the processor to cancel the user's subscription.
// The profile is left as is until the deletion webhook arrives.
func (s *ProfileService) CancelSubscription(ctx context.Context, userID string) error {
	subscriptionID, err := s.managedSubscription(ctx, userID)
	if err != nil {
		return err
	}
	log := s.logger.With(zap.String("user_id", userID), zap.String("subscription_id", subscriptionID))

	if err := s.processor.CancelSubscription(ctx, subscriptionID); err != nil {
		log.Error("failed to cancel subscription at processor", zap.Error(err))
		return err
	}
	log.Info("subscription cancellation requested")
	return nil
}

// ChangePlan asks the processor to move the user's subscription to plan.
// The profile tier follows once the update webhook arrives.
func (s *ProfileService) ChangePlan(ctx context.Context, userID, plan string) error {
	plan = strings.TrimSpace(plan)
	if plan == "" {
		return domain.ErrUnknownPlan
	}
	subscriptionID, err := s.managedSubscription(ctx, userID)
	if err != nil {
		return err
	}
	log := s.logger.With(
		zap.String("user_id", userID),
		zap.String("subscription_id", subscriptionID),
		zap.String("plan", plan),
	)

	if err := s.processor.ChangeSubscriptionPlan(ctx, subscriptionID, plan); err != nil {
		log.Error("failed to change subscription plan at processor", zap.Error(err))
		return err
	}
	log.Info("subscription plan change requested")
	return nil
}

// managedSubscription returns the processor subscription ID held by the
// user's profile.
func (s *ProfileService) managedSubscription(ctx context.Context, userID string) (string, error) {
	if s.processor == nil {
		return "", domain.ErrSubscriptionManagementDisabled
	}
	profile, err := s.store.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if !profile.ProcessorSubscriptionID.Valid || profile.ProcessorSubscriptionID.String == "" {
		return "", domain.ErrNoSubscription
	}
	return profile.ProcessorSubscriptionID.String, nil
}
