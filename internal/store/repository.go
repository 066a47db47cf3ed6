/**
 * @description
 * This file implements the data access layer for profiles. It contains all the
 * SQL used to read, create and update the per-user subscription record.
 *
 * @notes
 * - Every mutation is a single statement, so concurrent updates to the same key
 *   are serialized by PostgreSQL row locking. No read-modify-write happens here.
 * - Misses surface as domain.ErrProfileNotFound; everything else is wrapped in
 *   a domain.StoreError so callers can treat it as transient.
 */
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

const profileColumns = `id, user_id, email, subscription_active, subscription_tier,
        stripe_subscription_id, subscription_state, created_at, updated_at`

// createProfileQuery returns no row when the user exists with an email, and
// inserted=false when it backfilled an empty one.
const createProfileQuery = `
        INSERT INTO profiles (id, user_id, email, subscription_active, subscription_state)
        VALUES ($1, $2, $3, FALSE, $4)
        ON CONFLICT (user_id) DO UPDATE
            SET email = EXCLUDED.email, updated_at = NOW()
            WHERE profiles.email = '' AND EXCLUDED.email <> ''
        RETURNING (xmax = 0) AS inserted
    `

// ProfileRepository handles database operations for profiles.
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository creates a new repository.
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Get retrieves the profile for a user ID.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	return r.queryProfile(ctx, "get profile", query, userID)
}

// GetByProcessorSubscriptionID retrieves the profile holding a Stripe subscription ID.
func (r *ProfileRepository) GetByProcessorSubscriptionID(ctx context.Context, subscriptionID string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE stripe_subscription_id = $1`
	return r.queryProfile(ctx, "get profile by subscription", query, subscriptionID)
}

// Create inserts an empty profile. An existing row for the user is reported
// with created=false; its email is only written when it was stored empty,
// which happens when a checkout created the profile without one.
func (r *ProfileRepository) Create(ctx context.Context, userID, email string) (bool, error) {
	var inserted bool
	err := r.db.QueryRow(ctx, createProfileQuery, uuid.New(), userID, email, domain.StateUnsubscribed).Scan(&inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &domain.StoreError{Op: "create profile", Err: err}
	}
	return inserted, nil
}

// Update applies a targeted field-set to the user's profile.
func (r *ProfileRepository) Update(ctx context.Context, userID string, update domain.ProfileUpdate) error {
	return r.update(ctx, "user_id", userID, update)
}

// UpdateBySubscriptionID applies update to the profile that still holds
// subscriptionID. If the subscription was replaced or released since it was
// read, no row matches and domain.ErrProfileNotFound is returned.
func (r *ProfileRepository) UpdateBySubscriptionID(ctx context.Context, subscriptionID string, update domain.ProfileUpdate) error {
	return r.update(ctx, "stripe_subscription_id", subscriptionID, update)
}

func (r *ProfileRepository) update(ctx context.Context, keyColumn, key string, update domain.ProfileUpdate) error {
	query, args, err := buildProfileUpdate(keyColumn, key, update)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return &domain.StoreError{Op: "update profile", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %s %s: %w", keyColumn, key, domain.ErrProfileNotFound)
	}
	return nil
}

func (r *ProfileRepository) queryProfile(ctx context.Context, op, query string, arg string) (*domain.Profile, error) {
	var p domain.Profile
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&p.ID,
		&p.UserID,
		&p.Email,
		&p.SubscriptionActive,
		&p.SubscriptionTier,
		&p.ProcessorSubscriptionID,
		&p.SubscriptionState,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, &domain.StoreError{Op: op, Err: err}
	}
	return &p, nil
}

// buildProfileUpdate renders the UPDATE statement for the fields set in
// update, matching rows on keyColumn = key.
func buildProfileUpdate(keyColumn, key string, update domain.ProfileUpdate) (string, []any, error) {
	if strings.TrimSpace(key) == "" {
		return "", nil, fmt.Errorf("%s cannot be empty", keyColumn)
	}
	if update.Empty() {
		return "", nil, errors.New("profile update sets no fields")
	}

	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.SubscriptionActive != nil {
		add("subscription_active", *update.SubscriptionActive)
	}
	if update.SubscriptionTier != nil {
		add("subscription_tier", *update.SubscriptionTier)
	}
	if update.ProcessorSubscriptionID != nil {
		add("stripe_subscription_id", *update.ProcessorSubscriptionID)
	}
	if update.SubscriptionState != nil {
		add("subscription_state", string(*update.SubscriptionState))
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, key)
	query := fmt.Sprintf("UPDATE profiles SET %s WHERE %s = $%d", strings.Join(sets, ", "), keyColumn, len(args))
	return query, args, nil
}
