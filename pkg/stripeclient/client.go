/**
 * @description
 * This package manages live subscriptions through the Stripe API. It adapts
 * the stripe-go SDK to the app SubscriptionProcessor port.
 *
 * @notes
 * - Nothing here touches the local profile. Stripe answers every change with
 *   a customer.subscription.updated or .deleted webhook, and the reconciler
 *   applies it from there.
 *
 * @dependencies
 * - github.com/stripe/stripe-go/v76: Stripe API client.
 */
package stripeclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

// planMetadataKey is read back from the subscription by the webhook decoder.
const planMetadataKey = "planType"

type subscriptionAPI interface {
	Get(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	Update(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	Cancel(id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error)
}

// Client changes and cancels Stripe subscriptions.
type Client struct {
	subscriptions subscriptionAPI
	prices        map[string]string
}

// NewClient creates a client authenticated with secretKey. prices maps each
// plan name onto its Stripe price ID.
func NewClient(secretKey string, prices map[string]string) *Client {
	return newClient(client.New(secretKey, nil).Subscriptions, prices)
}

func newClient(subscriptions subscriptionAPI, prices map[string]string) *Client {
	normalized := make(map[string]string, len(prices))
	for plan, price := range prices {
		normalized[strings.ToLower(strings.TrimSpace(plan))] = price
	}
	return &Client{subscriptions: subscriptions, prices: normalized}
}

// CancelSubscription cancels the subscription immediately. A subscription
// Stripe no longer knows is reported as domain.ErrNoSubscription.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	if _, err := c.subscriptions.Cancel(subscriptionID, params); err != nil {
		return mapError("cancel subscription", subscriptionID, err)
	}
	return nil
}

// ChangeSubscriptionPlan moves the subscription's single item onto the price
// configured for plan, prorating the difference, and records plan in the
// subscription metadata.
func (c *Client) ChangeSubscriptionPlan(ctx context.Context, subscriptionID, plan string) error {
	plan = strings.ToLower(strings.TrimSpace(plan))
	price, ok := c.prices[plan]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrUnknownPlan, plan)
	}

	getParams := &stripe.SubscriptionParams{}
	getParams.Context = ctx
	sub, err := c.subscriptions.Get(subscriptionID, getParams)
	if err != nil {
		return mapError("get subscription", subscriptionID, err)
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return fmt.Errorf("subscription %s has no items", subscriptionID)
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{{
			ID:    stripe.String(sub.Items.Data[0].ID),
			Price: stripe.String(price),
		}},
		ProrationBehavior: stripe.String("create_prorations"),
	}
	params.Context = ctx
	params.AddMetadata(planMetadataKey, plan)
	if _, err := c.subscriptions.Update(subscriptionID, params); err != nil {
		return mapError("update subscription", subscriptionID, err)
	}
	return nil
}

func mapError(op, subscriptionID string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", op, subscriptionID, domain.ErrNoSubscription)
	}
	return fmt.Errorf("%s %s: %w", op, subscriptionID, err)
}
