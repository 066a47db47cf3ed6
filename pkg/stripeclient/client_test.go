package stripeclient

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

type fakeSubscriptions struct {
	current      *stripe.Subscription
	getErr       error
	updateErr    error
	cancelErr    error
	updated      *stripe.SubscriptionParams
	updatedID    string
	cancelled    []string
	cancelParams *stripe.SubscriptionCancelParams
}

func (f *fakeSubscriptions) Get(id string, _ *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.current, nil
}

func (f *fakeSubscriptions) Update(id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	f.updatedID = id
	f.updated = params
	return f.current, f.updateErr
}

func (f *fakeSubscriptions) Cancel(id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error) {
	f.cancelled = append(f.cancelled, id)
	f.cancelParams = params
	return nil, f.cancelErr
}

func subscriptionWithItem(itemID string) *stripe.Subscription {
	return &stripe.Subscription{
		ID:    "sub_1",
		Items: &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{{ID: itemID}}},
	}
}

var testPrices = map[string]string{"month": "price_month", "Year ": "price_year"}

func TestClient_ChangeSubscriptionPlan(t *testing.T) {
	ctx := context.Background()
	subs := &fakeSubscriptions{current: subscriptionWithItem("si_1")}
	c := newClient(subs, testPrices)

	require.NoError(t, c.ChangeSubscriptionPlan(ctx, "sub_1", " YEAR"))

	assert.Equal(t, "sub_1", subs.updatedID)
	require.NotNil(t, subs.updated)
	require.Len(t, subs.updated.Items, 1)
	assert.Equal(t, "si_1", *subs.updated.Items[0].ID)
	assert.Equal(t, "price_year", *subs.updated.Items[0].Price)
	assert.Equal(t, "create_prorations", *subs.updated.ProrationBehavior)
	assert.Equal(t, "year", subs.updated.Metadata[planMetadataKey])
	assert.Equal(t, ctx, subs.updated.Context)
}

func TestClient_ChangeSubscriptionPlan_Errors(t *testing.T) {
	stripeErr := &stripe.Error{HTTPStatusCode: http.StatusBadGateway, Msg: "upstream"}

	tests := []struct {
		name    string
		plan    string
		subs    *fakeSubscriptions
		wantErr error
	}{
		{
			name:    "plan without a price",
			plan:    "week",
			subs:    &fakeSubscriptions{current: subscriptionWithItem("si_1")},
			wantErr: domain.ErrUnknownPlan,
		},
		{
			name:    "subscription gone at stripe",
			plan:    "month",
			subs:    &fakeSubscriptions{getErr: &stripe.Error{HTTPStatusCode: http.StatusNotFound, Code: stripe.ErrorCodeResourceMissing}},
			wantErr: domain.ErrNoSubscription,
		},
		{
			name:    "update fails",
			plan:    "month",
			subs:    &fakeSubscriptions{current: subscriptionWithItem("si_1"), updateErr: stripeErr},
			wantErr: stripeErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newClient(tt.subs, testPrices).ChangeSubscriptionPlan(context.Background(), "sub_1", tt.plan)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_ChangeSubscriptionPlan_RequiresItem(t *testing.T) {
	subs := &fakeSubscriptions{current: &stripe.Subscription{ID: "sub_1"}}

	err := newClient(subs, testPrices).ChangeSubscriptionPlan(context.Background(), "sub_1", "month")

	require.Error(t, err)
	assert.Nil(t, subs.updated)
}

func TestClient_CancelSubscription(t *testing.T) {
	ctx := context.Background()
	subs := &fakeSubscriptions{}

	require.NoError(t, newClient(subs, testPrices).CancelSubscription(ctx, "sub_1"))
	assert.Equal(t, []string{"sub_1"}, subs.cancelled)
	assert.Equal(t, ctx, subs.cancelParams.Context)

	subs.cancelErr = &stripe.Error{HTTPStatusCode: http.StatusNotFound}
	assert.ErrorIs(t, newClient(subs, testPrices).CancelSubscription(ctx, "sub_1"), domain.ErrNoSubscription)

	failure := errors.New("connection reset")
	subs.cancelErr = failure
	assert.ErrorIs(t, newClient(subs, testPrices).CancelSubscription(ctx, "sub_1"), failure)
}
