package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adityagupta7711/Meal-planner/internal/app"
	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

func TestCreateProfile(t *testing.T) {
	tests := []struct {
		name       string
		created    bool
		err        error
		wantStatus int
	}{
		{name: "created", created: true, wantStatus: http.StatusCreated},
		{name: "already exists", created: false, wantStatus: http.StatusOK},
		{name: "no email", err: app.ErrEmailRequired, wantStatus: http.StatusBadRequest},
		{name: "store failure", err: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.profiles.created = tt.created
			ts.profiles.createErr = tt.err

			rec := ts.do(userRequest(http.MethodPost, "/profiles", "u1", ""))

			assert.Equal(t, tt.wantStatus, rec.Code)
			require.Len(t, ts.profiles.identities, 1)
			assert.Equal(t, app.Identity{ID: "u1", Email: "u1@example.com"}, ts.profiles.identities[0])
		})
	}
}

func TestCreateProfile_RequiresSession(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(userRequest(http.MethodPost, "/profiles", "", ""))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, ts.profiles.identities)
}

func TestGetSubscription(t *testing.T) {
	ts := newTestServer(t)
	ts.profiles.status = &domain.SubscriptionStatus{
		SubscriptionActive: true,
		SubscriptionTier:   domain.Text("monthly"),
		State:              domain.StateActive,
	}

	rec := ts.do(userRequest(http.MethodGet, "/profiles/me/subscription", "u1", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"subscription":{"subscriptionActive":true,"subscriptionTier":"monthly","state":"active"}}`,
		rec.Body.String())
}

func TestGetSubscription_NoProfile(t *testing.T) {
	ts := newTestServer(t)
	ts.profiles.statusErr = domain.ErrProfileNotFound

	rec := ts.do(userRequest(http.MethodGet, "/profiles/me/subscription", "u1", ""))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelSubscription(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "requested", wantStatus: http.StatusAccepted},
		{name: "no profile", err: domain.ErrProfileNotFound, wantStatus: http.StatusNotFound},
		{name: "nothing to cancel", err: domain.ErrNoSubscription, wantStatus: http.StatusConflict},
		{name: "processor not configured", err: domain.ErrSubscriptionManagementDisabled, wantStatus: http.StatusServiceUnavailable},
		{name: "processor failure", err: errors.New("stripe unavailable"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.profiles.manageErr = tt.err

			rec := ts.do(userRequest(http.MethodPost, "/profiles/me/subscription/cancel", "u1", ""))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, []string{"u1"}, ts.profiles.cancelled)
		})
	}
}

func TestChangePlan(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		err         error
		wantStatus  int
		wantPlanned []string
	}{
		{name: "requested", body: `{"newPlan":"year"}`, wantStatus: http.StatusAccepted, wantPlanned: []string{"u1:year"}},
		{name: "unknown plan", body: `{"newPlan":"decade"}`, err: domain.ErrUnknownPlan, wantStatus: http.StatusBadRequest, wantPlanned: []string{"u1:decade"}},
		{name: "nothing to change", body: `{"newPlan":"year"}`, err: domain.ErrNoSubscription, wantStatus: http.StatusConflict, wantPlanned: []string{"u1:year"}},
		{name: "malformed body", body: `{"newPlan":`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.profiles.manageErr = tt.err

			rec := ts.do(userRequest(http.MethodPost, "/profiles/me/subscription/plan", "u1", tt.body))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantPlanned, ts.profiles.planned)
		})
	}
}

func TestManageSubscription_RequiresSession(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/profiles/me/subscription/cancel", "/profiles/me/subscription/plan"} {
		rec := ts.do(userRequest(http.MethodPost, path, "", `{"newPlan":"year"}`))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	assert.Empty(t, ts.profiles.cancelled)
	assert.Empty(t, ts.profiles.planned)
}
