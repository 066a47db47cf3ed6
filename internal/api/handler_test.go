package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adityagupta7711/Meal-planner/internal/app"
	"github.com/adityagupta7711/Meal-planner/internal/domain"
	"github.com/adityagupta7711/Meal-planner/internal/webhook"
	"github.com/adityagupta7711/Meal-planner/pkg/ratelimit"
)

const testWebhookSecret = "whsec_test_secret"

type recordingDispatcher struct {
	events []domain.Event
	err    error
}

func (d *recordingDispatcher) Route(_ context.Context, event domain.Event) error {
	d.events = append(d.events, event)
	return d.err
}

type fakeProfiles struct {
	created    bool
	createErr  error
	status     *domain.SubscriptionStatus
	statusErr  error
	requireErr error
	manageErr  error
	identities []app.Identity
	cancelled  []string
	planned    []string
}

func (p *fakeProfiles) CreateProfile(_ context.Context, identity app.Identity) (bool, error) {
	p.identities = append(p.identities, identity)
	return p.created, p.createErr
}

func (p *fakeProfiles) GetSubscriptionStatus(_ context.Context, _ string) (*domain.SubscriptionStatus, error) {
	return p.status, p.statusErr
}

func (p *fakeProfiles) RequireActiveSubscription(_ context.Context, _ string) error {
	return p.requireErr
}

func (p *fakeProfiles) CancelSubscription(_ context.Context, userID string) error {
	p.cancelled = append(p.cancelled, userID)
	return p.manageErr
}

func (p *fakeProfiles) ChangePlan(_ context.Context, userID, plan string) error {
	p.planned = append(p.planned, userID+":"+plan)
	return p.manageErr
}

type fakePlanner struct {
	plan     domain.MealPlan
	err      error
	requests []domain.MealPlanRequest
}

func (p *fakePlanner) Generate(_ context.Context, req domain.MealPlanRequest) (domain.MealPlan, error) {
	p.requests = append(p.requests, req)
	return p.plan, p.err
}

type fakeLimiter struct {
	decision ratelimit.Decision
	err      error
	calls    int
}

func (l *fakeLimiter) Allow(_ context.Context, _, _ string, limit int, _ time.Duration) (ratelimit.Decision, error) {
	l.calls++
	d := l.decision
	d.Limit = limit
	return d, l.err
}

type testServer struct {
	router     http.Handler
	dispatcher *recordingDispatcher
	profiles   *fakeProfiles
	planner    *fakePlanner
	now        time.Time
}

type serverOption func(*Options, *RouterConfig)

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ts := &testServer{
		dispatcher: &recordingDispatcher{},
		profiles:   &fakeProfiles{},
		planner:    &fakePlanner{},
		now:        now,
	}

	handlerOpts := Options{}
	routerCfg := RouterConfig{Auth: testAuth}
	for _, opt := range opts {
		opt(&handlerOpts, &routerCfg)
	}

	authenticator := webhook.NewAuthenticator(testWebhookSecret, webhook.WithClock(func() time.Time { return now }))
	h := NewHandler(authenticator, ts.dispatcher, ts.profiles, ts.planner, handlerOpts, nil)
	ts.router = NewRouter(h, routerCfg, nil)
	return ts
}

// testAuth trusts X-Test-User and X-Test-Email.
func testAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-Test-User")
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		identity := app.Identity{ID: userID, Email: r.Header.Get("X-Test-Email")}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func userRequest(method, path, userID, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-Test-User", userID)
		req.Header.Set("X-Test-Email", userID+"@example.com")
	}
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
