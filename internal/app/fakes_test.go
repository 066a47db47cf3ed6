package app

import (
	"context"
	"sync"
	"time"

	"github.com/adityagupta7711/Meal-planner/internal/domain"
)

// memoryStore is an in-memory ProfileStore that counts mutations.
type memoryStore struct {
	mu        sync.Mutex
	profiles  map[string]domain.Profile
	creates   int
	updates   int
	getErr    error
	lookupErr error
	createErr error
	updateErr error
}

func newMemoryStore(profiles ...domain.Profile) *memoryStore {
	s := &memoryStore{profiles: make(map[string]domain.Profile)}
	for _, p := range profiles {
		if p.SubscriptionState == "" {
			p.SubscriptionState = p.State()
		}
		s.profiles[p.UserID] = p
	}
	return s
}

func (s *memoryStore) Get(_ context.Context, userID string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}

func (s *memoryStore) GetByProcessorSubscriptionID(_ context.Context, subscriptionID string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	for _, p := range s.profiles {
		if p.ProcessorSubscriptionID.Valid && p.ProcessorSubscriptionID.String == subscriptionID {
			found := p
			return &found, nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

func (s *memoryStore) Create(_ context.Context, userID, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return false, s.createErr
	}
	if p, ok := s.profiles[userID]; ok {
		if p.Email == "" && email != "" {
			p.Email = email
			s.profiles[userID] = p
		}
		return false, nil
	}
	s.creates++
	now := time.Now().UTC()
	s.profiles[userID] = domain.Profile{
		UserID:            userID,
		Email:             email,
		SubscriptionState: domain.StateUnsubscribed,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return true, nil
}

func (s *memoryStore) Update(_ context.Context, userID string, update domain.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	p, ok := s.profiles[userID]
	if !ok {
		return domain.ErrProfileNotFound
	}
	s.updates++
	s.profiles[userID] = update.Apply(p)
	return nil
}

func (s *memoryStore) UpdateBySubscriptionID(_ context.Context, subscriptionID string, update domain.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	for userID, p := range s.profiles {
		if p.ProcessorSubscriptionID.Valid && p.ProcessorSubscriptionID.String == subscriptionID {
			s.updates++
			s.profiles[userID] = update.Apply(p)
			return nil
		}
	}
	return domain.ErrProfileNotFound
}

func (s *memoryStore) profile(userID string) (domain.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	return p, ok
}

func (s *memoryStore) all() []domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	return out
}

func (s *memoryStore) mutations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates + s.updates
}

// interleavingStore runs between once, right after the first lookup by
// subscription ID returns and before the caller acts on it.
type interleavingStore struct {
	*memoryStore
	between func()
}

func (s *interleavingStore) GetByProcessorSubscriptionID(ctx context.Context, subscriptionID string) (*domain.Profile, error) {
	p, err := s.memoryStore.GetByProcessorSubscriptionID(ctx, subscriptionID)
	if between := s.between; between != nil {
		s.between = nil
		between()
	}
	return p, err
}

type recordingNotifier struct {
	changes []domain.SubscriptionChanged
	err     error
}

func (n *recordingNotifier) NotifySubscriptionChanged(_ context.Context, change domain.SubscriptionChanged) error {
	n.changes = append(n.changes, change)
	return n.err
}

type recordingProcessor struct {
	cancelled []string
	changes   []string
	err       error
}

func (p *recordingProcessor) CancelSubscription(_ context.Context, subscriptionID string) error {
	p.cancelled = append(p.cancelled, subscriptionID)
	return p.err
}

func (p *recordingProcessor) ChangeSubscriptionPlan(_ context.Context, subscriptionID, plan string) error {
	p.changes = append(p.changes, subscriptionID+":"+plan)
	return p.err
}
