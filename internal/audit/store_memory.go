package audit

import (
	"context"
	"sync"
)

// InMemoryStore keeps events in append order. Used in tests and when no
// Kafka brokers are configured.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByUnit(_ context.Context, unitID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if e.UnitID == unitID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns every captured event; test helper.
func (s *InMemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event(nil), s.events...)
}
