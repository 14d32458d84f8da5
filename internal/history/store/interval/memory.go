package interval

import (
	"context"
	"sync"
	"time"

	"atomfleet/internal/history"
	id "atomfleet/pkg/domain"
	"atomfleet/pkg/platform/sentinel"
)

// InMemory keeps each unit's intervals in append order. Callers serialize
// writes per unit; the mutex only guards map access.
type InMemory struct {
	mu        sync.RWMutex
	intervals map[id.UnitID][]*history.StatusInterval
}

func NewInMemory() *InMemory {
	return &InMemory{intervals: make(map[id.UnitID][]*history.StatusInterval)}
}

func (s *InMemory) Append(_ context.Context, interval *history.StatusInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if interval.ValidTo == nil {
		for _, existing := range s.intervals[interval.UnitID] {
			if existing.ValidTo == nil {
				return sentinel.ErrAlreadyUsed
			}
		}
	}

	cp := *interval
	s.intervals[interval.UnitID] = append(s.intervals[interval.UnitID], &cp)
	return nil
}

func (s *InMemory) CloseOpen(_ context.Context, unitID id.UnitID, at time.Time) (*history.StatusInterval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, interval := range s.intervals[unitID] {
		if interval.ValidTo == nil {
			to := at
			interval.ValidTo = &to
			cp := *interval
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindOpen(_ context.Context, unitID id.UnitID) (*history.StatusInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, interval := range s.intervals[unitID] {
		if interval.ValidTo == nil {
			cp := *interval
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListByUnit(_ context.Context, unitID id.UnitID) ([]history.StatusInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.intervals[unitID]
	out := make([]history.StatusInterval, 0, len(rows))
	for _, interval := range rows {
		out = append(out, *interval)
	}
	return out, nil
}
