package record

import (
	"context"
	"sort"
	"sync"

	"atomfleet/internal/generation"
	id "atomfleet/pkg/domain"
	"atomfleet/pkg/platform/sentinel"
)

// InMemory stores generation records with (unit, year) uniqueness. The
// uniqueness check and insert share one lock, so concurrent duplicate
// inserts for the same key cannot both succeed.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.UnitID]map[int]*generation.GenerationRecord
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.UnitID]map[int]*generation.GenerationRecord)}
}

func (s *InMemory) CreateIfYearAvailable(_ context.Context, rec *generation.GenerationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	years, ok := s.records[rec.UnitID]
	if !ok {
		years = make(map[int]*generation.GenerationRecord)
		s.records[rec.UnitID] = years
	}
	if _, taken := years[rec.Year]; taken {
		return sentinel.ErrAlreadyUsed
	}
	cp := *rec
	years[rec.Year] = &cp
	return nil
}

func (s *InMemory) FindByUnitYear(_ context.Context, unitID id.UnitID, year int) (*generation.GenerationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[unitID][year]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *InMemory) ListByUnit(_ context.Context, unitID id.UnitID) ([]generation.GenerationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	years := s.records[unitID]
	out := make([]generation.GenerationRecord, 0, len(years))
	for _, rec := range years {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}
