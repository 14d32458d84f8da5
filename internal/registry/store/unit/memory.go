package unit

import (
	"context"
	"sort"
	"strings"
	"sync"

	"atomfleet/internal/registry/models"
	id "atomfleet/pkg/domain"
	"atomfleet/pkg/platform/sentinel"
)

// InMemory stores unit projections keyed by id with a (site, lowercased
// name) uniqueness index, mirroring the postgres unique constraint.
type InMemory struct {
	mu    sync.RWMutex
	units map[id.UnitID]*models.Unit
	names map[string]id.UnitID
}

func NewInMemory() *InMemory {
	return &InMemory{
		units: make(map[id.UnitID]*models.Unit),
		names: make(map[string]id.UnitID),
	}
}

func nameKey(siteID id.SiteID, name string) string {
	return siteID.String() + "/" + strings.ToLower(name)
}

// CreateIfNameAvailable inserts the unit unless its name is taken within
// the site. The check and insert share one critical section.
func (s *InMemory) CreateIfNameAvailable(_ context.Context, u *models.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := nameKey(u.SiteID, u.Name)
	if _, taken := s.names[key]; taken {
		return sentinel.ErrAlreadyUsed
	}
	cp := *u
	s.units[u.ID] = &cp
	s.names[key] = u.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, unitID id.UnitID) (*models.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.units[unitID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// Update replaces the stored projection, maintaining the name index when
// the unit was renamed.
func (s *InMemory) Update(_ context.Context, u *models.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.units[u.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	oldKey := nameKey(current.SiteID, current.Name)
	newKey := nameKey(u.SiteID, u.Name)
	if oldKey != newKey {
		if owner, taken := s.names[newKey]; taken && owner != u.ID {
			return sentinel.ErrAlreadyUsed
		}
		delete(s.names, oldKey)
		s.names[newKey] = u.ID
	}
	cp := *u
	s.units[u.ID] = &cp
	return nil
}

func (s *InMemory) List(_ context.Context) ([]models.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Unit, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, *u)
	}
	sortUnits(out)
	return out, nil
}

func (s *InMemory) ListByStatus(_ context.Context, status models.UnitStatus) ([]models.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Unit
	for _, u := range s.units {
		if u.Status == status {
			out = append(out, *u)
		}
	}
	sortUnits(out)
	return out, nil
}

// sortUnits keeps listings deterministic: by name, then id as tiebreak.
func sortUnits(units []models.Unit) {
	sort.Slice(units, func(i, j int) bool {
		if units[i].Name != units[j].Name {
			return units[i].Name < units[j].Name
		}
		return units[i].ID.String() < units[j].ID.String()
	})
}
