package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"

	id "atomfleet/pkg/domain"
	"atomfleet/pkg/platform/sentinel"
)

// InMemory holds the reference catalog in maps. Reference data changes
// rarely, so the store is seeded once and read under an RWMutex.
type InMemory struct {
	mu            sync.RWMutex
	countries     map[id.CountryID]*Country
	sites         map[id.SiteID]*Site
	organizations map[id.OrganizationID]*Organization
	designs       map[id.DesignID]*Design
}

func NewInMemory() *InMemory {
	return &InMemory{
		countries:     make(map[id.CountryID]*Country),
		sites:         make(map[id.SiteID]*Site),
		organizations: make(map[id.OrganizationID]*Organization),
		designs:       make(map[id.DesignID]*Design),
	}
}

// AddCountry seeds a country row.
func (s *InMemory) AddCountry(c Country) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countries[c.ID] = &c
}

// AddSite seeds a site row.
func (s *InMemory) AddSite(site Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[site.ID] = &site
}

// AddOrganization seeds an organization row.
func (s *InMemory) AddOrganization(o Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.organizations[o.ID] = &o
}

// AddDesign seeds a reactor design row.
func (s *InMemory) AddDesign(d Design) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.designs[d.ID] = &d
}

func (s *InMemory) Resolve(_ context.Context, kind EntityKind, ref uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch kind {
	case KindCountry:
		_, ok := s.countries[id.CountryID(ref)]
		return ok, nil
	case KindSite:
		_, ok := s.sites[id.SiteID(ref)]
		return ok, nil
	case KindOrganization:
		_, ok := s.organizations[id.OrganizationID(ref)]
		return ok, nil
	case KindDesign:
		_, ok := s.designs[id.DesignID(ref)]
		return ok, nil
	default:
		return false, nil
	}
}

func (s *InMemory) Site(_ context.Context, ref id.SiteID) (*Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	site, ok := s.sites[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *site
	return &cp, nil
}

func (s *InMemory) Country(_ context.Context, ref id.CountryID) (*Country, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	country, ok := s.countries[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *country
	return &cp, nil
}
