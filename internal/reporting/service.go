// Package reporting answers cross-entity rollup queries by aggregating the
// registry's projection through the reference catalog.
package reporting

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"atomfleet/internal/catalog"
	"atomfleet/internal/platform/redis"
	"atomfleet/internal/registry/models"
	id "atomfleet/pkg/domain"
	dErrors "atomfleet/pkg/domain-errors"
)

// Units is the registry read the rollup needs.
type Units interface {
	List(ctx context.Context) ([]models.Unit, error)
}

// CountryRollup aggregates one country's units by status plus its total
// operational net capacity.
type CountryRollup struct {
	CountryID         id.CountryID `json:"country_id"`
	CountryCode       string       `json:"country_code"`
	CountryName       string       `json:"country_name"`
	Operational       int          `json:"operational"`
	UnderConstruction int          `json:"under_construction"`
	Planned           int          `json:"planned"`
	Retired           int          `json:"retired"`
	// OperationalNetCapacityMW sums net power over operational units only.
	OperationalNetCapacityMW float64 `json:"operational_net_capacity_mw"`
}

// Service computes rollups. The redis cache is optional: a nil client
// recomputes on every call.
type Service struct {
	units   Units
	catalog catalog.Reader
	cache   *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithCache enables caching of rollup results with the given TTL.
func WithCache(cache *redis.Client, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.ttl = ttl
	}
}

func New(units Units, cat catalog.Reader, opts ...Option) *Service {
	s := &Service{units: units, catalog: cat}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const rollupCacheKey = "atomfleet:rollup:country"

// Rollup joins units through sites to countries and counts them by status.
// Ordering is fixed: operational count descending, then operational net
// capacity descending, then country name ascending as the final tiebreak.
func (s *Service) Rollup(ctx context.Context) ([]CountryRollup, error) {
	if cached, ok := s.fromCache(ctx); ok {
		return cached, nil
	}

	units, err := s.units.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list units")
	}

	countriesBySite, err := s.resolveSites(ctx, units)
	if err != nil {
		return nil, err
	}

	byCountry := make(map[id.CountryID]*CountryRollup)
	for _, u := range units {
		country, ok := countriesBySite[u.SiteID]
		if !ok {
			continue
		}
		roll, ok := byCountry[country.ID]
		if !ok {
			roll = &CountryRollup{
				CountryID:   country.ID,
				CountryCode: country.Code,
				CountryName: country.Name,
			}
			byCountry[country.ID] = roll
		}
		switch {
		case u.Status == models.StatusOperational:
			roll.Operational++
			if u.NetPowerMW != nil {
				roll.OperationalNetCapacityMW += *u.NetPowerMW
			}
		case u.Status == models.StatusUnderConstruction:
			roll.UnderConstruction++
		case u.Status == models.StatusPlanned:
			roll.Planned++
		case u.Status.Retired():
			roll.Retired++
		}
	}

	out := make([]CountryRollup, 0, len(byCountry))
	for _, roll := range byCountry {
		out = append(out, *roll)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Operational != out[j].Operational {
			return out[i].Operational > out[j].Operational
		}
		if out[i].OperationalNetCapacityMW != out[j].OperationalNetCapacityMW {
			return out[i].OperationalNetCapacityMW > out[j].OperationalNetCapacityMW
		}
		return out[i].CountryName < out[j].CountryName
	})

	s.toCache(ctx, out)
	return out, nil
}

// resolveSites fans catalog lookups out per distinct site. The catalog is
// an external collaborator, so lookups run concurrently under one errgroup
// with shared cancellation.
func (s *Service) resolveSites(ctx context.Context, units []models.Unit) (map[id.SiteID]*catalog.Country, error) {
	distinct := make(map[id.SiteID]struct{})
	for _, u := range units {
		distinct[u.SiteID] = struct{}{}
	}

	var mu sync.Mutex
	out := make(map[id.SiteID]*catalog.Country, len(distinct))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for siteID := range distinct {
		siteID := siteID
		g.Go(func() error {
			site, err := s.catalog.Site(ctx, siteID)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "site lookup failed")
			}
			country, err := s.catalog.Country(ctx, site.CountryID)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "country lookup failed")
			}
			mu.Lock()
			out[siteID] = country
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) fromCache(ctx context.Context) ([]CountryRollup, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, rollupCacheKey).Bytes()
	if err != nil {
		return nil, false
	}
	var out []CountryRollup
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

func (s *Service) toCache(ctx context.Context, rollups []CountryRollup) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(rollups)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, rollupCacheKey, payload, s.ttl).Err(); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "rollup cache write failed", "error", err)
	}
}

// Invalidate drops the cached rollup; the registry service invokes it
// after unit mutations so readers converge faster than the TTL.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, rollupCacheKey).Err()
}
