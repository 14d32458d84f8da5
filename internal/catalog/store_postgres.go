package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "atomfleet/pkg/domain"
	"atomfleet/pkg/platform/sentinel"
)

// Postgres reads reference data maintained by the upstream catalog service.
// This side only ever selects; writes belong to that service.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var kindTables = map[EntityKind]string{
	KindCountry:      "countries",
	KindSite:         "sites",
	KindOrganization: "organizations",
	KindDesign:       "reactor_designs",
}

func (s *Postgres) Resolve(ctx context.Context, kind EntityKind, ref uuid.UUID) (bool, error) {
	table, ok := kindTables[kind]
	if !ok {
		return false, nil
	}
	// Table name comes from the closed kind map, never from input.
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", table)
	var exists bool
	if err := s.pool.QueryRow(ctx, query, ref).Scan(&exists); err != nil {
		return false, fmt.Errorf("resolve %s: %w", kind, err)
	}
	return exists, nil
}

func (s *Postgres) Site(ctx context.Context, ref id.SiteID) (*Site, error) {
	var site Site
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, country_id FROM sites WHERE id = $1`,
		uuid.UUID(ref),
	).Scan(&site.ID, &site.Name, &site.CountryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select site: %w", err)
	}
	return &site, nil
}

func (s *Postgres) Country(ctx context.Context, ref id.CountryID) (*Country, error) {
	var country Country
	err := s.pool.QueryRow(ctx,
		`SELECT id, code, name FROM countries WHERE id = $1`,
		uuid.UUID(ref),
	).Scan(&country.ID, &country.Code, &country.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("select country: %w", err)
	}
	return &country, nil
}
