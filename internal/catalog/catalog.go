// Package catalog is the read-only reference-data collaborator. The
// registry core validates foreign keys through Resolver and joins rollups
// through Reader; it never writes catalog rows.
package catalog

import (
	"context"

	"github.com/google/uuid"

	id "atomfleet/pkg/domain"
)

// Resolver answers existence checks for reference-data ids.
type Resolver interface {
	Resolve(ctx context.Context, kind EntityKind, ref uuid.UUID) (bool, error)
}

// Reader exposes the rows rollups need to join units through sites to
// countries.
type Reader interface {
	Site(ctx context.Context, ref id.SiteID) (*Site, error)
	Country(ctx context.Context, ref id.CountryID) (*Country, error)
}
