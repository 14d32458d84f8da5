package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "atomfleet/pkg/domain"
	"atomfleet/pkg/platform/sentinel"
)

type CatalogSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *CatalogSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestCatalogSuite(t *testing.T) {
	suite.Run(t, new(CatalogSuite))
}

// TestResolve verifies existence checks across all entity kinds.
func (s *CatalogSuite) TestResolve() {
	countryID := id.CountryID(uuid.New())
	siteID := id.SiteID(uuid.New())
	orgID := id.OrganizationID(uuid.New())
	designID := id.DesignID(uuid.New())

	s.store.AddCountry(Country{ID: countryID, Code: "FR", Name: "France"})
	s.store.AddSite(Site{ID: siteID, Name: "Gravelines", CountryID: countryID})
	s.store.AddOrganization(Organization{ID: orgID, Name: "EDF"})
	s.store.AddDesign(Design{ID: designID, Type: "PWR", Model: "CP1"})

	s.Run("resolves seeded entities", func() {
		for kind, ref := range map[EntityKind]uuid.UUID{
			KindCountry:      uuid.UUID(countryID),
			KindSite:         uuid.UUID(siteID),
			KindOrganization: uuid.UUID(orgID),
			KindDesign:       uuid.UUID(designID),
		} {
			ok, err := s.store.Resolve(s.ctx, kind, ref)
			s.Require().NoError(err)
			s.True(ok, "kind %s", kind)
		}
	})

	s.Run("unknown refs do not resolve", func() {
		ok, err := s.store.Resolve(s.ctx, KindSite, uuid.New())
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("unknown kinds do not resolve", func() {
		ok, err := s.store.Resolve(s.ctx, EntityKind("vendor"), uuid.UUID(orgID))
		s.Require().NoError(err)
		s.False(ok)
	})
}

// TestReader verifies the rollup join lookups.
func (s *CatalogSuite) TestReader() {
	countryID := id.CountryID(uuid.New())
	siteID := id.SiteID(uuid.New())
	s.store.AddCountry(Country{ID: countryID, Code: "FI", Name: "Finland"})
	s.store.AddSite(Site{ID: siteID, Name: "Olkiluoto", CountryID: countryID})

	s.Run("joins site to country", func() {
		site, err := s.store.Site(s.ctx, siteID)
		s.Require().NoError(err)
		s.Equal(countryID, site.CountryID)

		country, err := s.store.Country(s.ctx, site.CountryID)
		s.Require().NoError(err)
		s.Equal("FI", country.Code)
	})

	s.Run("missing rows are ErrNotFound", func() {
		_, err := s.store.Site(s.ctx, id.SiteID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestSeed verifies YAML loading and cross-reference validation.
func (s *CatalogSuite) TestSeed() {
	countryID := uuid.NewString()
	siteID := uuid.NewString()

	s.Run("loads a valid seed file", func() {
		seed := `
countries:
  - id: ` + countryID + `
    code: DE
    name: Germany
sites:
  - id: ` + siteID + `
    name: Isar
    country_id: ` + countryID + `
organizations:
  - id: ` + uuid.NewString() + `
    name: PreussenElektra
designs:
  - id: ` + uuid.NewString() + `
    type: PWR
    model: Konvoi
`
		path := filepath.Join(s.T().TempDir(), "seed.yaml")
		s.Require().NoError(os.WriteFile(path, []byte(seed), 0o600))
		s.Require().NoError(LoadSeed(path, s.store))

		site, err := s.store.Site(s.ctx, mustSiteID(s.T(), siteID))
		s.Require().NoError(err)
		s.Equal("Isar", site.Name)
	})

	s.Run("rejects a site referencing an unknown country", func() {
		seed := SeedFile{
			Sites: []SeedSite{{
				ID:        uuid.NewString(),
				Name:      "Dangling",
				CountryID: uuid.NewString(),
			}},
		}
		err := ApplySeed(seed, NewInMemory())
		s.Require().Error(err)
		s.Contains(err.Error(), "unknown country")
	})

	s.Run("rejects rows without ids", func() {
		seed := SeedFile{Countries: []SeedCountry{{Code: "XX", Name: "Nowhere"}}}
		err := ApplySeed(seed, NewInMemory())
		s.Require().Error(err)
	})

	s.Run("missing file is an error", func() {
		err := LoadSeed(filepath.Join(s.T().TempDir(), "absent.yaml"), NewInMemory())
		s.Require().Error(err)
	})
}

func mustSiteID(t *testing.T, raw string) id.SiteID {
	t.Helper()
	siteID, err := id.ParseSiteID(raw)
	if err != nil {
		t.Fatalf("bad site id %q: %v", raw, err)
	}
	return siteID
}
