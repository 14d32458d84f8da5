package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	id "atomfleet/pkg/domain"
)

// SeedFile is the on-disk shape of a catalog seed. Reference data ships as
// a YAML document checked into ops config, not as schema rows. IDs are
// plain strings here and parsed into typed ids on apply.
type SeedFile struct {
	Countries     []SeedCountry      `yaml:"countries"`
	Sites         []SeedSite         `yaml:"sites"`
	Organizations []SeedOrganization `yaml:"organizations"`
	Designs       []SeedDesign       `yaml:"designs"`
}

type SeedCountry struct {
	ID   string `yaml:"id"`
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

type SeedSite struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	CountryID string `yaml:"country_id"`
}

type SeedOrganization struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Acronym string `yaml:"acronym,omitempty"`
}

type SeedDesign struct {
	ID    string `yaml:"id"`
	Type  string `yaml:"type"`
	Model string `yaml:"model"`
}

// LoadSeed reads a seed file and populates the in-memory catalog. Sites
// must reference seeded countries so rollup joins cannot dangle.
func LoadSeed(path string, store *InMemory) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog seed: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("parse catalog seed: %w", err)
	}
	return ApplySeed(seed, store)
}

// ApplySeed parses ids, validates cross-references, and loads rows into
// the store.
func ApplySeed(seed SeedFile, store *InMemory) error {
	countries := make(map[string]bool, len(seed.Countries))
	for _, c := range seed.Countries {
		countryID, err := id.ParseCountryID(c.ID)
		if err != nil {
			return fmt.Errorf("country %q: %w", c.Name, err)
		}
		store.AddCountry(Country{ID: countryID, Code: c.Code, Name: c.Name})
		countries[countryID.String()] = true
	}
	for _, s := range seed.Sites {
		siteID, err := id.ParseSiteID(s.ID)
		if err != nil {
			return fmt.Errorf("site %q: %w", s.Name, err)
		}
		countryID, err := id.ParseCountryID(s.CountryID)
		if err != nil {
			return fmt.Errorf("site %q: %w", s.Name, err)
		}
		if !countries[countryID.String()] {
			return fmt.Errorf("site %q references unknown country %s", s.Name, countryID)
		}
		store.AddSite(Site{ID: siteID, Name: s.Name, CountryID: countryID})
	}
	for _, o := range seed.Organizations {
		orgID, err := id.ParseOrganizationID(o.ID)
		if err != nil {
			return fmt.Errorf("organization %q: %w", o.Name, err)
		}
		store.AddOrganization(Organization{ID: orgID, Name: o.Name, Acronym: o.Acronym})
	}
	for _, d := range seed.Designs {
		designID, err := id.ParseDesignID(d.ID)
		if err != nil {
			return fmt.Errorf("design %s %s: %w", d.Type, d.Model, err)
		}
		store.AddDesign(Design{ID: designID, Type: d.Type, Model: d.Model})
	}
	return nil
}
