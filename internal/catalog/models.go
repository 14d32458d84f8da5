package catalog

import (
	id "atomfleet/pkg/domain"
)

// EntityKind names a reference-data collection the registry validates
// foreign keys against.
type EntityKind string

const (
	KindCountry      EntityKind = "country"
	KindSite         EntityKind = "site"
	KindOrganization EntityKind = "organization"
	KindDesign       EntityKind = "design"
)

// Country is a reference-data row. The registry never writes these.
type Country struct {
	ID   id.CountryID `json:"id"`
	Code string       `json:"code"`
	Name string       `json:"name"`
}

// Site locates one or more units in a country. Rollups join units to
// countries through this record.
type Site struct {
	ID        id.SiteID    `json:"id"`
	Name      string       `json:"name"`
	CountryID id.CountryID `json:"country_id"`
}

// Organization is an operator or owner of units.
type Organization struct {
	ID      id.OrganizationID `json:"id"`
	Name    string            `json:"name"`
	Acronym string            `json:"acronym,omitempty"`
}

// Design is a reactor design (type + model, e.g. PWR / EPR).
type Design struct {
	ID    id.DesignID `json:"id"`
	Type  string      `json:"type"`
	Model string      `json:"model"`
}
