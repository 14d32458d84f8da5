package domain

import (
	"github.com/google/uuid"

	dErrors "atomfleet/pkg/domain-errors"
)

// Typed identifiers for the fleet domain. Wrapping uuid.UUID keeps unit,
// site, and catalog references from being swapped for one another at
// compile time. Parse helpers enforce the invariant that IDs are valid,
// non-nil UUIDs at trust boundaries.

type UnitID uuid.UUID

type SiteID uuid.UUID

type CountryID uuid.UUID

type OrganizationID uuid.UUID

type DesignID uuid.UUID

func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

func ParseUnitID(raw string) (UnitID, error) {
	parsed, err := parseUUID(raw)
	return UnitID(parsed), err
}

func ParseSiteID(raw string) (SiteID, error) {
	parsed, err := parseUUID(raw)
	return SiteID(parsed), err
}

func ParseCountryID(raw string) (CountryID, error) {
	parsed, err := parseUUID(raw)
	return CountryID(parsed), err
}

func ParseOrganizationID(raw string) (OrganizationID, error) {
	parsed, err := parseUUID(raw)
	return OrganizationID(parsed), err
}

func ParseDesignID(raw string) (DesignID, error) {
	parsed, err := parseUUID(raw)
	return DesignID(parsed), err
}

func NewUnitID() UnitID { return UnitID(uuid.New()) }

func (id UnitID) String() string { return uuid.UUID(id).String() }

func (id UnitID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id UnitID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UnitID) UnmarshalText(text []byte) error {
	parsed, err := ParseUnitID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id SiteID) String() string { return uuid.UUID(id).String() }

func (id SiteID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id SiteID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *SiteID) UnmarshalText(text []byte) error {
	parsed, err := ParseSiteID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id CountryID) String() string { return uuid.UUID(id).String() }

func (id CountryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id CountryID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *CountryID) UnmarshalText(text []byte) error {
	parsed, err := ParseCountryID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id OrganizationID) String() string { return uuid.UUID(id).String() }

func (id OrganizationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id OrganizationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *OrganizationID) UnmarshalText(text []byte) error {
	parsed, err := ParseOrganizationID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id DesignID) String() string { return uuid.UUID(id).String() }

func (id DesignID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id DesignID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *DesignID) UnmarshalText(text []byte) error {
	parsed, err := ParseDesignID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
