package unit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"atomfleet/internal/registry/models"
	id "atomfleet/pkg/domain"
	"atomfleet/pkg/platform/sentinel"
)

type UnitStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *UnitStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestUnitStoreSuite(t *testing.T) {
	suite.Run(t, new(UnitStoreSuite))
}

func (s *UnitStoreSuite) newUnit(siteID id.SiteID, name string, status models.UnitStatus) *models.Unit {
	return &models.Unit{
		ID:        id.NewUnitID(),
		SiteID:    siteID,
		Name:      name,
		Status:    status,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// TestCreationAndLookups verifies the store creates and retrieves units.
func (s *UnitStoreSuite) TestCreationAndLookups() {
	site := id.SiteID(uuid.New())

	s.Run("creates and finds unit by ID", func() {
		u := s.newUnit(site, "Forsmark 1", models.StatusOperational)
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, u))

		found, err := s.store.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(u.Name, found.Name)
		s.Equal(u.Status, found.Status)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.NewUnitID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns copies, not aliases", func() {
		u := s.newUnit(site, "Forsmark 2", models.StatusOperational)
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, u))

		found, err := s.store.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		found.Name = "Mutated"

		again, err := s.store.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal("Forsmark 2", again.Name)
	})
}

// TestNameUniqueness verifies per-site case-insensitive uniqueness.
func (s *UnitStoreSuite) TestNameUniqueness() {
	site := id.SiteID(uuid.New())
	otherSite := id.SiteID(uuid.New())

	s.Run("rejects duplicate name within a site", func() {
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, s.newUnit(site, "Ringhals 3", models.StatusOperational)))

		err := s.store.CreateIfNameAvailable(s.ctx, s.newUnit(site, "Ringhals 3", models.StatusPlanned))
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("uniqueness is case-insensitive", func() {
		err := s.store.CreateIfNameAvailable(s.ctx, s.newUnit(site, "RINGHALS 3", models.StatusPlanned))
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("same name is fine at a different site", func() {
		err := s.store.CreateIfNameAvailable(s.ctx, s.newUnit(otherSite, "Ringhals 3", models.StatusPlanned))
		s.Require().NoError(err)
	})
}

// TestUpdates verifies persistence and the name index on rename.
func (s *UnitStoreSuite) TestUpdates() {
	site := id.SiteID(uuid.New())

	s.Run("persists status changes", func() {
		u := s.newUnit(site, "Oskarshamn 3", models.StatusUnderConstruction)
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, u))

		u.Status = models.StatusOperational
		s.Require().NoError(s.store.Update(s.ctx, u))

		found, err := s.store.FindByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusOperational, found.Status)
	})

	s.Run("rename frees the old name and claims the new one", func() {
		u := s.newUnit(site, "Old Name", models.StatusPlanned)
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, u))

		u.Name = "New Name"
		s.Require().NoError(s.store.Update(s.ctx, u))

		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, s.newUnit(site, "Old Name", models.StatusPlanned)))
		err := s.store.CreateIfNameAvailable(s.ctx, s.newUnit(site, "new name", models.StatusPlanned))
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("rename onto a taken name fails", func() {
		u := s.newUnit(site, "Barsebäck 1", models.StatusShutdown)
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, u))
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, s.newUnit(site, "Barsebäck 2", models.StatusShutdown)))

		u.Name = "Barsebäck 2"
		err := s.store.Update(s.ctx, u)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("returns ErrNotFound for a unit never created", func() {
		err := s.store.Update(s.ctx, s.newUnit(site, "Ghost", models.StatusPlanned))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestListing verifies ordering and status filtering.
func (s *UnitStoreSuite) TestListing() {
	site := id.SiteID(uuid.New())
	s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, s.newUnit(site, "Bravo", models.StatusOperational)))
	s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, s.newUnit(site, "Alpha", models.StatusShutdown)))
	s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, s.newUnit(site, "Charlie", models.StatusOperational)))

	s.Run("lists all units sorted by name", func() {
		units, err := s.store.List(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(units, 3)
		s.Equal("Alpha", units[0].Name)
		s.Equal("Bravo", units[1].Name)
		s.Equal("Charlie", units[2].Name)
	})

	s.Run("filters by status", func() {
		units, err := s.store.ListByStatus(s.ctx, models.StatusOperational)
		s.Require().NoError(err)
		s.Require().Len(units, 2)
		s.Equal("Bravo", units[0].Name)
		s.Equal("Charlie", units[1].Name)
	})

	s.Run("empty filter result is empty, not an error", func() {
		units, err := s.store.ListByStatus(s.ctx, models.StatusDecommissioned)
		s.Require().NoError(err)
		s.Empty(units)
	})
}
