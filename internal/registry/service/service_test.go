package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"atomfleet/internal/audit"
	"atomfleet/internal/catalog"
	"atomfleet/internal/history"
	intervalstore "atomfleet/internal/history/store/interval"
	"atomfleet/internal/registry/models"
	unitstore "atomfleet/internal/registry/store/unit"
	id "atomfleet/pkg/domain"
	dErrors "atomfleet/pkg/domain-errors"
	"atomfleet/pkg/requestcontext"
)

type RegistrySuite struct {
	suite.Suite
	service *Service
	units   *unitstore.InMemory
	trail   *audit.InMemoryStore
	ctx     context.Context

	siteID     id.SiteID
	designID   id.DesignID
	operatorID id.OrganizationID
	ownerID    id.OrganizationID
}

func (s *RegistrySuite) SetupTest() {
	s.units = unitstore.NewInMemory()
	s.trail = audit.NewInMemoryStore()
	s.ctx = context.Background()

	s.siteID = id.SiteID(uuid.New())
	s.designID = id.DesignID(uuid.New())
	s.operatorID = id.OrganizationID(uuid.New())
	s.ownerID = id.OrganizationID(uuid.New())

	cat := catalog.NewInMemory()
	countryID := id.CountryID(uuid.New())
	cat.AddCountry(catalog.Country{ID: countryID, Code: "SE", Name: "Sweden"})
	cat.AddSite(catalog.Site{ID: s.siteID, Name: "Forsmark", CountryID: countryID})
	cat.AddOrganization(catalog.Organization{ID: s.operatorID, Name: "Vattenfall"})
	cat.AddOrganization(catalog.Organization{ID: s.ownerID, Name: "FKA"})
	cat.AddDesign(catalog.Design{ID: s.designID, Type: "BWR", Model: "BWR75"})

	tracker := history.New(intervalstore.NewInMemory())
	s.service = New(s.units, tracker, cat,
		WithAuditPublisher(audit.NewPublisher(s.trail)),
	)
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) attrs(name string, status models.UnitStatus) models.Attributes {
	net := 1000.0
	return models.Attributes{
		SiteID:        s.siteID,
		DesignID:      s.designID,
		OperatorID:    s.operatorID,
		OwnerID:       s.ownerID,
		Name:          name,
		NetPowerMW:    &net,
		InitialStatus: status,
	}
}

// TestRegisterUnit verifies registration, reference checks, and the paired
// initial interval.
func (s *RegistrySuite) TestRegisterUnit() {
	s.Run("registers and opens the first interval", func() {
		u, err := s.service.RegisterUnit(s.ctx, s.attrs("Forsmark 1", models.StatusOperational))
		s.Require().NoError(err)
		s.Equal(models.StatusOperational, u.Status)

		intervals, err := s.service.HistoryOf(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Require().Len(intervals, 1)
		s.Equal(u.Status, intervals[0].Status)
		s.True(intervals[0].Open())
		s.Equal(u.CreatedAt, intervals[0].ValidFrom)
	})

	s.Run("emits an audit event", func() {
		before := len(s.trail.All())
		_, err := s.service.RegisterUnit(s.ctx, s.attrs("Forsmark 2", models.StatusPlanned))
		s.Require().NoError(err)

		events := s.trail.All()
		s.Require().Len(events, before+1)
		s.Equal(audit.EventUnitRegistered, events[len(events)-1].Action)
	})

	s.Run("rejects unresolvable site without creating anything", func() {
		before, err := s.service.ListUnits(s.ctx)
		s.Require().NoError(err)

		attrs := s.attrs("Ghost 1", models.StatusPlanned)
		attrs.SiteID = id.SiteID(uuid.New())
		_, err = s.service.RegisterUnit(s.ctx, attrs)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		after, err := s.service.ListUnits(s.ctx)
		s.Require().NoError(err)
		s.Len(after, len(before))
	})

	s.Run("rejects duplicate name within the site as Conflict", func() {
		_, err := s.service.RegisterUnit(s.ctx, s.attrs("Forsmark 3", models.StatusPlanned))
		s.Require().NoError(err)

		_, err = s.service.RegisterUnit(s.ctx, s.attrs("forsmark 3", models.StatusPlanned))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("surfaces model violations as Validation", func() {
		_, err := s.service.RegisterUnit(s.ctx, s.attrs("", models.StatusPlanned))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("uses the request-pinned timestamp", func() {
		pinned := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
		ctx := requestcontext.WithNow(s.ctx, pinned)

		u, err := s.service.RegisterUnit(ctx, s.attrs("Forsmark 4", models.StatusPlanned))
		s.Require().NoError(err)
		s.Equal(pinned, u.CreatedAt)

		intervals, err := s.service.HistoryOf(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(pinned, intervals[0].ValidFrom)
	})
}

// TestChangeStatus verifies the rollover, the no-op variant, and error paths.
func (s *RegistrySuite) TestChangeStatus() {
	s.Run("updates unit and rolls the interval at one boundary", func() {
		u, err := s.service.RegisterUnit(s.ctx, s.attrs("Ringhals 1", models.StatusUnderConstruction))
		s.Require().NoError(err)

		res, err := s.service.ChangeStatus(s.ctx, u.ID, models.StatusOperational, "commissioned")
		s.Require().NoError(err)
		s.True(res.Changed)
		s.Equal(models.StatusOperational, res.Unit.Status)

		intervals, err := s.service.HistoryOf(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Require().Len(intervals, 2)
		s.Require().NotNil(intervals[0].ValidTo)
		s.Equal(*intervals[0].ValidTo, intervals[1].ValidFrom)
		s.Equal("commissioned", intervals[1].Note)
	})

	s.Run("same status is a no-op success with no new interval", func() {
		u, err := s.service.RegisterUnit(s.ctx, s.attrs("Ringhals 2", models.StatusOperational))
		s.Require().NoError(err)
		auditBefore := len(s.trail.All())

		res, err := s.service.ChangeStatus(s.ctx, u.ID, models.StatusOperational, "still running")
		s.Require().NoError(err)
		s.False(res.Changed)
		s.Equal(models.StatusOperational, res.Unit.Status)

		intervals, err := s.service.HistoryOf(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Len(intervals, 1)
		s.Len(s.trail.All(), auditBefore)
	})

	s.Run("unknown unit is NotFound", func() {
		_, err := s.service.ChangeStatus(s.ctx, id.NewUnitID(), models.StatusShutdown, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("invalid status is rejected up front", func() {
		u, err := s.service.RegisterUnit(s.ctx, s.attrs("Ringhals 3", models.StatusOperational))
		s.Require().NoError(err)

		_, err = s.service.ChangeStatus(s.ctx, u.ID, models.UnitStatus("scrammed"), "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// TestUpdateAttributes verifies patch semantics through the service.
func (s *RegistrySuite) TestUpdateAttributes() {
	s.Run("merges a partial patch", func() {
		u, err := s.service.RegisterUnit(s.ctx, s.attrs("Oskarshamn 1", models.StatusOperational))
		s.Require().NoError(err)

		thermal := 2500.0
		updated, err := s.service.UpdateAttributes(s.ctx, u.ID, models.AttributePatch{ThermalPowerMW: &thermal})
		s.Require().NoError(err)
		s.Equal(2500.0, *updated.ThermalPowerMW)
		s.Equal(1000.0, *updated.NetPowerMW)

		found, err := s.service.GetUnit(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(2500.0, *found.ThermalPowerMW)
	})

	s.Run("rename onto a taken name is Conflict", func() {
		u1, err := s.service.RegisterUnit(s.ctx, s.attrs("Oskarshamn 2", models.StatusOperational))
		s.Require().NoError(err)
		_, err = s.service.RegisterUnit(s.ctx, s.attrs("Oskarshamn 3", models.StatusOperational))
		s.Require().NoError(err)

		name := "Oskarshamn 3"
		_, err = s.service.UpdateAttributes(s.ctx, u1.ID, models.AttributePatch{Name: &name})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("invalid merged chronology leaves the unit unchanged", func() {
		attrs := s.attrs("Oskarshamn 4", models.StatusOperational)
		start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
		attrs.ConstructionStart = &start
		u, err := s.service.RegisterUnit(s.ctx, attrs)
		s.Require().NoError(err)

		bad := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
		_, err = s.service.UpdateAttributes(s.ctx, u.ID, models.AttributePatch{PermanentShutdown: &bad})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		found, err := s.service.GetUnit(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Nil(found.PermanentShutdown)
	})
}

// TestQueries verifies reads and the operational listing.
func (s *RegistrySuite) TestQueries() {
	s.Run("status at a past instant", func() {
		pinned := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		u, err := s.service.RegisterUnit(requestcontext.WithNow(s.ctx, pinned), s.attrs("Barsebäck 1", models.StatusOperational))
		s.Require().NoError(err)

		later := pinned.Add(30 * 24 * time.Hour)
		_, err = s.service.ChangeStatus(requestcontext.WithNow(s.ctx, later), u.ID, models.StatusShutdown, "political decision")
		s.Require().NoError(err)

		status, err := s.service.StatusAt(s.ctx, u.ID, pinned.Add(24*time.Hour))
		s.Require().NoError(err)
		s.Equal(models.StatusOperational, status)

		status, err = s.service.StatusAt(s.ctx, u.ID, later.Add(24*time.Hour))
		s.Require().NoError(err)
		s.Equal(models.StatusShutdown, status)
	})

	s.Run("lists only operational units", func() {
		_, err := s.service.RegisterUnit(s.ctx, s.attrs("Running 1", models.StatusOperational))
		s.Require().NoError(err)
		_, err = s.service.RegisterUnit(s.ctx, s.attrs("Paused 1", models.StatusShutdown))
		s.Require().NoError(err)

		units, err := s.service.ListOperational(s.ctx)
		s.Require().NoError(err)
		for _, u := range units {
			s.Equal(models.StatusOperational, u.Status)
		}
	})

	s.Run("unknown unit read is NotFound", func() {
		_, err := s.service.GetUnit(s.ctx, id.NewUnitID())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// TestConcurrentStatusChanges hammers one unit from many goroutines and
// checks the timeline afterwards: exactly one open interval, a gap-free
// chain, and a final status that agrees with the open interval.
func (s *RegistrySuite) TestConcurrentStatusChanges() {
	u, err := s.service.RegisterUnit(s.ctx, s.attrs("Contended 1", models.StatusPlanned))
	s.Require().NoError(err)

	statuses := models.AllStatuses()
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.service.ChangeStatus(s.ctx, u.ID, statuses[n%len(statuses)], "")
			// Same-status races are no-ops, so every call must succeed.
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	intervals, err := s.service.HistoryOf(s.ctx, u.ID)
	s.Require().NoError(err)

	openCount := 0
	for i, interval := range intervals {
		if interval.Open() {
			openCount++
			continue
		}
		s.Require().NotNil(interval.ValidTo)
		if i+1 < len(intervals) {
			s.Equal(*interval.ValidTo, intervals[i+1].ValidFrom)
		}
	}
	s.Equal(1, openCount)
	s.True(intervals[len(intervals)-1].Open())

	final, err := s.service.GetUnit(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(final.Status, intervals[len(intervals)-1].Status)
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// TestRollupInvalidation verifies mutations drop cached reports while reads
// and no-op status changes leave them alone.
func (s *RegistrySuite) TestRollupInvalidation() {
	inv := &countingInvalidator{}
	WithRollupInvalidator(inv)(s.service)

	u, err := s.service.RegisterUnit(s.ctx, s.attrs("Oskarshamn 3", models.StatusPlanned))
	s.Require().NoError(err)
	s.Equal(1, inv.count())

	_, err = s.service.ChangeStatus(s.ctx, u.ID, models.StatusOperational, "")
	s.Require().NoError(err)
	s.Equal(2, inv.count())

	res, err := s.service.ChangeStatus(s.ctx, u.ID, models.StatusOperational, "")
	s.Require().NoError(err)
	s.False(res.Changed)
	s.Equal(2, inv.count())

	_, err = s.service.GetUnit(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(2, inv.count())
}
