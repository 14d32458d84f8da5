package generation_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	generation "atomfleet/internal/generation"

	recordstore "atomfleet/internal/generation/store/record"
	"atomfleet/internal/registry/models"
	unitstore "atomfleet/internal/registry/store/unit"
	id "atomfleet/pkg/domain"
	dErrors "atomfleet/pkg/domain-errors"
)

type GenerationSuite struct {
	suite.Suite
	service *generation.Service
	units   *unitstore.InMemory
	ctx     context.Context
}

func (s *GenerationSuite) SetupTest() {
	s.units = unitstore.NewInMemory()
	s.service = generation.New(recordstore.NewInMemory(), s.units)
	s.ctx = context.Background()
}

func TestGenerationSuite(t *testing.T) {
	suite.Run(t, new(GenerationSuite))
}

// addUnit registers a unit projection directly in the store; the generation
// engine only reads it.
func (s *GenerationSuite) addUnit(netPowerMW *float64) *models.Unit {
	u := &models.Unit{
		ID:         id.NewUnitID(),
		SiteID:     id.SiteID(uuid.New()),
		Name:       uuid.NewString(),
		NetPowerMW: netPowerMW,
		Status:     models.StatusOperational,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	s.Require().NoError(s.units.CreateIfNameAvailable(s.ctx, u))
	return u
}

func f64(v float64) *float64 { return &v }

// TestRecordGeneration verifies validation and the duplicate-year guard.
func (s *GenerationSuite) TestRecordGeneration() {
	s.Run("stores a valid report", func() {
		u := s.addUnit(f64(1000))
		rec, err := s.service.RecordGeneration(s.ctx, u.ID, 2023, 8_000_000, nil)
		s.Require().NoError(err)
		s.Equal(2023, rec.Year)
		s.Equal(8_000_000.0, rec.NetGenerationMWh)
	})

	s.Run("duplicate year fails and leaves the first report intact", func() {
		u := s.addUnit(f64(1000))
		_, err := s.service.RecordGeneration(s.ctx, u.ID, 2022, 8_760_000, nil)
		s.Require().NoError(err)

		_, err = s.service.RecordGeneration(s.ctx, u.ID, 2022, 1, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateYear))

		factor, err := s.service.CapacityFactor(s.ctx, u.ID, 2022)
		s.Require().NoError(err)
		s.InDelta(100.0, factor, 0.0001)
	})

	s.Run("rejects pre-1950 years", func() {
		u := s.addUnit(f64(1000))
		_, err := s.service.RecordGeneration(s.ctx, u.ID, 1949, 100, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects negative generation", func() {
		u := s.addUnit(f64(1000))
		_, err := s.service.RecordGeneration(s.ctx, u.ID, 2023, -1, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects non-positive capacity override", func() {
		u := s.addUnit(f64(1000))
		_, err := s.service.RecordGeneration(s.ctx, u.ID, 2023, 100, f64(0))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects reports for unknown units", func() {
		_, err := s.service.RecordGeneration(s.ctx, id.NewUnitID(), 2023, 100, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("zero generation is a legitimate outage year", func() {
		u := s.addUnit(f64(1000))
		_, err := s.service.RecordGeneration(s.ctx, u.ID, 2021, 0, nil)
		s.Require().NoError(err)

		factor, err := s.service.CapacityFactor(s.ctx, u.ID, 2021)
		s.Require().NoError(err)
		s.Equal(0.0, factor)
	})
}

// TestCapacityFactor verifies the leap-aware denominator and the capacity
// fallback chain.
func (s *GenerationSuite) TestCapacityFactor() {
	s.Run("common year uses 8760 hours", func() {
		u := s.addUnit(f64(1000))
		_, err := s.service.RecordGeneration(s.ctx, u.ID, 2023, 8_760_000, nil)
		s.Require().NoError(err)

		factor, err := s.service.CapacityFactor(s.ctx, u.ID, 2023)
		s.Require().NoError(err)
		s.InDelta(100.0, factor, 0.0001)
	})

	s.Run("leap year uses 8784 hours", func() {
		u := s.addUnit(f64(1000))
		_, err := s.service.RecordGeneration(s.ctx, u.ID, 2024, 8_760_000, nil)
		s.Require().NoError(err)

		factor, err := s.service.CapacityFactor(s.ctx, u.ID, 2024)
		s.Require().NoError(err)
		s.InDelta(99.7268, factor, 0.0001)
	})

	s.Run("record override beats the unit capacity", func() {
		u := s.addUnit(f64(1000))
		_, err := s.service.RecordGeneration(s.ctx, u.ID, 2023, 8_760_000, f64(2000))
		s.Require().NoError(err)

		factor, err := s.service.CapacityFactor(s.ctx, u.ID, 2023)
		s.Require().NoError(err)
		s.InDelta(50.0, factor, 0.0001)
	})

	s.Run("no capacity anywhere is MissingCapacity", func() {
		u := s.addUnit(nil)
		_, err := s.service.RecordGeneration(s.ctx, u.ID, 2023, 100, nil)
		s.Require().NoError(err)

		_, err = s.service.CapacityFactor(s.ctx, u.ID, 2023)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeMissingCapacity))
	})

	s.Run("unreported year is NotFound", func() {
		u := s.addUnit(f64(1000))
		_, err := s.service.CapacityFactor(s.ctx, u.ID, 1995)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// TestTrend verifies ordering and the skip rule for unusable years.
func (s *GenerationSuite) TestTrend() {
	s.Run("ascends by year", func() {
		u := s.addUnit(f64(1000))
		for _, year := range []int{2022, 2020, 2021} {
			_, err := s.service.RecordGeneration(s.ctx, u.ID, year, 4_380_000, nil)
			s.Require().NoError(err)
		}

		points, err := s.service.Trend(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Require().Len(points, 3)
		s.Equal([]int{2020, 2021, 2022}, []int{points[0].Year, points[1].Year, points[2].Year})
		s.InDelta(50.0, points[1].CapacityFactor, 0.0001)
	})

	s.Run("omits years with no usable capacity", func() {
		u := s.addUnit(nil)
		_, err := s.service.RecordGeneration(s.ctx, u.ID, 2020, 4_380_000, f64(1000))
		s.Require().NoError(err)
		_, err = s.service.RecordGeneration(s.ctx, u.ID, 2021, 4_380_000, nil)
		s.Require().NoError(err)
		_, err = s.service.RecordGeneration(s.ctx, u.ID, 2022, 4_380_000, f64(1000))
		s.Require().NoError(err)

		points, err := s.service.Trend(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Require().Len(points, 2)
		s.Equal(2020, points[0].Year)
		s.Equal(2022, points[1].Year)
	})

	s.Run("no reports yields an empty trend", func() {
		u := s.addUnit(f64(1000))
		points, err := s.service.Trend(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Empty(points)
	})
}

// TestDecayHeat verifies the power-law estimate and its preconditions.
func (s *GenerationSuite) TestDecayHeat() {
	shutdown := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)

	newShutdownUnit := func(thermal *float64, shutdownAt *time.Time) *models.Unit {
		u := &models.Unit{
			ID:                id.NewUnitID(),
			SiteID:            id.SiteID(uuid.New()),
			Name:              uuid.NewString(),
			ThermalPowerMW:    thermal,
			PermanentShutdown: shutdownAt,
			Status:            models.StatusShutdown,
			CreatedAt:         time.Now(),
			UpdatedAt:         time.Now(),
		}
		s.Require().NoError(s.units.CreateIfNameAvailable(s.ctx, u))
		return u
	}

	s.Run("follows the single-term correlation", func() {
		u := newShutdownUnit(f64(3000), &shutdown)
		at := shutdown.Add(time.Hour)

		heat, err := s.service.DecayHeat(s.ctx, u.ID, at)
		s.Require().NoError(err)
		expected := 0.066 * 3000 * math.Pow(3600, -0.2)
		s.InDelta(expected, heat, 1e-9)
	})

	s.Run("clamps the shutdown instant to one second", func() {
		u := newShutdownUnit(f64(3000), &shutdown)

		heat, err := s.service.DecayHeat(s.ctx, u.ID, shutdown)
		s.Require().NoError(err)
		s.InDelta(0.066*3000, heat, 1e-9)
	})

	s.Run("rejects times before shutdown", func() {
		u := newShutdownUnit(f64(3000), &shutdown)
		_, err := s.service.DecayHeat(s.ctx, u.ID, shutdown.Add(-time.Hour))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("requires a thermal rating", func() {
		u := newShutdownUnit(nil, &shutdown)
		_, err := s.service.DecayHeat(s.ctx, u.ID, shutdown.Add(time.Hour))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("requires a shutdown date", func() {
		u := newShutdownUnit(f64(3000), nil)
		_, err := s.service.DecayHeat(s.ctx, u.ID, shutdown.Add(time.Hour))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// TestDecayModelEstimate exercises the correlation directly, including the
// multi-term form.
func (s *GenerationSuite) TestDecayModelEstimate() {
	s.Run("default single-term model", func() {
		m := generation.DefaultDecayModel()
		s.InDelta(0.066*1000*math.Pow(86400, -0.2), m.Estimate(1000, 86400), 1e-9)
	})

	s.Run("multi-term sum", func() {
		m := generation.DecayModel{Terms: []generation.DecayTerm{
			{Coefficient: 0.05, Exponent: 0.2},
			{Coefficient: 0.01, Exponent: 0.1},
		}}
		t := 7200.0
		expected := 1000 * (0.05*math.Pow(t, -0.2) + 0.01*math.Pow(t, -0.1))
		s.InDelta(expected, m.Estimate(1000, t), 1e-9)
	})

	s.Run("sub-second elapsed times clamp to one", func() {
		m := generation.DefaultDecayModel()
		s.Equal(m.Estimate(500, 1), m.Estimate(500, 0.2))
	})
}
