// Package generation ingests per-unit annual generation reports and derives
// calendar-accurate performance metrics from them.
package generation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"atomfleet/internal/audit"
	genmetrics "atomfleet/internal/generation/metrics"
	"atomfleet/internal/registry/models"
	id "atomfleet/pkg/domain"
	dErrors "atomfleet/pkg/domain-errors"
	"atomfleet/pkg/platform/sentinel"
	"atomfleet/pkg/requestcontext"
)

// RecordStore persists the generation ledger. CreateIfYearAvailable must
// perform the (unit, year) uniqueness check and the insert in one critical
// section; callers cannot check-then-insert without racing.
type RecordStore interface {
	CreateIfYearAvailable(ctx context.Context, rec *GenerationRecord) error
	FindByUnitYear(ctx context.Context, unitID id.UnitID, year int) (*GenerationRecord, error)
	// ListByUnit returns the unit's records ascending by year.
	ListByUnit(ctx context.Context, unitID id.UnitID) ([]GenerationRecord, error)
}

// UnitReader is the registry-side read the engine needs: current net
// capacity for the denominator and existence checks.
type UnitReader interface {
	FindByID(ctx context.Context, unitID id.UnitID) (*models.Unit, error)
}

// AuditPublisher records generation reports on the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service is the generation analytics engine.
type Service struct {
	records RecordStore
	units   UnitReader

	logger  *slog.Logger
	auditor AuditPublisher
	metrics *genmetrics.Metrics
	decay   DecayModel
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithMetrics(m *genmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDecayModel overrides the default decay-heat correlation.
func WithDecayModel(model DecayModel) Option {
	return func(s *Service) { s.decay = model }
}

func New(records RecordStore, units UnitReader, opts ...Option) *Service {
	s := &Service{
		records: records,
		units:   units,
		decay:   DefaultDecayModel(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// earliest plausible reporting year; commercial nuclear generation starts
// in the 1950s.
const minReportYear = 1950

// RecordGeneration appends one annual report. A second report for the same
// (unit, year) fails with DuplicateYear and leaves the first untouched.
func (s *Service) RecordGeneration(ctx context.Context, unitID id.UnitID, year int, netGenerationMWh float64, referenceCapacityMW *float64) (*GenerationRecord, error) {
	if year < minReportYear {
		return nil, dErrors.Newf(dErrors.CodeValidation, "year %d is before commercial nuclear generation", year)
	}
	if netGenerationMWh < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "net generation must not be negative")
	}
	if referenceCapacityMW != nil && *referenceCapacityMW <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "reference capacity override must be positive")
	}

	if _, err := s.units.FindByID(ctx, unitID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "unit %s not found", unitID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load unit")
	}

	rec := &GenerationRecord{
		ID:                  uuid.New(),
		UnitID:              unitID,
		Year:                year,
		NetGenerationMWh:    netGenerationMWh,
		ReferenceCapacityMW: referenceCapacityMW,
		CreatedAt:           requestcontext.Now(ctx),
	}
	if err := s.records.CreateIfYearAvailable(ctx, rec); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			if s.metrics != nil {
				s.metrics.IncrementDuplicateYears()
			}
			return nil, dErrors.Newf(dErrors.CodeDuplicateYear,
				"generation record for unit %s year %d already exists", unitID, year)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store generation record")
	}

	if s.auditor != nil {
		event := audit.Event{
			Action: audit.EventGenerationRecorded,
			UnitID: unitID.String(),
			Year:   year,
		}
		if err := s.auditor.Emit(ctx, event); err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.IncrementRecordsStored()
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "generation recorded",
			"unit_id", unitID, "year", year, "net_generation_mwh", netGenerationMWh)
	}

	return rec, nil
}

// CapacityFactor computes generation / (capacity * hoursInYear) * 100 for
// one reported year. The denominator capacity is the record's override when
// present, else the unit's current net electric capacity.
func (s *Service) CapacityFactor(ctx context.Context, unitID id.UnitID, year int) (float64, error) {
	u, err := s.units.FindByID(ctx, unitID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.Newf(dErrors.CodeNotFound, "unit %s not found", unitID)
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load unit")
	}

	rec, err := s.records.FindByUnitYear(ctx, unitID, year)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.Newf(dErrors.CodeNotFound,
				"no generation record for unit %s year %d", unitID, year)
		}
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load generation record")
	}

	capacity, ok := referenceCapacity(rec, u)
	if !ok {
		return 0, dErrors.Newf(dErrors.CodeMissingCapacity,
			"unit %s has no reference capacity for year %d", unitID, year)
	}
	return rec.NetGenerationMWh / (capacity * HoursInYear(year)) * 100, nil
}

// Trend returns the unit's capacity factors ascending by year, recomputed
// on every call so there is no cached staleness. Years with no usable
// reference capacity are omitted.
func (s *Service) Trend(ctx context.Context, unitID id.UnitID) ([]TrendPoint, error) {
	u, err := s.units.FindByID(ctx, unitID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "unit %s not found", unitID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load unit")
	}

	records, err := s.records.ListByUnit(ctx, unitID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list generation records")
	}

	points := make([]TrendPoint, 0, len(records))
	for _, rec := range records {
		capacity, ok := referenceCapacity(&rec, u)
		if !ok {
			continue
		}
		points = append(points, TrendPoint{
			Year:           rec.Year,
			CapacityFactor: rec.NetGenerationMWh / (capacity * HoursInYear(rec.Year)) * 100,
		})
	}
	return points, nil
}

func referenceCapacity(rec *GenerationRecord, u *models.Unit) (float64, bool) {
	if rec.ReferenceCapacityMW != nil {
		return *rec.ReferenceCapacityMW, true
	}
	if u.NetPowerMW != nil {
		return *u.NetPowerMW, true
	}
	return 0, false
}
