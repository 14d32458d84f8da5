package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"atomfleet/internal/audit"
	"atomfleet/internal/catalog"
	"atomfleet/internal/history"
	"atomfleet/internal/registry/metrics"
	"atomfleet/internal/registry/models"
	id "atomfleet/pkg/domain"
	dErrors "atomfleet/pkg/domain-errors"
	"atomfleet/pkg/platform/sentinel"
	"atomfleet/pkg/requestcontext"
)

// UnitStore persists the unit projection.
type UnitStore interface {
	CreateIfNameAvailable(ctx context.Context, u *models.Unit) error
	FindByID(ctx context.Context, unitID id.UnitID) (*models.Unit, error)
	Update(ctx context.Context, u *models.Unit) error
	List(ctx context.Context) ([]models.Unit, error)
	ListByStatus(ctx context.Context, status models.UnitStatus) ([]models.Unit, error)
}

// Tracker is the status history collaborator. The service invokes it
// explicitly inside the unit's critical section.
type Tracker interface {
	OpenInitial(ctx context.Context, unitID id.UnitID, status models.UnitStatus, at time.Time) error
	Transition(ctx context.Context, unitID id.UnitID, newStatus models.UnitStatus, at time.Time, note string) error
	HistoryOf(ctx context.Context, unitID id.UnitID) ([]history.StatusInterval, error)
	StatusAt(ctx context.Context, unitID id.UnitID, ts time.Time) (models.UnitStatus, error)
}

// AuditPublisher records registry actions on the audit trail.
type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// RollupInvalidator drops cached fleet reports after a unit mutation.
type RollupInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service owns unit records and coordinates the paired history mutation so
// a reader never observes a unit whose current status disagrees with its
// open interval.
type Service struct {
	units   UnitStore
	tracker Tracker
	catalog catalog.Resolver
	txr     TxRunner
	locks   *unitLocks

	logger      *slog.Logger
	auditor     AuditPublisher
	metrics     *metrics.Metrics
	invalidator RollupInvalidator
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTxRunner(txr TxRunner) Option {
	return func(s *Service) { s.txr = txr }
}

func WithRollupInvalidator(inv RollupInvalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

// New constructs a Service.
func New(units UnitStore, tracker Tracker, cat catalog.Resolver, opts ...Option) *Service {
	s := &Service{
		units:   units,
		tracker: tracker,
		catalog: cat,
		txr:     NopTxRunner{},
		locks:   newUnitLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterUnit validates attributes and catalog references, persists the
// unit, and opens its first status interval inside one atomic scope.
// No partial unit is visible on failure.
func (s *Service) RegisterUnit(ctx context.Context, attrs models.Attributes) (*models.Unit, error) {
	now := requestcontext.Now(ctx)

	u, err := models.NewUnit(id.NewUnitID(), attrs, now)
	if err != nil {
		// Convert invariant violations to validation errors for callers.
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.resolveReferences(ctx, u); err != nil {
		return nil, err
	}

	lock := s.locks.get(u.ID)
	lock.Lock()
	defer lock.Unlock()

	err = s.txr.Run(ctx, func(ctx context.Context) error {
		if err := s.units.CreateIfNameAvailable(ctx, u); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "unit name must be unique within its site")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create unit")
		}
		return s.tracker.OpenInitial(ctx, u.ID, u.Status, now)
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.Event{
		Action: audit.EventUnitRegistered,
		UnitID: u.ID.String(),
		Status: u.Status.String(),
	})
	if s.metrics != nil {
		s.metrics.IncrementUnitsRegistered()
	}
	s.logInfo(ctx, "unit registered", "unit_id", u.ID, "status", u.Status)
	s.invalidateRollups(ctx)

	return u, nil
}

// ChangeStatusResult reports a status change. Changed is false when the
// requested status matched the current one: a no-op success, not an error,
// and no redundant interval is opened.
type ChangeStatusResult struct {
	Unit    *models.Unit
	Changed bool
}

// ChangeStatus atomically updates the unit's current status and rolls the
// open interval over at the same timestamp boundary.
func (s *Service) ChangeStatus(ctx context.Context, unitID id.UnitID, newStatus models.UnitStatus, note string) (*ChangeStatusResult, error) {
	if !newStatus.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown unit status %q", newStatus)
	}
	now := requestcontext.Now(ctx)

	lock := s.locks.get(unitID)
	lock.Lock()
	defer lock.Unlock()

	var result *ChangeStatusResult
	err := s.txr.Run(ctx, func(ctx context.Context) error {
		u, err := s.units.FindByID(ctx, unitID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "unit %s not found", unitID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load unit")
		}

		if u.Status == newStatus {
			result = &ChangeStatusResult{Unit: u, Changed: false}
			return nil
		}

		u.SetStatus(newStatus, now)
		if err := s.units.Update(ctx, u); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update unit status")
		}
		if err := s.tracker.Transition(ctx, unitID, newStatus, now, note); err != nil {
			return err
		}
		result = &ChangeStatusResult{Unit: u, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Changed {
		s.logAudit(ctx, audit.Event{
			Action: audit.EventStatusChanged,
			UnitID: unitID.String(),
			Status: newStatus.String(),
			Note:   note,
		})
		if s.metrics != nil {
			s.metrics.IncrementStatusChange(newStatus.String())
		}
		s.logInfo(ctx, "unit status changed", "unit_id", unitID, "status", newStatus)
		s.invalidateRollups(ctx)
	} else if s.metrics != nil {
		s.metrics.IncrementStatusChangeNoOp()
	}

	return result, nil
}

// UpdateAttributes merges a partial update, re-validating the chronology
// invariant against the merged result before committing.
func (s *Service) UpdateAttributes(ctx context.Context, unitID id.UnitID, patch models.AttributePatch) (*models.Unit, error) {
	now := requestcontext.Now(ctx)

	lock := s.locks.get(unitID)
	lock.Lock()
	defer lock.Unlock()

	var updated *models.Unit
	err := s.txr.Run(ctx, func(ctx context.Context) error {
		u, err := s.units.FindByID(ctx, unitID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Newf(dErrors.CodeNotFound, "unit %s not found", unitID)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load unit")
		}

		if err := u.ApplyPatch(patch, now); err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return dErrors.New(dErrors.CodeValidation, err.Error())
			}
			return err
		}

		if err := s.units.Update(ctx, u); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "unit name must be unique within its site")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update unit")
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, audit.Event{
		Action: audit.EventAttributesUpdated,
		UnitID: unitID.String(),
	})
	s.logInfo(ctx, "unit attributes updated", "unit_id", unitID)
	s.invalidateRollups(ctx)

	return updated, nil
}

// GetUnit returns the current projection.
func (s *Service) GetUnit(ctx context.Context, unitID id.UnitID) (*models.Unit, error) {
	lock := s.locks.get(unitID)
	lock.RLock()
	defer lock.RUnlock()

	u, err := s.units.FindByID(ctx, unitID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "unit %s not found", unitID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load unit")
	}
	return u, nil
}

// ListOperational returns units currently generating.
func (s *Service) ListOperational(ctx context.Context) ([]models.Unit, error) {
	units, err := s.units.ListByStatus(ctx, models.StatusOperational)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list operational units")
	}
	return units, nil
}

// ListUnits returns every registered unit.
func (s *Service) ListUnits(ctx context.Context) ([]models.Unit, error) {
	units, err := s.units.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list units")
	}
	return units, nil
}

// HistoryOf returns the unit's status timeline, oldest first. Taking the
// read lock keeps the tail consistent with any in-flight transition.
func (s *Service) HistoryOf(ctx context.Context, unitID id.UnitID) ([]history.StatusInterval, error) {
	lock := s.locks.get(unitID)
	lock.RLock()
	defer lock.RUnlock()

	return s.tracker.HistoryOf(ctx, unitID)
}

// StatusAt resolves the unit's status at a point in time.
func (s *Service) StatusAt(ctx context.Context, unitID id.UnitID, ts time.Time) (models.UnitStatus, error) {
	lock := s.locks.get(unitID)
	lock.RLock()
	defer lock.RUnlock()

	return s.tracker.StatusAt(ctx, unitID, ts)
}

func (s *Service) resolveReferences(ctx context.Context, u *models.Unit) error {
	refs := []struct {
		kind catalog.EntityKind
		ref  uuid.UUID
		name string
	}{
		{catalog.KindSite, uuid.UUID(u.SiteID), "site"},
		{catalog.KindDesign, uuid.UUID(u.DesignID), "design"},
		{catalog.KindOrganization, uuid.UUID(u.OperatorID), "operator"},
		{catalog.KindOrganization, uuid.UUID(u.OwnerID), "owner"},
	}
	for _, r := range refs {
		exists, err := s.catalog.Resolve(ctx, r.kind, r.ref)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "catalog lookup failed")
		}
		if !exists {
			return dErrors.Newf(dErrors.CodeNotFound, "%s %s does not resolve in the catalog", r.name, r.ref)
		}
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

// invalidateRollups is best effort. A stale cached report expires on its
// own TTL, so a failed invalidation only delays freshness.
func (s *Service) invalidateRollups(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "rollup cache invalidation failed", "error", err)
	}
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	args = append(args, "request_id", requestcontext.RequestID(ctx))
	s.logger.InfoContext(ctx, msg, args...)
}
