// Package history maintains the per-unit status timeline. The tracker is
// invoked explicitly by the registry service inside the unit's critical
// section, never as a hidden side effect of a generic update path, so the
// timeline invariant stays auditable and testable in isolation.
package history

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"atomfleet/internal/registry/models"
	id "atomfleet/pkg/domain"
	dErrors "atomfleet/pkg/domain-errors"
	"atomfleet/pkg/platform/sentinel"
)

// IntervalStore persists the interval ledger. Append and CloseOpen must be
// atomic with the caller's unit mutation: callers run them inside the same
// transaction scope (or under the unit's write lock for memory stores).
type IntervalStore interface {
	Append(ctx context.Context, interval *StatusInterval) error
	// CloseOpen sets ValidTo on the unit's open interval and returns the
	// closed row. Returns sentinel.ErrNotFound when no interval is open.
	CloseOpen(ctx context.Context, unitID id.UnitID, at time.Time) (*StatusInterval, error)
	// FindOpen returns the unit's open interval, sentinel.ErrNotFound when
	// the unit has none (i.e. is not registered).
	FindOpen(ctx context.Context, unitID id.UnitID) (*StatusInterval, error)
	// ListByUnit returns the unit's intervals oldest first.
	ListByUnit(ctx context.Context, unitID id.UnitID) ([]StatusInterval, error)
}

// Tracker derives and maintains the interval timeline.
type Tracker struct {
	intervals IntervalStore
	logger    *slog.Logger
}

type Option func(*Tracker)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

func New(intervals IntervalStore, opts ...Option) *Tracker {
	t := &Tracker{intervals: intervals}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OpenInitial opens a unit's first interval at registration time.
func (t *Tracker) OpenInitial(ctx context.Context, unitID id.UnitID, status models.UnitStatus, at time.Time) error {
	if _, err := t.intervals.FindOpen(ctx, unitID); err == nil {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"unit %s already has an open status interval", unitID)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check open interval")
	}

	interval := &StatusInterval{
		ID:        uuid.New(),
		UnitID:    unitID,
		Status:    status,
		ValidFrom: at,
	}
	if err := t.intervals.Append(ctx, interval); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to open initial interval")
	}
	t.log(ctx, "status interval opened", unitID, status, at)
	return nil
}

// Transition closes the open interval at the transition timestamp and opens
// a new one at the same boundary, so interval n+1 starts exactly where
// interval n ends.
func (t *Tracker) Transition(ctx context.Context, unitID id.UnitID, newStatus models.UnitStatus, at time.Time, note string) error {
	closed, err := t.intervals.CloseOpen(ctx, unitID, at)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"unit %s has no open status interval", unitID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to close open interval")
	}
	if closed.Status == newStatus {
		// The registry treats same-status changes as no-ops before calling
		// here; reaching this point means the projection and ledger diverged.
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"unit %s open interval already has status %s", unitID, newStatus)
	}

	interval := &StatusInterval{
		ID:        uuid.New(),
		UnitID:    unitID,
		Status:    newStatus,
		ValidFrom: at,
		Note:      note,
	}
	if err := t.intervals.Append(ctx, interval); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to open interval")
	}
	t.log(ctx, "status interval transitioned", unitID, newStatus, at)
	return nil
}

// HistoryOf returns the unit's intervals oldest first.
func (t *Tracker) HistoryOf(ctx context.Context, unitID id.UnitID) ([]StatusInterval, error) {
	intervals, err := t.intervals.ListByUnit(ctx, unitID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list intervals")
	}
	if len(intervals) == 0 {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no status history for unit %s", unitID)
	}
	return intervals, nil
}

// StatusAt resolves the unit's status at ts: the interval whose
// [ValidFrom, ValidTo) contains ts, with the open interval extending to now.
func (t *Tracker) StatusAt(ctx context.Context, unitID id.UnitID, ts time.Time) (models.UnitStatus, error) {
	intervals, err := t.HistoryOf(ctx, unitID)
	if err != nil {
		return "", err
	}
	now := time.Now()
	for _, interval := range intervals {
		if interval.Contains(ts, now) {
			return interval.Status, nil
		}
	}
	return "", dErrors.Newf(dErrors.CodeNotFound,
		"unit %s has no status at %s", unitID, ts.UTC().Format(time.RFC3339))
}

func (t *Tracker) log(ctx context.Context, msg string, unitID id.UnitID, status models.UnitStatus, at time.Time) {
	if t.logger == nil {
		return
	}
	t.logger.InfoContext(ctx, msg,
		"unit_id", unitID,
		"status", status,
		"at", at,
	)
}
