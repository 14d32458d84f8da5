// Package audit captures structured, append-only audit events for the
// registry: registrations, status transitions, attribute updates, and
// generation reports. The ledger itself lives in the history and generation
// stores; audit events are the operational trail around them.
package audit

import (
	"context"
	"time"
)

// Store is a sink for audit events. Implementations must be safe for
// concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUnit(ctx context.Context, unitID string) ([]Event, error)
}

// Publisher captures structured audit events. It is append-only and uses
// the storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, base Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = time.Now()
	}
	return p.store.Append(ctx, base)
}

func (p *Publisher) List(ctx context.Context, unitID string) ([]Event, error) {
	return p.store.ListByUnit(ctx, unitID)
}
