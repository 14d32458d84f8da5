package history

import (
	"time"

	"github.com/google/uuid"

	"atomfleet/internal/registry/models"
	id "atomfleet/pkg/domain"
)

// StatusInterval is one row of the append-only status timeline: the unit
// held Status from ValidFrom until ValidTo. A nil ValidTo marks the single
// open interval a unit has at any time after registration.
//
// Intervals are immutable once closed. The only permitted mutation is
// closing the open interval, and the next interval's ValidFrom always
// equals the closed interval's ValidTo, so the timeline has no gaps and no
// overlaps.
type StatusInterval struct {
	ID        uuid.UUID         `json:"id"`
	UnitID    id.UnitID         `json:"unit_id"`
	Status    models.UnitStatus `json:"status"`
	ValidFrom time.Time         `json:"valid_from"`
	ValidTo   *time.Time        `json:"valid_to,omitempty"`
	Note      string            `json:"note,omitempty"`
}

// Open reports whether the interval is the unit's current one.
func (i StatusInterval) Open() bool { return i.ValidTo == nil }

// Contains reports whether ts falls in [ValidFrom, ValidTo); the open
// interval extends to now.
func (i StatusInterval) Contains(ts, now time.Time) bool {
	if ts.Before(i.ValidFrom) {
		return false
	}
	if i.ValidTo != nil {
		return ts.Before(*i.ValidTo)
	}
	return !ts.After(now)
}
