package service

import (
	"sync"

	id "atomfleet/pkg/domain"
)

// unitLocks hands out one RWMutex per unit id. Mutations take the write
// side so a unit's projection and its open interval always change together;
// combined reads take the read side. Locks are never reclaimed; units are
// never deleted, so the map is bounded by fleet size.
type unitLocks struct {
	mu    sync.Mutex
	locks map[id.UnitID]*sync.RWMutex
}

func newUnitLocks() *unitLocks {
	return &unitLocks{locks: make(map[id.UnitID]*sync.RWMutex)}
}

func (l *unitLocks) get(unitID id.UnitID) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[unitID]
	if !ok {
		lock = &sync.RWMutex{}
		l.locks[unitID] = lock
	}
	return lock
}
