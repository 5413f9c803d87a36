package scheduling

import (
	"sort"
	"sync"
)

// practitionerLocks hands out one RWMutex per practitioner. Locks are never
// evicted; the number of practitioners of a clinic is small.
type practitionerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func newPractitionerLocks() *practitionerLocks {
	return &practitionerLocks{locks: make(map[string]*sync.RWMutex)}
}

func (p *practitionerLocks) get(practitionerID string) *sync.RWMutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[practitionerID]
	if !ok {
		l = &sync.RWMutex{}
		p.locks[practitionerID] = l
	}
	return l
}

func (p *practitionerLocks) lock(practitionerID string) func() {
	l := p.get(practitionerID)
	l.Lock()
	return l.Unlock
}

func (p *practitionerLocks) rlock(practitionerID string) func() {
	l := p.get(practitionerID)
	l.RLock()
	return l.RUnlock
}

// lockAll write-locks several practitioners in a fixed order.
func (p *practitionerLocks) lockAll(ids ...string) func() {
	uniq := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		uniq = append(uniq, id)
	}
	sort.Strings(uniq)

	unlocks := make([]func(), 0, len(uniq))
	for _, id := range uniq {
		unlocks = append(unlocks, p.lock(id))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
