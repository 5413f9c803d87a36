package scheduling

import (
	"sort"
	"sync"
)

// Entry is one scheduled appointment as seen by the ledger.
type Entry struct {
	AppointmentID  string
	PractitionerID string
	Interval       Interval
}

// BookingLedger indexes the intervals of scheduled appointments per
// practitioner, sorted by start time. It is safe for concurrent use, but
// Insert does not re-check for overlaps: callers serialize check-then-insert
// per practitioner.
type BookingLedger struct {
	mu      sync.RWMutex
	byPract map[string][]Entry
	owner   map[string]string // appointment id -> practitioner id
}

func NewBookingLedger() *BookingLedger {
	return &BookingLedger{
		byPract: make(map[string][]Entry),
		owner:   make(map[string]string),
	}
}

// Overlaps reports whether candidate intersects any scheduled interval of the
// practitioner, ignoring the appointment excludeID (may be empty).
func (l *BookingLedger) Overlaps(practitionerID string, candidate Interval, excludeID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := l.byPract[practitionerID]
	// Entries never overlap each other, so ends are sorted as well as starts.
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].Interval.End.After(candidate.Start)
	})
	for ; i < len(entries) && entries[i].Interval.Start.Before(candidate.End); i++ {
		if entries[i].AppointmentID == excludeID {
			continue
		}
		return true
	}
	return false
}

// Insert adds an interval. An entry already stored under appointmentID is
// replaced.
func (l *BookingLedger) Insert(appointmentID, practitionerID string, iv Interval) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.removeLocked(appointmentID)

	entries := l.byPract[practitionerID]
	i := sort.Search(len(entries), func(i int) bool {
		return !entries[i].Interval.Start.Before(iv.Start)
	})
	entries = append(entries, Entry{})
	copy(entries[i+1:], entries[i:])
	entries[i] = Entry{AppointmentID: appointmentID, PractitionerID: practitionerID, Interval: iv}

	l.byPract[practitionerID] = entries
	l.owner[appointmentID] = practitionerID
}

// Remove deletes the appointment's interval and returns it. Removing an
// unknown id is a no-op.
func (l *BookingLedger) Remove(appointmentID string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.removeLocked(appointmentID)
}

func (l *BookingLedger) removeLocked(appointmentID string) (Entry, bool) {
	pid, ok := l.owner[appointmentID]
	if !ok {
		return Entry{}, false
	}
	delete(l.owner, appointmentID)

	entries := l.byPract[pid]
	for i, e := range entries {
		if e.AppointmentID != appointmentID {
			continue
		}
		entries = append(entries[:i], entries[i+1:]...)
		if len(entries) == 0 {
			delete(l.byPract, pid)
		} else {
			l.byPract[pid] = entries
		}
		return e, true
	}
	return Entry{}, false
}

// Lookup returns the stored entry of an appointment.
func (l *BookingLedger) Lookup(appointmentID string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pid, ok := l.owner[appointmentID]
	if !ok {
		return Entry{}, false
	}
	for _, e := range l.byPract[pid] {
		if e.AppointmentID == appointmentID {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns a copy of the practitioner's scheduled intervals in start order.
func (l *BookingLedger) Entries(practitionerID string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := l.byPract[practitionerID]
	if len(entries) == 0 {
		return nil
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
