package scheduling

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"
)

// Rule is a recurring weekly working window.
type Rule struct {
	PractitionerID string
	DayOfWeek      time.Weekday
	Window         TimeWindow
}

// Override replaces the weekly rule on one specific date.
type Override struct {
	PractitionerID string
	Date           civil.Date
	Window         TimeWindow
}

type practitionerHours struct {
	rules     map[time.Weekday]TimeWindow
	overrides map[civil.Date]TimeWindow
}

func (h *practitionerHours) empty() bool {
	return len(h.rules) == 0 && len(h.overrides) == 0
}

// AvailabilityStore holds the weekly rules and date overrides of every
// practitioner. It is safe for concurrent use.
type AvailabilityStore struct {
	mu    sync.RWMutex
	hours map[string]*practitionerHours
}

func NewAvailabilityStore() *AvailabilityStore {
	return &AvailabilityStore{hours: make(map[string]*practitionerHours)}
}

// hoursFor returns the practitioner's entry, creating it if needed.
// Caller must hold the write lock.
func (s *AvailabilityStore) hoursFor(practitionerID string) *practitionerHours {
	h, ok := s.hours[practitionerID]
	if !ok {
		h = &practitionerHours{
			rules:     make(map[time.Weekday]TimeWindow),
			overrides: make(map[civil.Date]TimeWindow),
		}
		s.hours[practitionerID] = h
	}
	return h
}

// SetRule upserts the weekly rule for (practitionerID, day).
func (s *AvailabilityStore) SetRule(practitionerID string, day time.Weekday, w TimeWindow) error {
	if !w.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidWindow, w)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hoursFor(practitionerID).rules[day] = w
	return nil
}

// SetOverride upserts the override for (practitionerID, date).
func (s *AvailabilityStore) SetOverride(practitionerID string, date civil.Date, w TimeWindow) error {
	if !w.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidWindow, w)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hoursFor(practitionerID).overrides[date] = w
	return nil
}

// RemoveRule deletes the weekly rule. Removing an absent rule is a no-op.
func (s *AvailabilityStore) RemoveRule(practitionerID string, day time.Weekday) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hours[practitionerID]
	if !ok {
		return
	}
	delete(h.rules, day)
	if h.empty() {
		delete(s.hours, practitionerID)
	}
}

// RemoveOverride deletes the date override. Removing an absent override is a no-op.
func (s *AvailabilityStore) RemoveOverride(practitionerID string, date civil.Date) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hours[practitionerID]
	if !ok {
		return
	}
	delete(h.overrides, date)
	if h.empty() {
		delete(s.hours, practitionerID)
	}
}

// EffectiveWindow returns the override for date if present, otherwise the
// weekly rule for date's weekday. ok is false when the practitioner does not
// work that day.
func (s *AvailabilityStore) EffectiveWindow(practitionerID string, date civil.Date) (w TimeWindow, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, found := s.hours[practitionerID]
	if !found {
		return TimeWindow{}, false
	}
	if w, ok := h.overrides[date]; ok {
		return w, true
	}
	w, ok = h.rules[date.In(time.UTC).Weekday()]
	return w, ok
}

// Rules returns the practitioner's weekly rules ordered Monday first.
func (s *AvailabilityStore) Rules(practitionerID string) []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hours[practitionerID]
	if !ok {
		return nil
	}
	rules := make([]Rule, 0, len(h.rules))
	for day, w := range h.rules {
		rules = append(rules, Rule{PractitionerID: practitionerID, DayOfWeek: day, Window: w})
	}
	sort.Slice(rules, func(i, j int) bool {
		return mondayFirst(rules[i].DayOfWeek) < mondayFirst(rules[j].DayOfWeek)
	})
	return rules
}

// Overrides returns the practitioner's overrides ordered by date.
func (s *AvailabilityStore) Overrides(practitionerID string) []Override {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hours[practitionerID]
	if !ok {
		return nil
	}
	overrides := make([]Override, 0, len(h.overrides))
	for date, w := range h.overrides {
		overrides = append(overrides, Override{PractitionerID: practitionerID, Date: date, Window: w})
	}
	sort.Slice(overrides, func(i, j int) bool {
		return overrides[i].Date.Before(overrides[j].Date)
	})
	return overrides
}

func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}
