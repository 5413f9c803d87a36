package scheduling

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Config holds the clinic-wide scheduling constants.
type Config struct {
	// SlotGranularity is the length of the slots offered by FreeSlots.
	SlotGranularity time.Duration
	// AppointmentDuration is the length of a booked appointment.
	AppointmentDuration time.Duration
	// Location is the single clinic time zone used to map instants to dates.
	Location *time.Location
}

// DefaultConfig matches the clinic's 30-minute grid.
func DefaultConfig() Config {
	return Config{
		SlotGranularity:     30 * time.Minute,
		AppointmentDuration: 30 * time.Minute,
		Location:            time.UTC,
	}
}

// Engine is the scheduling authority. Every operation on a practitioner runs
// under that practitioner's lock: reads share it, writes hold it exclusively.
// Operations on different practitioners run in parallel.
type Engine struct {
	cfg       Config
	store     *AvailabilityStore
	ledger    *BookingLedger
	resolver  *SlotResolver
	validator *BookingValidator
	locks     *practitionerLocks
}

func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.SlotGranularity <= 0 {
		cfg.SlotGranularity = def.SlotGranularity
	}
	if cfg.AppointmentDuration <= 0 {
		cfg.AppointmentDuration = def.AppointmentDuration
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}

	store := NewAvailabilityStore()
	ledger := NewBookingLedger()
	return &Engine{
		cfg:       cfg,
		store:     store,
		ledger:    ledger,
		resolver:  NewSlotResolver(store, ledger, cfg.Location),
		validator: NewBookingValidator(store, ledger, cfg.Location, cfg.AppointmentDuration),
		locks:     newPractitionerLocks(),
	}
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) SetRule(practitionerID string, day time.Weekday, w TimeWindow) error {
	defer e.locks.lock(practitionerID)()
	return e.store.SetRule(practitionerID, day, w)
}

func (e *Engine) SetOverride(practitionerID string, date civil.Date, w TimeWindow) error {
	defer e.locks.lock(practitionerID)()
	return e.store.SetOverride(practitionerID, date, w)
}

// AvailabilityWriter is the mutating side of the availability store.
type AvailabilityWriter interface {
	SetRule(practitionerID string, day time.Weekday, w TimeWindow) error
	SetOverride(practitionerID string, date civil.Date, w TimeWindow) error
	RemoveRule(practitionerID string, day time.Weekday)
	RemoveOverride(practitionerID string, date civil.Date)
}

// UpdateAvailability runs fn under the practitioner's write lock. fn persists
// the change and then applies it to the store, so concurrent updates of one
// practitioner reach the database and the store in the same order.
func (e *Engine) UpdateAvailability(practitionerID string, fn func(store AvailabilityWriter) error) error {
	defer e.locks.lock(practitionerID)()
	return fn(e.store)
}

func (e *Engine) EffectiveWindow(practitionerID string, date civil.Date) (TimeWindow, bool) {
	defer e.locks.rlock(practitionerID)()
	return e.store.EffectiveWindow(practitionerID, date)
}

func (e *Engine) Rules(practitionerID string) []Rule {
	defer e.locks.rlock(practitionerID)()
	return e.store.Rules(practitionerID)
}

func (e *Engine) Overrides(practitionerID string) []Override {
	defer e.locks.rlock(practitionerID)()
	return e.store.Overrides(practitionerID)
}

// FreeSlots returns the free slots on date using the configured granularity.
func (e *Engine) FreeSlots(practitionerID string, date civil.Date, excludeAppointmentID string) ([]TimeWindow, error) {
	return e.FreeSlotsWithGranularity(practitionerID, date, e.cfg.SlotGranularity, excludeAppointmentID)
}

func (e *Engine) FreeSlotsWithGranularity(practitionerID string, date civil.Date, granularity time.Duration, excludeAppointmentID string) ([]TimeWindow, error) {
	defer e.locks.rlock(practitionerID)()
	return e.resolver.FreeSlots(practitionerID, date, granularity, excludeAppointmentID)
}

// Book validates and commits a booking as one critical section.
func (e *Engine) Book(req BookRequest) (Booking, error) {
	for {
		ids := []string{req.PractitionerID}
		owner := ""
		if req.ExistingAppointmentID != "" {
			if prev, ok := e.ledger.Lookup(req.ExistingAppointmentID); ok {
				owner = prev.PractitionerID
				ids = append(ids, owner)
			}
		}
		unlock := e.locks.lockAll(ids...)
		if req.ExistingAppointmentID != "" && e.ownerOf(req.ExistingAppointmentID) != owner {
			// Moved to another practitioner before we got the lock.
			unlock()
			continue
		}
		b, err := e.validator.Book(req)
		unlock()
		return b, err
	}
}

// Release frees the interval of an appointment leaving SCHEDULED. It never
// fails; unknown ids are ignored.
func (e *Engine) Release(appointmentID string) {
	for {
		entry, ok := e.ledger.Lookup(appointmentID)
		if !ok {
			return
		}
		unlock := e.locks.lock(entry.PractitionerID)
		if e.ownerOf(appointmentID) != entry.PractitionerID {
			unlock()
			continue
		}
		e.ledger.Remove(appointmentID)
		unlock()
		return
	}
}

// ownerOf returns the practitioner currently holding the appointment's
// interval, or "" when it has none.
func (e *Engine) ownerOf(appointmentID string) string {
	entry, ok := e.ledger.Lookup(appointmentID)
	if !ok {
		return ""
	}
	return entry.PractitionerID
}

// Revert undoes a committed booking whose record could not be persisted.
// For a reschedule the previous interval is restored unless it has been
// taken in the meantime, in which case ErrSlotConflict is returned and the
// appointment is left without a ledger entry.
//
// When the booked interval is no longer in the ledger, the appointment was
// released or moved after Book returned, and nothing is restored.
func (e *Engine) Revert(b Booking) error {
	ids := []string{b.PractitionerID}
	if b.Previous != nil {
		ids = append(ids, b.Previous.PractitionerID)
	}
	defer e.locks.lockAll(ids...)()

	cur, ok := e.ledger.Lookup(b.AppointmentID)
	if !ok || cur.PractitionerID != b.PractitionerID || !cur.Interval.Equal(b.Interval) {
		return nil
	}
	e.ledger.Remove(b.AppointmentID)
	if b.Previous == nil {
		return nil
	}
	prev := b.Previous
	if e.ledger.Overlaps(prev.PractitionerID, prev.Interval, prev.AppointmentID) {
		return fmt.Errorf("%w: cannot restore %s", ErrSlotConflict, prev.Interval)
	}
	e.ledger.Insert(prev.AppointmentID, prev.PractitionerID, prev.Interval)
	return nil
}

// Track loads an already scheduled appointment into the ledger, as done
// when rehydrating from the database. Availability is not checked, since
// the rules may have changed after the booking was made.
func (e *Engine) Track(appointmentID, practitionerID string, iv Interval) error {
	if !iv.Start.Before(iv.End) {
		return fmt.Errorf("%w: %s", ErrInvalidWindow, iv)
	}
	defer e.locks.lock(practitionerID)()
	if e.ledger.Overlaps(practitionerID, iv, appointmentID) {
		return fmt.Errorf("%w: %s overlaps a tracked appointment", ErrSlotConflict, appointmentID)
	}
	e.ledger.Insert(appointmentID, practitionerID, iv)
	return nil
}

// Scheduled returns the practitioner's scheduled intervals.
func (e *Engine) Scheduled(practitionerID string) []Entry {
	defer e.locks.rlock(practitionerID)()
	return e.ledger.Entries(practitionerID)
}

// DateOf maps an instant to its calendar date in the clinic zone.
func (e *Engine) DateOf(t time.Time) civil.Date {
	return DateOf(t, e.cfg.Location)
}

// SlotInterval projects a slot onto date in the clinic zone.
func (e *Engine) SlotInterval(date civil.Date, slot TimeWindow) Interval {
	return slot.On(date, e.cfg.Location)
}
