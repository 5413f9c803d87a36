package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BookRequest is a proposed appointment time.
type BookRequest struct {
	PractitionerID string
	PatientID      string
	Start          time.Time
	// Duration of the appointment. Zero selects the configured default.
	Duration time.Duration
	// ExistingAppointmentID is set when rescheduling; that appointment's own
	// interval never conflicts with the candidate.
	ExistingAppointmentID string
}

// Booking is the result of a committed booking.
type Booking struct {
	AppointmentID  string
	PractitionerID string
	PatientID      string
	Interval       Interval
	// Previous holds the interval the appointment occupied before a
	// reschedule, so the commit can be reverted.
	Previous *Entry
}

// BookingValidator checks proposed appointments against the availability
// store and the ledger and commits them into the ledger.
type BookingValidator struct {
	store    *AvailabilityStore
	ledger   *BookingLedger
	loc      *time.Location
	duration time.Duration
	newID    func() string
}

func NewBookingValidator(store *AvailabilityStore, ledger *BookingLedger, loc *time.Location, duration time.Duration) *BookingValidator {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingValidator{
		store:    store,
		ledger:   ledger,
		loc:      loc,
		duration: duration,
		newID:    uuid.NewString,
	}
}

// Check validates the request without touching the ledger and returns the
// candidate interval.
func (v *BookingValidator) Check(req BookRequest) (Interval, error) {
	d := req.Duration
	if d == 0 {
		d = v.duration
	}
	if d <= 0 {
		return Interval{}, fmt.Errorf("%w: non-positive duration %s", ErrInvalidWindow, d)
	}
	candidate := Interval{Start: req.Start, End: req.Start.Add(d)}

	date := DateOf(req.Start, v.loc)
	window, ok := v.store.EffectiveWindow(req.PractitionerID, date)
	if !ok {
		return Interval{}, fmt.Errorf("%w: practitioner does not work on %s", ErrOutsideAvailability, date)
	}
	if !window.On(date, v.loc).Contains(candidate) {
		return Interval{}, fmt.Errorf("%w: %s is not within %s on %s", ErrOutsideAvailability, candidate, window, date)
	}

	if v.ledger.Overlaps(req.PractitionerID, candidate, req.ExistingAppointmentID) {
		return Interval{}, ErrSlotConflict
	}
	return candidate, nil
}

// Book validates and commits. On error the ledger is unchanged.
// Callers must serialize Book per practitioner.
func (v *BookingValidator) Book(req BookRequest) (Booking, error) {
	candidate, err := v.Check(req)
	if err != nil {
		return Booking{}, err
	}

	b := Booking{
		AppointmentID:  req.ExistingAppointmentID,
		PractitionerID: req.PractitionerID,
		PatientID:      req.PatientID,
		Interval:       candidate,
	}
	if b.AppointmentID != "" {
		if prev, ok := v.ledger.Remove(b.AppointmentID); ok {
			b.Previous = &prev
		}
	} else {
		b.AppointmentID = v.newID()
	}
	v.ledger.Insert(b.AppointmentID, b.PractitionerID, candidate)
	return b, nil
}
