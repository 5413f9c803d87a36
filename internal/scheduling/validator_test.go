package scheduling

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidatorFixture(t *testing.T) (*AvailabilityStore, *BookingLedger, *BookingValidator) {
	t.Helper()
	store := NewAvailabilityStore()
	ledger := NewBookingLedger()
	require.NoError(t, store.SetRule("p1", time.Monday, window(t, "09:00", "12:00")))

	v := NewBookingValidator(store, ledger, time.UTC, 30*time.Minute)
	n := 0
	v.newID = func() string {
		n++
		return fmt.Sprintf("appt-%d", n)
	}
	return store, ledger, v
}

func TestBookingValidator_BookThenConflict(t *testing.T) {
	_, ledger, v := newValidatorFixture(t)

	b, err := v.Book(BookRequest{PractitionerID: "p1", PatientID: "pat1", Start: at(9, 0)})
	require.NoError(t, err)
	assert.Equal(t, "appt-1", b.AppointmentID)
	assert.True(t, b.Interval.Equal(span(9, 0, 9, 30)))
	assert.Nil(t, b.Previous)

	_, err = v.Book(BookRequest{PractitionerID: "p1", PatientID: "pat2", Start: at(9, 15)})
	assert.ErrorIs(t, err, ErrSlotConflict)
	assert.Len(t, ledger.Entries("p1"), 1, "failed booking leaves the ledger unchanged")
}

func TestBookingValidator_OutsideAvailability(t *testing.T) {
	store, ledger, v := newValidatorFixture(t)

	tests := []struct {
		name  string
		start time.Time
		dur   time.Duration
	}{
		{"before window", at(8, 0), 0},
		{"straddles start", at(8, 45), 0},
		{"straddles end", at(11, 45), 0},
		{"day without rule", at(9, 0).AddDate(0, 0, 1), 0},
		{"too long", at(11, 0), 2 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Book(BookRequest{PractitionerID: "p1", Start: tt.start, Duration: tt.dur})
			assert.ErrorIs(t, err, ErrOutsideAvailability)
		})
	}
	assert.Empty(t, ledger.Entries("p1"))

	// The last slot of the window is bookable.
	_, err := v.Book(BookRequest{PractitionerID: "p1", Start: at(11, 30)})
	require.NoError(t, err)

	// An override replaces the weekday rule for that date.
	require.NoError(t, store.SetOverride("p1", monday, window(t, "13:00", "15:00")))
	_, err = v.Book(BookRequest{PractitionerID: "p1", Start: at(9, 0)})
	assert.ErrorIs(t, err, ErrOutsideAvailability)
	_, err = v.Book(BookRequest{PractitionerID: "p1", Start: at(13, 0)})
	assert.NoError(t, err)
}

func TestBookingValidator_NegativeDuration(t *testing.T) {
	_, _, v := newValidatorFixture(t)
	_, err := v.Book(BookRequest{PractitionerID: "p1", Start: at(9, 0), Duration: -time.Minute})
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestBookingValidator_RescheduleSelfExclusion(t *testing.T) {
	_, ledger, v := newValidatorFixture(t)
	b, err := v.Book(BookRequest{PractitionerID: "p1", Start: at(9, 0)})
	require.NoError(t, err)

	// Same window as currently held.
	again, err := v.Book(BookRequest{PractitionerID: "p1", Start: at(9, 0), ExistingAppointmentID: b.AppointmentID})
	require.NoError(t, err)
	assert.Equal(t, b.AppointmentID, again.AppointmentID)
	require.NotNil(t, again.Previous)
	assert.True(t, again.Previous.Interval.Equal(span(9, 0, 9, 30)))

	// Overlapping its own old window.
	moved, err := v.Book(BookRequest{PractitionerID: "p1", Start: at(9, 15), ExistingAppointmentID: b.AppointmentID})
	require.NoError(t, err)
	assert.Equal(t, b.AppointmentID, moved.AppointmentID)

	entries := ledger.Entries("p1")
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Interval.Equal(span(9, 15, 9, 45)))
}

func TestBookingValidator_RescheduleIntoOtherBooking(t *testing.T) {
	_, ledger, v := newValidatorFixture(t)
	first, err := v.Book(BookRequest{PractitionerID: "p1", Start: at(9, 0)})
	require.NoError(t, err)
	_, err = v.Book(BookRequest{PractitionerID: "p1", Start: at(10, 0)})
	require.NoError(t, err)

	_, err = v.Book(BookRequest{PractitionerID: "p1", Start: at(10, 0), ExistingAppointmentID: first.AppointmentID})
	assert.ErrorIs(t, err, ErrSlotConflict)

	e, ok := ledger.Lookup(first.AppointmentID)
	require.True(t, ok, "failed reschedule keeps the old interval")
	assert.True(t, e.Interval.Equal(span(9, 0, 9, 30)))
}

func TestBookingValidator_ClinicZoneDecidesTheDate(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	store := NewAvailabilityStore()
	ledger := NewBookingLedger()
	require.NoError(t, store.SetRule("p1", time.Tuesday, window(t, "08:00", "12:00")))
	v := NewBookingValidator(store, ledger, loc, 30*time.Minute)

	// Monday 23:00 UTC is Tuesday 09:00 in the clinic zone.
	_, err := v.Book(BookRequest{PractitionerID: "p1", Start: at(23, 0)})
	assert.NoError(t, err)
}
