package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolverFixture(t *testing.T) (*AvailabilityStore, *BookingLedger, *SlotResolver) {
	t.Helper()
	store := NewAvailabilityStore()
	ledger := NewBookingLedger()
	require.NoError(t, store.SetRule("p1", time.Monday, window(t, "09:00", "12:00")))
	return store, ledger, NewSlotResolver(store, ledger, time.UTC)
}

func TestSlotResolver_FullMorning(t *testing.T) {
	_, _, r := newResolverFixture(t)

	slots, err := r.FreeSlots("p1", monday, 30*time.Minute, "")
	require.NoError(t, err)

	want := []string{
		"09:00-09:30", "09:30-10:00", "10:00-10:30",
		"10:30-11:00", "11:00-11:30", "11:30-12:00",
	}
	got := make([]string, len(slots))
	for i, s := range slots {
		got[i] = s.String()
	}
	assert.Equal(t, want, got)
}

func TestSlotResolver_NoWindowIsEmpty(t *testing.T) {
	_, _, r := newResolverFixture(t)

	slots, err := r.FreeSlots("p1", monday.AddDays(1), 30*time.Minute, "")
	require.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestSlotResolver_DropsTrailingPartialSlot(t *testing.T) {
	store, _, r := newResolverFixture(t)
	require.NoError(t, store.SetOverride("p1", monday, window(t, "09:00", "10:45")))

	slots, err := r.FreeSlots("p1", monday, 30*time.Minute, "")
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, "10:00-10:30", slots[2].String())
}

func TestSlotResolver_SkipsBookedSlots(t *testing.T) {
	_, ledger, r := newResolverFixture(t)
	ledger.Insert("a1", "p1", span(9, 30, 10, 0))
	// A booking off the grid blocks both slots it touches.
	ledger.Insert("a2", "p1", span(10, 45, 11, 15))

	slots, err := r.FreeSlots("p1", monday, 30*time.Minute, "")
	require.NoError(t, err)

	got := make([]string, len(slots))
	for i, s := range slots {
		got[i] = s.String()
	}
	assert.Equal(t, []string{"09:00-09:30", "10:00-10:30", "11:30-12:00"}, got)
}

func TestSlotResolver_ExcludedAppointmentFreesItsOwnSlot(t *testing.T) {
	_, ledger, r := newResolverFixture(t)
	ledger.Insert("a1", "p1", span(9, 30, 10, 0))

	slots, err := r.FreeSlots("p1", monday, 30*time.Minute, "a1")
	require.NoError(t, err)
	assert.Len(t, slots, 6)
}

func TestSlotResolver_SlotContainment(t *testing.T) {
	store, ledger, r := newResolverFixture(t)
	require.NoError(t, store.SetOverride("p1", monday, window(t, "08:10", "13:05")))
	ledger.Insert("a1", "p1", span(9, 0, 9, 40))
	ledger.Insert("a2", "p1", span(12, 0, 12, 30))

	for _, g := range []time.Duration{10 * time.Minute, 15 * time.Minute, 20 * time.Minute, 45 * time.Minute} {
		slots, err := r.FreeSlots("p1", monday, g, "")
		require.NoError(t, err)

		eff, ok := store.EffectiveWindow("p1", monday)
		require.True(t, ok)
		for i, s := range slots {
			assert.True(t, eff.Contains(s), "slot %s outside %s", s, eff)
			assert.Equal(t, g, s.Duration())
			assert.False(t, ledger.Overlaps("p1", s.On(monday, time.UTC), ""), "slot %s overlaps a booking", s)
			if i > 0 {
				assert.True(t, slots[i-1].Start < s.Start, "slots out of order")
			}
		}
	}
}

func TestSlotResolver_InvalidGranularity(t *testing.T) {
	_, _, r := newResolverFixture(t)
	_, err := r.FreeSlots("p1", monday, 0, "")
	assert.ErrorIs(t, err, ErrInvalidGranularity)
}

func TestSlotResolver_RecomputedOnEveryCall(t *testing.T) {
	_, ledger, r := newResolverFixture(t)

	first, err := r.FreeSlots("p1", monday, 30*time.Minute, "")
	require.NoError(t, err)
	ledger.Insert("a1", "p1", span(9, 0, 9, 30))
	second, err := r.FreeSlots("p1", monday, 30*time.Minute, "")
	require.NoError(t, err)

	assert.Len(t, first, 6)
	assert.Len(t, second, 5)
}
