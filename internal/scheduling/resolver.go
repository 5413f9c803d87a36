package scheduling

import (
	"time"

	"cloud.google.com/go/civil"
)

// SlotResolver derives the free slots of a practitioner on a date from the
// availability store and the booking ledger.
type SlotResolver struct {
	store  *AvailabilityStore
	ledger *BookingLedger
	loc    *time.Location
}

func NewSlotResolver(store *AvailabilityStore, ledger *BookingLedger, loc *time.Location) *SlotResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &SlotResolver{store: store, ledger: ledger, loc: loc}
}

// FreeSlots partitions the effective window of the date into consecutive
// slots of length granularity, drops a trailing partial slot and every slot
// that overlaps a scheduled appointment other than excludeID. Slots are in
// ascending order. Past slots are not filtered here.
func (r *SlotResolver) FreeSlots(practitionerID string, date civil.Date, granularity time.Duration, excludeID string) ([]TimeWindow, error) {
	if granularity <= 0 {
		return nil, ErrInvalidGranularity
	}

	window, ok := r.store.EffectiveWindow(practitionerID, date)
	if !ok {
		return []TimeWindow{}, nil
	}

	slots := make([]TimeWindow, 0, int(window.Duration()/granularity))
	for start := window.Start; start+granularity <= window.End; start += granularity {
		slot := TimeWindow{Start: start, End: start + granularity}
		if r.ledger.Overlaps(practitionerID, slot.On(date, r.loc), excludeID) {
			continue
		}
		slots = append(slots, slot)
	}
	return slots, nil
}
