package scheduling

import "errors"

// Error kinds returned by the engine. None of them leave partial state behind.
var (
	// ErrInvalidWindow is returned when a rule, override or booking window
	// has start >= end.
	ErrInvalidWindow = errors.New("invalid time window")

	// ErrOutsideAvailability is returned when a proposed booking is not fully
	// contained in the practitioner's effective window for that date, or the
	// practitioner has no window at all on that date.
	ErrOutsideAvailability = errors.New("outside practitioner availability")

	// ErrSlotConflict is returned when a proposed booking overlaps an existing
	// scheduled appointment of the same practitioner.
	ErrSlotConflict = errors.New("time slot already booked")

	ErrInvalidGranularity = errors.New("slot granularity must be positive")
)
