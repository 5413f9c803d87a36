package scheduling

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Day is the length of a calendar day in clock time.
const Day = 24 * time.Hour

// TimeWindow is a half-open [Start, End) interval of clock time within a day.
// Start and End are offsets from midnight.
type TimeWindow struct {
	Start time.Duration
	End   time.Duration
}

// NewTimeWindow returns a validated window.
func NewTimeWindow(start, end time.Duration) (TimeWindow, error) {
	w := TimeWindow{Start: start, End: end}
	if !w.Valid() {
		return TimeWindow{}, fmt.Errorf("%w: %s", ErrInvalidWindow, w)
	}
	return w, nil
}

// ParseTimeWindow builds a window from two clock strings ("09:00" or "09:00:00").
func ParseTimeWindow(start, end string) (TimeWindow, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TimeWindow{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeWindow{}, err
	}
	return NewTimeWindow(s, e)
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into an offset from midnight.
// "24:00" is accepted as the end of the day.
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	layout := "15:04:05"
	if strings.Count(s, ":") == 1 {
		layout = "15:04"
	}
	if s == "24:00" || s == "24:00:00" {
		return Day, nil
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid clock time %q", ErrInvalidWindow, s)
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

// FormatClock renders an offset from midnight as "HH:MM".
func FormatClock(d time.Duration) string {
	d = d.Truncate(time.Minute)
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}

// ClockOf returns the offset from midnight of t's wall clock.
func ClockOf(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

func (w TimeWindow) Valid() bool {
	return w.Start >= 0 && w.End <= Day && w.Start < w.End
}

func (w TimeWindow) Duration() time.Duration {
	return w.End - w.Start
}

// Contains reports whether o lies entirely within w.
func (w TimeWindow) Contains(o TimeWindow) bool {
	return w.Start <= o.Start && o.End <= w.End
}

// Overlaps reports whether the two half-open windows share any instant.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	return w.Start < o.End && o.Start < w.End
}

func (w TimeWindow) String() string {
	return FormatClock(w.Start) + "-" + FormatClock(w.End)
}

// On projects the window onto a calendar date in loc.
func (w TimeWindow) On(date civil.Date, loc *time.Location) Interval {
	return Interval{
		Start: wallClock(date, w.Start, loc),
		End:   wallClock(date, w.End, loc),
	}
}

// wallClock builds the instant at the given wall-clock offset on date.
// Hours are set explicitly so days with a DST shift keep their clock times.
func wallClock(date civil.Date, offset time.Duration, loc *time.Location) time.Time {
	h := int(offset / time.Hour)
	m := int(offset % time.Hour / time.Minute)
	s := int(offset % time.Minute / time.Second)
	ns := int(offset % time.Second)
	return time.Date(date.Year, date.Month, date.Day, h, m, s, ns, loc)
}

// Interval is a half-open [Start, End) span of absolute time.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

func (i Interval) Equal(o Interval) bool {
	return i.Start.Equal(o.Start) && i.End.Equal(o.End)
}

func (i Interval) String() string {
	return i.Start.Format(time.RFC3339) + "/" + i.End.Format(time.RFC3339)
}

var weekdayCodes = [...]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

// ParseWeekday accepts the three-letter codes MON..SUN (case-insensitive)
// as well as full English day names.
func ParseWeekday(s string) (time.Weekday, error) {
	v := strings.TrimSpace(s)
	for i, c := range weekdayCodes {
		if strings.EqualFold(v, c) || strings.EqualFold(v, time.Weekday(i).String()) {
			return time.Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("invalid day of week %q", s)
}

// WeekdayCode returns the three-letter code (MON..SUN) for d.
func WeekdayCode(d time.Weekday) string {
	return weekdayCodes[d%7]
}

// DateOf returns the calendar date of t in loc.
func DateOf(t time.Time, loc *time.Location) civil.Date {
	return civil.DateOf(t.In(loc))
}
