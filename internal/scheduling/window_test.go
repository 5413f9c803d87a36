package scheduling

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clock(h, m int) time.Duration {
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
}

func window(t *testing.T, start, end string) TimeWindow {
	t.Helper()
	w, err := ParseTimeWindow(start, end)
	require.NoError(t, err)
	return w
}

func TestParseTimeWindow(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		want    TimeWindow
		wantErr bool
	}{
		{name: "minutes", start: "09:00", end: "12:00", want: TimeWindow{clock(9, 0), clock(12, 0)}},
		{name: "seconds", start: "09:00:00", end: "17:30:00", want: TimeWindow{clock(9, 0), clock(17, 30)}},
		{name: "until midnight", start: "22:00", end: "24:00", want: TimeWindow{clock(22, 0), Day}},
		{name: "start equals end", start: "09:00", end: "09:00", wantErr: true},
		{name: "start after end", start: "12:00", end: "09:00", wantErr: true},
		{name: "garbage", start: "nine", end: "12:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeWindow(tt.start, tt.end)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidWindow), "want ErrInvalidWindow, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeWindowRelations(t *testing.T) {
	morning := TimeWindow{clock(9, 0), clock(12, 0)}

	assert.True(t, morning.Contains(TimeWindow{clock(9, 0), clock(9, 30)}))
	assert.True(t, morning.Contains(morning))
	assert.False(t, morning.Contains(TimeWindow{clock(11, 45), clock(12, 15)}))

	// Half-open: touching windows do not overlap.
	assert.False(t, morning.Overlaps(TimeWindow{clock(12, 0), clock(13, 0)}))
	assert.False(t, morning.Overlaps(TimeWindow{clock(8, 0), clock(9, 0)}))
	assert.True(t, morning.Overlaps(TimeWindow{clock(11, 59), clock(12, 30)}))

	assert.Equal(t, "09:00-12:00", morning.String())
	assert.Equal(t, 3*time.Hour, morning.Duration())
}

func TestTimeWindowOnKeepsWallClockAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2024-03-10 is the spring-forward day in New York.
	date := civil.Date{Year: 2024, Month: time.March, Day: 10}
	iv := TimeWindow{clock(9, 0), clock(10, 0)}.On(date, loc)

	assert.Equal(t, 9, iv.Start.Hour())
	assert.Equal(t, 10, iv.End.Hour())
	assert.Equal(t, time.Hour, iv.End.Sub(iv.Start))
}

func TestParseWeekday(t *testing.T) {
	for _, in := range []string{"MON", "mon", "Monday"} {
		d, err := ParseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, time.Monday, d)
	}
	d, err := ParseWeekday("SUN")
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, d)
	assert.Equal(t, "SUN", WeekdayCode(d))

	_, err = ParseWeekday("MONX")
	assert.Error(t, err)
}

func TestIntervalHalfOpen(t *testing.T) {
	base := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	a := Interval{Start: base, End: base.Add(30 * time.Minute)}
	b := Interval{Start: base.Add(30 * time.Minute), End: base.Add(time.Hour)}
	c := Interval{Start: base.Add(15 * time.Minute), End: base.Add(45 * time.Minute)}

	assert.False(t, a.Overlaps(b))
	assert.True(t, a.Overlaps(c))
	assert.True(t, c.Overlaps(b))
}
