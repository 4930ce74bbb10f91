package scheduling

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustWindow(t *testing.T, start, end string, loc *time.Location) WorkWindow {
	t.Helper()
	w, err := NewWorkWindow(start, end, loc)
	require.NoError(t, err)
	return w
}

func at(day time.Time, hour, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, day.Location())
}

func busy(start, end time.Time) BusyInterval {
	return BusyInterval{Start: start, End: end}
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30:00")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 9, Minute: 30}, tod)
	assert.Equal(t, "09:30", tod.String())

	_, err = ParseTimeOfDay("9")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}

func TestNewWorkWindow(t *testing.T) {
	_, err := NewWorkWindow("17:00", "09:00", time.UTC)
	assert.Error(t, err)

	_, err = NewWorkWindow("09:00", "09:00", time.UTC)
	assert.Error(t, err)

	w, err := NewWorkWindow("09:00", "17:00", nil)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, w.Location)
}

func TestComputeFreeTime(t *testing.T) {
	window := mustWindow(t, "09:00", "17:00", time.UTC)
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	now := at(day, 8, 0)

	testCases := []struct {
		name     string
		busy     []BusyInterval
		expected []FreeWindow
	}{
		{
			name:     "no busy time leaves the whole window",
			busy:     nil,
			expected: []FreeWindow{{Start: at(day, 9, 0), End: at(day, 17, 0)}},
		},
		{
			name: "busy interval in the middle splits the window",
			busy: []BusyInterval{busy(at(day, 12, 0), at(day, 13, 0))},
			expected: []FreeWindow{
				{Start: at(day, 9, 0), End: at(day, 12, 0)},
				{Start: at(day, 13, 0), End: at(day, 17, 0)},
			},
		},
		{
			name:     "busy interval covering the whole day yields nothing",
			busy:     []BusyInterval{busy(at(day, 0, 0), at(day, 23, 59))},
			expected: nil,
		},
		{
			name:     "busy interval exactly equal to the window yields nothing",
			busy:     []BusyInterval{busy(at(day, 9, 0), at(day, 17, 0))},
			expected: nil,
		},
		{
			name: "intervals touching the window bounds are ignored",
			busy: []BusyInterval{
				busy(at(day, 7, 0), at(day, 9, 0)),
				busy(at(day, 17, 0), at(day, 18, 0)),
			},
			expected: []FreeWindow{{Start: at(day, 9, 0), End: at(day, 17, 0)}},
		},
		{
			name:     "interval on another day is a no-op",
			busy:     []BusyInterval{busy(at(day.AddDate(0, 0, 1), 9, 0), at(day.AddDate(0, 0, 1), 17, 0))},
			expected: []FreeWindow{{Start: at(day, 9, 0), End: at(day, 17, 0)}},
		},
		{
			name: "overlapping and duplicate intervals need no merging",
			busy: []BusyInterval{
				busy(at(day, 10, 0), at(day, 11, 0)),
				busy(at(day, 10, 0), at(day, 11, 0)),
				busy(at(day, 10, 30), at(day, 12, 0)),
				busy(at(day, 11, 45), at(day, 12, 15)),
			},
			expected: []FreeWindow{
				{Start: at(day, 9, 0), End: at(day, 10, 0)},
				{Start: at(day, 12, 15), End: at(day, 17, 0)},
			},
		},
		{
			name: "interval straddling the window start clips it",
			busy: []BusyInterval{busy(at(day, 8, 0), at(day, 9, 45))},
			expected: []FreeWindow{
				{Start: at(day, 9, 45), End: at(day, 17, 0)},
			},
		},
		{
			name: "interval spanning midnight clips the previous evening and next morning",
			busy: []BusyInterval{busy(at(day, 16, 0), at(day.AddDate(0, 0, 1), 10, 0))},
			expected: []FreeWindow{
				{Start: at(day, 9, 0), End: at(day, 16, 0)},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			days := ComputeFreeTime(tc.busy, window, 1, now)
			require.Len(t, days, 1)
			assert.True(t, days[0].Date.Equal(day))
			assertWindowsEqual(t, tc.expected, days[0].Windows)
		})
	}
}

func assertWindowsEqual(t *testing.T, expected, actual []FreeWindow) {
	t.Helper()
	require.Len(t, actual, len(expected))
	for i := range expected {
		assert.True(t, expected[i].Start.Equal(actual[i].Start), "window %d start: want %s got %s", i, expected[i].Start, actual[i].Start)
		assert.True(t, expected[i].End.Equal(actual[i].End), "window %d end: want %s got %s", i, expected[i].End, actual[i].End)
	}
}

func TestComputeFreeTime_Horizon(t *testing.T) {
	loc, err := time.LoadLocation("America/Toronto")
	require.NoError(t, err)
	window := mustWindow(t, "09:00", "17:00", loc)

	// 23:30 UTC on Mar 7 is still Mar 7 in Toronto.
	now := time.Date(2025, 3, 7, 23, 30, 0, 0, time.UTC)

	days := ComputeFreeTime(nil, window, 5, now)
	require.Len(t, days, 5)

	for i, d := range days {
		assert.Equal(t, 7+i, d.Date.Day())
		require.Len(t, d.Windows, 1)
		start := d.Windows[0].Start.In(loc)
		end := d.Windows[0].End.In(loc)
		assert.Equal(t, 9, start.Hour())
		assert.Equal(t, 17, end.Hour())
	}

	// Mar 9 2025 is the DST switch in Toronto: wall-clock bounds still hold.
	assert.Equal(t, 8*time.Hour, days[2].Windows[0].Duration())

	assert.Empty(t, ComputeFreeTime(nil, window, 0, now))
}

func TestComputeFreeTime_Properties(t *testing.T) {
	window := mustWindow(t, "09:00", "17:00", time.UTC)
	now := time.Date(2025, 3, 3, 6, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		var raw []BusyInterval
		n := rng.Intn(12)
		for i := 0; i < n; i++ {
			start := now.Add(time.Duration(rng.Intn(4*24*60)) * time.Minute)
			end := start.Add(time.Duration(1+rng.Intn(300)) * time.Minute)
			raw = append(raw, busy(start, end))
		}
		sorted := NormalizeIntervals(toRaw(raw))

		for _, day := range ComputeFreeTime(sorted, window, 4, now) {
			winStart, winEnd := window.On(day.Date)
			for i, w := range day.Windows {
				assert.True(t, w.End.After(w.Start), "empty window")
				assert.False(t, w.Start.Before(winStart), "window starts before work day")
				assert.False(t, w.End.After(winEnd), "window ends after work day")
				for j := i + 1; j < len(day.Windows); j++ {
					other := day.Windows[j]
					assert.False(t, w.Start.Before(other.End) && other.Start.Before(w.End), "free windows overlap")
				}
				for _, b := range sorted {
					assert.False(t, b.Overlaps(w.Start, w.End), "free window intersects busy interval")
				}
			}
		}
	}
}

func toRaw(in []BusyInterval) []RawInterval {
	out := make([]RawInterval, 0, len(in))
	for _, b := range in {
		out = append(out, RawInterval{Start: b.Start.Format(time.RFC3339), End: b.End.Format(time.RFC3339)})
	}
	return out
}
