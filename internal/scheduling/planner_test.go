package scheduling

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeCandidateSlots_WorkedExample(t *testing.T) {
	window := mustWindow(t, "09:00", "17:00", time.UTC)
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	busyList := NormalizeIntervals([]RawInterval{
		{Start: "2025-03-03T09:00:00Z", End: "2025-03-03T10:00:00Z"},
		{Start: "2025-03-03T13:00:00Z", End: "2025-03-03T17:00:00Z"},
	})

	slots, err := ComputeCandidateSlots(busyList, 30, 1, window, at(day, 7, 0))
	require.NoError(t, err)

	var actual []string
	for _, s := range slots {
		actual = append(actual, s.Start.Format("15:04")+"-"+s.End.Format("15:04"))
	}
	expected := []string{
		"10:00-10:30",
		"10:30-11:00",
		"11:00-11:30",
		"11:30-12:00",
		"12:00-12:30",
		"12:30-13:00",
	}
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Errorf("slots mismatch (-want +got):\n%s", diff)
	}

	for _, s := range slots {
		for _, b := range busyList {
			assert.False(t, b.Overlaps(s.Start, s.End))
		}
	}
}

func TestComputeCandidateSlots_FullyBusyDay(t *testing.T) {
	window := mustWindow(t, "09:00", "17:00", time.UTC)
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	now := at(day, 7, 0)

	blocked := []BusyInterval{busy(at(day, 8, 0), at(day, 18, 0))}

	_, err := ComputeCandidateSlots(blocked, 30, 1, window, now)
	assert.ErrorIs(t, err, ErrNoAvailability)

	slots, err := ComputeCandidateSlots(nil, 30, 1, window, now)
	require.NoError(t, err)
	assert.Len(t, slots, 16)
}

func TestComputeCandidateSlots_EveryDayBlocked(t *testing.T) {
	window := mustWindow(t, "09:00", "17:00", time.UTC)
	day := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	var blocked []BusyInterval
	for i := 0; i < 5; i++ {
		d := day.AddDate(0, 0, i)
		blocked = append(blocked, busy(at(d, 9, 0), at(d, 17, 0)))
	}

	_, err := ComputeCandidateSlots(blocked, 60, 5, window, at(day, 12, 0))
	assert.ErrorIs(t, err, ErrNoAvailability)

	// A sixth day of horizon reopens availability.
	slots, err := ComputeCandidateSlots(blocked, 60, 6, window, at(day, 12, 0))
	require.NoError(t, err)
	assert.Len(t, slots, 8)
}

func TestComputeCandidateSlots_InvalidDuration(t *testing.T) {
	window := mustWindow(t, "09:00", "17:00", time.UTC)

	_, err := ComputeCandidateSlots(nil, 0, 1, window, time.Now())
	assert.True(t, errors.Is(err, ErrInvalidDuration))

	_, err = ComputeCandidateSlots(nil, -15, 1, window, time.Now())
	assert.True(t, errors.Is(err, ErrInvalidDuration))
}

func TestComputeCandidateSlots_DurationLongerThanWindow(t *testing.T) {
	window := mustWindow(t, "09:00", "10:00", time.UTC)

	_, err := ComputeCandidateSlots(nil, 90, 3, window, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrNoAvailability)
}

func TestComputeCandidateSlots_Properties(t *testing.T) {
	window := mustWindow(t, "09:00", "17:00", time.UTC)
	now := time.Date(2025, 3, 3, 6, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(99))

	for iter := 0; iter < 200; iter++ {
		var raw []RawInterval
		n := rng.Intn(10)
		for i := 0; i < n; i++ {
			start := now.Add(time.Duration(rng.Intn(3*24*60)) * time.Minute)
			end := start.Add(time.Duration(1+rng.Intn(240)) * time.Minute)
			raw = append(raw, RawInterval{Start: start.Format(time.RFC3339), End: end.Format(time.RFC3339)})
		}
		busyList := NormalizeIntervals(raw)
		duration := []int{15, 30, 45, 60, 90}[rng.Intn(5)]

		slots, err := ComputeCandidateSlots(busyList, duration, 3, window, now)
		if err != nil {
			require.ErrorIs(t, err, ErrNoAvailability)
			continue
		}

		again, err := ComputeCandidateSlots(busyList, duration, 3, window, now)
		require.NoError(t, err)
		assert.Equal(t, slots, again, "recomputation must be idempotent")

		for i, s := range slots {
			assert.Equal(t, time.Duration(duration)*time.Minute, s.End.Sub(s.Start))

			winStart, winEnd := window.On(s.Start)
			assert.False(t, s.Start.Before(winStart))
			assert.False(t, s.End.After(winEnd))

			for _, b := range busyList {
				assert.False(t, b.Overlaps(s.Start, s.End), "slot %s intersects busy interval", s.ID)
			}
			if i > 0 {
				assert.False(t, s.Start.Before(slots[i-1].End), "slots must not overlap")
			}
		}
	}
}

func TestPlanner_UsesClock(t *testing.T) {
	window := mustWindow(t, "09:00", "17:00", time.UTC)
	clock := NewMockClock(time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC))
	p := Planner{Window: window, LookaheadDays: 1, Clock: clock}

	slots, err := p.CandidateSlots(nil, 60)
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	assert.Equal(t, 3, slots[0].Start.Day())

	clock.Add(24 * time.Hour)
	slots, err = p.CandidateSlots(nil, 60)
	require.NoError(t, err)
	assert.Equal(t, 4, slots[0].Start.Day())
}
