package scheduling

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

// TimeOfDay is a wall-clock time within a day.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM". Longer strings such as "09:00:00" are cut to
// their first five characters.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) < 5 {
		return TimeOfDay{}, errors.Newf("invalid time of day %q", s)
	}
	t, err := time.Parse("15:04", s[:5])
	if err != nil {
		return TimeOfDay{}, errors.Wrapf(err, "invalid time of day %q", s)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

// WorkWindow is the daily range, in the proposer's reference time zone, in
// which interviews may be offered.
type WorkWindow struct {
	Start    TimeOfDay
	End      TimeOfDay
	Location *time.Location
}

// NewWorkWindow builds a window from "HH:MM" bounds.
func NewWorkWindow(start, end string, loc *time.Location) (WorkWindow, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return WorkWindow{}, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return WorkWindow{}, err
	}
	if e.minutes() <= s.minutes() {
		return WorkWindow{}, errors.Newf("work window end %s must be after start %s", e, s)
	}
	if loc == nil {
		loc = time.UTC
	}
	return WorkWindow{Start: s, End: e, Location: loc}, nil
}

func (w WorkWindow) location() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// On returns the window bounds on the calendar day of date, as seen in the
// window's time zone.
func (w WorkWindow) On(date time.Time) (time.Time, time.Time) {
	loc := w.location()
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, w.Start.Hour, w.Start.Minute, 0, 0, loc),
		time.Date(y, m, d, w.End.Hour, w.End.Minute, 0, 0, loc)
}

// FreeWindow is a contiguous free range inside one day's work window.
type FreeWindow struct {
	Start time.Time
	End   time.Time
}

func (f FreeWindow) Duration() time.Duration {
	return f.End.Sub(f.Start)
}

// DayFreeTime holds the free windows left on one day of the horizon.
type DayFreeTime struct {
	Date    time.Time
	Windows []FreeWindow
}

// ComputeFreeTime subtracts busy from the work window of each of the
// lookaheadDays days starting on now's calendar day. busy must be sorted by
// start (see NormalizeIntervals) for the output to be deterministic.
func ComputeFreeTime(busy []BusyInterval, window WorkWindow, lookaheadDays int, now time.Time) []DayFreeTime {
	if lookaheadDays <= 0 {
		return nil
	}

	loc := window.location()
	y, m, d := now.In(loc).Date()

	days := make([]DayFreeTime, 0, lookaheadDays)
	for i := 0; i < lookaheadDays; i++ {
		date := time.Date(y, m, d+i, 0, 0, 0, 0, loc)
		winStart, winEnd := window.On(date)

		free := []FreeWindow{{Start: winStart, End: winEnd}}
		for _, b := range busy {
			if len(free) == 0 {
				break
			}
			if !b.Overlaps(winStart, winEnd) {
				continue
			}
			free = subtract(free, b)
		}

		days = append(days, DayFreeTime{Date: date, Windows: free})
	}
	return days
}

// subtract removes b from every segment it intersects, keeping the left and
// right remainders.
func subtract(segments []FreeWindow, b BusyInterval) []FreeWindow {
	out := make([]FreeWindow, 0, len(segments)+1)
	for _, seg := range segments {
		if !b.Overlaps(seg.Start, seg.End) {
			out = append(out, seg)
			continue
		}
		if b.Start.After(seg.Start) {
			out = append(out, FreeWindow{Start: seg.Start, End: b.Start})
		}
		if b.End.Before(seg.End) {
			out = append(out, FreeWindow{Start: b.End, End: seg.End})
		}
	}
	return out
}
