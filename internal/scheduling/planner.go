package scheduling

import (
	"time"

	"github.com/cockroachdb/errors"
)

var (
	ErrNoAvailability  = errors.New("no interview slot is available in the lookahead horizon")
	ErrInvalidDuration = errors.New("invalid interview duration")
)

// ComputeCandidateSlots turns busy intervals into the ordered list of
// durationMinutes-long slots free during the work window over lookaheadDays
// days starting on now's day. An empty result is ErrNoAvailability.
func ComputeCandidateSlots(
	busy []BusyInterval,
	durationMinutes int,
	lookaheadDays int,
	window WorkWindow,
	now time.Time,
) ([]CandidateSlot, error) {
	if durationMinutes <= 0 {
		return nil, errors.Wrapf(ErrInvalidDuration, "duration must be positive, got %d minutes", durationMinutes)
	}

	days := ComputeFreeTime(busy, window, lookaheadDays, now)
	slots := GenerateSlots(days, time.Duration(durationMinutes)*time.Minute)
	if len(slots) == 0 {
		return nil, ErrNoAvailability
	}
	return slots, nil
}

// Planner binds a work window, horizon and clock so callers only supply the
// busy calendar and the duration.
type Planner struct {
	Window        WorkWindow
	LookaheadDays int
	Clock         Clock
}

func (p Planner) now() time.Time {
	if p.Clock == nil {
		return time.Now()
	}
	return p.Clock.Now()
}

func (p Planner) CandidateSlots(busy []BusyInterval, durationMinutes int) ([]CandidateSlot, error) {
	return ComputeCandidateSlots(busy, durationMinutes, p.LookaheadDays, p.Window, p.now())
}
