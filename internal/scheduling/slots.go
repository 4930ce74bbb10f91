package scheduling

import "time"

const slotIDLayout = "2006-01-02T15:04:05.000Z07:00"

// CandidateSlot is a fixed-duration interview time that can be offered.
type CandidateSlot struct {
	ID    string    `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SlotID derives the identifier of the slot [start, end). Both instants are
// rendered in UTC with millisecond precision, so the same bounds always give
// the same id whatever zone they were computed in.
func SlotID(start, end time.Time) string {
	return start.UTC().Format(slotIDLayout) + "_" + end.UTC().Format(slotIDLayout)
}

// NewCandidateSlot returns the slot [start, end) with its derived id.
func NewCandidateSlot(start, end time.Time) CandidateSlot {
	return CandidateSlot{
		ID:    SlotID(start, end),
		Start: start,
		End:   end,
	}
}

// SlotsInWindow packs back-to-back slots of length d from the start of w.
// A remainder shorter than d is dropped.
func SlotsInWindow(w FreeWindow, d time.Duration) []CandidateSlot {
	if d <= 0 {
		return nil
	}

	var slots []CandidateSlot
	for cur := w.Start; !cur.Add(d).After(w.End); cur = cur.Add(d) {
		slots = append(slots, NewCandidateSlot(cur, cur.Add(d)))
	}
	return slots
}

// GenerateSlots slices every free window of every day into slots of length d,
// in day then window order.
func GenerateSlots(days []DayFreeTime, d time.Duration) []CandidateSlot {
	var slots []CandidateSlot
	for _, day := range days {
		for _, w := range day.Windows {
			slots = append(slots, SlotsInWindow(w, d)...)
		}
	}
	return slots
}

// FindSlot returns the slot with the given id. It only succeeds when exactly
// one slot carries that id.
func FindSlot(slots []CandidateSlot, id string) (CandidateSlot, bool) {
	var (
		found CandidateSlot
		n     int
	)
	for _, s := range slots {
		if s.ID == id {
			found = s
			n++
		}
	}
	if n != 1 {
		return CandidateSlot{}, false
	}
	return found, true
}
