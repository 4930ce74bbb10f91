package scheduling

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// RawInterval is a busy interval as it arrives from a calendar or a profile
// record: instants are still strings and may be garbage.
type RawInterval struct {
	ID    string `json:"id,omitempty"`
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label,omitempty"`
}

// BusyInterval is a period during which the proposing party cannot be
// scheduled.
type BusyInterval struct {
	ID    string    `json:"id,omitempty"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label,omitempty"`
}

// Overlaps reports whether b intersects [start, end). Touching bounds do not
// overlap.
func (b BusyInterval) Overlaps(start, end time.Time) bool {
	return b.Start.Before(end) && b.End.After(start)
}

// ParseRawIntervals decodes a loosely typed JSON array of busy intervals.
// Elements that do not decode are skipped; a document that is not an array
// yields nil.
func ParseRawIntervals(data []byte) []RawInterval {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil
	}

	out := make([]RawInterval, 0, len(elems))
	for _, e := range elems {
		var r RawInterval
		if err := json.Unmarshal(e, &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}

// NormalizeIntervals parses and sorts raw busy intervals ascending by start.
// Entries with an unparseable instant, or whose end is not after their start,
// are dropped: they carry no usable busy time. Nothing is merged.
func NormalizeIntervals(raw []RawInterval) []BusyInterval {
	out := make([]BusyInterval, 0, len(raw))
	for _, r := range raw {
		start, ok := parseInstant(r.Start)
		if !ok {
			continue
		}
		end, ok := parseInstant(r.End)
		if !ok {
			continue
		}
		if !end.After(start) {
			continue
		}
		out = append(out, BusyInterval{
			ID:    r.ID,
			Start: start,
			End:   end,
			Label: r.Label,
		})
	}

	SortIntervals(out)
	return out
}

// SortIntervals orders busy ascending by start, then by end. Equal intervals
// keep their relative order.
func SortIntervals(busy []BusyInterval) {
	sort.SliceStable(busy, func(i, j int) bool {
		if busy[i].Start.Equal(busy[j].Start) {
			return busy[i].End.Before(busy[j].End)
		}
		return busy[i].Start.Before(busy[j].Start)
	})
}

func parseInstant(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
