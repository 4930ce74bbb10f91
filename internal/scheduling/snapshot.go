package scheduling

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// SnapshotVersion is the format written for persisted availability snapshots
// and proposed slot lists.
const SnapshotVersion = 1

var ErrMalformedSnapshot = errors.New("malformed snapshot")

type availabilityDoc struct {
	Version   int            `json:"version"`
	Intervals []BusyInterval `json:"intervals"`
}

type slotsDoc struct {
	Version int             `json:"version"`
	Slots   []CandidateSlot `json:"slots"`
}

func EncodeAvailability(busy []BusyInterval) ([]byte, error) {
	if busy == nil {
		busy = []BusyInterval{}
	}
	return json.Marshal(availabilityDoc{Version: SnapshotVersion, Intervals: busy})
}

// DecodeAvailability reads a document written by EncodeAvailability.
func DecodeAvailability(data []byte) ([]BusyInterval, error) {
	var doc availabilityDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(ErrMalformedSnapshot, "decode availability snapshot: %v", err)
	}
	if doc.Version != SnapshotVersion {
		return nil, errors.Wrapf(ErrMalformedSnapshot, "unsupported availability snapshot version %d", doc.Version)
	}
	for i, b := range doc.Intervals {
		if !b.End.After(b.Start) {
			return nil, errors.Wrapf(ErrMalformedSnapshot, "availability snapshot interval %d ends before it starts", i)
		}
	}
	return doc.Intervals, nil
}

func EncodeSlots(slots []CandidateSlot) ([]byte, error) {
	if slots == nil {
		slots = []CandidateSlot{}
	}
	return json.Marshal(slotsDoc{Version: SnapshotVersion, Slots: slots})
}

// DecodeSlots reads a document written by EncodeSlots. Every slot id must
// match the id derived from its bounds.
func DecodeSlots(data []byte) ([]CandidateSlot, error) {
	var doc slotsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(ErrMalformedSnapshot, "decode proposed slots: %v", err)
	}
	if doc.Version != SnapshotVersion {
		return nil, errors.Wrapf(ErrMalformedSnapshot, "unsupported proposed slots version %d", doc.Version)
	}
	for i, s := range doc.Slots {
		if !s.End.After(s.Start) || s.ID != SlotID(s.Start, s.End) {
			return nil, errors.Wrapf(ErrMalformedSnapshot, "proposed slot %d (%q) does not match its bounds", i, s.ID)
		}
	}
	return doc.Slots, nil
}
