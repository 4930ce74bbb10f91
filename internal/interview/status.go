package interview

type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Transition is one legal edge of the request lifecycle. Its fields are
// unexported so only the values declared below exist.
type Transition struct {
	name string
	from Status
	to   Status
}

var (
	Select   = Transition{name: "select", from: StatusPending, to: StatusScheduled}
	Decline  = Transition{name: "decline", from: StatusPending, to: StatusCancelled}
	Lapse    = Transition{name: "lapse", from: StatusPending, to: StatusCancelled}
	Complete = Transition{name: "complete", from: StatusScheduled, to: StatusCompleted}
)

func (t Transition) Name() string { return t.name }
func (t Transition) From() Status { return t.from }
func (t Transition) To() Status   { return t.to }

// Allowed reports whether t can fire on a request currently in s.
func (t Transition) Allowed(s Status) bool {
	return t.name != "" && t.from == s
}

// SetsChosenSlot is true for the only edge that records chosen bounds.
func (t Transition) SetsChosenSlot() bool {
	return t == Select
}
