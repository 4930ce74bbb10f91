package interview

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/interview-scheduling/internal/scheduling"
)

const (
	EventRequestCreated   = "INTERVIEW_REQUEST_CREATED"
	EventRequestScheduled = "INTERVIEW_REQUEST_SCHEDULED"
	EventRequestDeclined  = "INTERVIEW_REQUEST_DECLINED"
	EventRequestCompleted = "INTERVIEW_REQUEST_COMPLETED"
	EventRequestLapsed    = "INTERVIEW_REQUEST_LAPSED"
)

// Role is the party acting on a request.
type Role string

const (
	RoleStudent  Role = "student"
	RoleEmployer Role = "employer"
)

type Employer struct {
	ID          uuid.UUID
	CompanyName string
	CalendarID  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Student struct {
	ID        uuid.UUID
	FullName  string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Job struct {
	ID         uuid.UUID
	EmployerID uuid.UUID
	Title      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Application struct {
	ID        uuid.UUID
	StudentID uuid.UUID
	JobID     uuid.UUID
	CreatedAt time.Time
}

type InterviewRequest struct {
	ID                   uuid.UUID
	StudentID            uuid.UUID
	EmployerID           uuid.UUID
	JobID                uuid.UUID
	ApplicationID        *uuid.UUID
	Status               Status
	DurationMinutes      int
	AvailabilitySnapshot []scheduling.BusyInterval
	ProposedSlots        []scheduling.CandidateSlot
	ChosenStart          *time.Time
	ChosenEnd            *time.Time
	Note                 *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Slot returns the proposed slot with the given id.
func (r *InterviewRequest) Slot(id string) (scheduling.CandidateSlot, bool) {
	return scheduling.FindSlot(r.ProposedSlots, id)
}

// LastSlotStart is the start of the latest proposed slot. Once it has passed
// a pending request can no longer be scheduled.
func (r *InterviewRequest) LastSlotStart() time.Time {
	var last time.Time
	for _, s := range r.ProposedSlots {
		if s.Start.After(last) {
			last = s.Start
		}
	}
	return last
}

// OwnedBy reports whether the party identified by id may act on r as role.
func (r *InterviewRequest) OwnedBy(role Role, id uuid.UUID) bool {
	switch role {
	case RoleStudent:
		return r.StudentID == id
	case RoleEmployer:
		return r.EmployerID == id
	}
	return false
}

// NewInterviewRequest is what the service hands to the repository on create.
type NewInterviewRequest struct {
	StudentID            uuid.UUID
	EmployerID           uuid.UUID
	JobID                uuid.UUID
	ApplicationID        *uuid.UUID
	DurationMinutes      int
	AvailabilitySnapshot []scheduling.BusyInterval
	ProposedSlots        []scheduling.CandidateSlot
	Note                 *string
}

type EventLog struct {
	ID        int64
	EventType string
	RequestID *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}

type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Normalized clamps paging to the supported range.
func (f ListFilter) Normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
