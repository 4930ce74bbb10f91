package interview

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/interview-scheduling/internal/scheduling"
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetEmployerByID(ctx context.Context, id uuid.UUID) (*Employer, error)
	GetStudentByID(ctx context.Context, id uuid.UUID) (*Student, error)
	GetJobByID(ctx context.Context, id uuid.UUID) (*Job, error)
	GetApplicationByID(ctx context.Context, id uuid.UUID) (*Application, error)

	CreateRequest(ctx context.Context, in NewInterviewRequest) (*InterviewRequest, error)
	GetRequestByID(ctx context.Context, id uuid.UUID) (*InterviewRequest, error)
	ListRequests(ctx context.Context, role Role, partyID uuid.UUID, filter ListFilter) ([]InterviewRequest, error)

	// TransitionRequest applies t as a single conditional write keyed on
	// t.From(). chosen is stored only for Select. When the request is not in
	// t.From() it returns ErrStateConflict and changes nothing.
	TransitionRequest(ctx context.Context, id uuid.UUID, t Transition, chosen *scheduling.CandidateSlot) (*InterviewRequest, error)

	// Lapse worker
	FindLapsedPending(ctx context.Context, now time.Time, limit int) ([]InterviewRequest, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}

// AvailabilitySource supplies an employer's busy calendar, already
// normalized.
type AvailabilitySource interface {
	BusyIntervals(ctx context.Context, employer *Employer) ([]scheduling.BusyInterval, error)
}
