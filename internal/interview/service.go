package interview

import (
	"context"
	"encoding/json"
	"log"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/hackgods/interview-scheduling/internal/config"
	redisclient "github.com/hackgods/interview-scheduling/internal/redis"
	"github.com/hackgods/interview-scheduling/internal/scheduling"
)

const (
	MaxNoteLength = 1000

	lapseBatchSize = 200
)

type Service struct {
	repo         Repository
	availability AvailabilitySource
	locker       redisclient.Locker
	cfg          config.Config
	clock        scheduling.Clock
}

type Option func(*Service)

// WithClock replaces the wall clock used for "today" and for lapsing.
func WithClock(c scheduling.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// NewService wires the lifecycle manager. locker may be nil, in which case
// commits rely on the conditional write alone.
func NewService(repo Repository, availability AvailabilitySource, locker redisclient.Locker, cfg config.Config, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		availability: availability,
		locker:       locker,
		cfg:          cfg,
		clock:        scheduling.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) planner() scheduling.Planner {
	return scheduling.Planner{
		Window:        s.cfg.WorkWindow,
		LookaheadDays: s.cfg.LookaheadDays,
		Clock:         s.clock,
	}
}

type CreateInput struct {
	EmployerID      uuid.UUID
	StudentID       uuid.UUID
	JobID           uuid.UUID
	ApplicationID   *uuid.UUID
	DurationMinutes int
	Note            *string
}

func (s *Service) validateDuration(minutes int) error {
	if minutes < 1 || minutes > s.cfg.MaxDurationMinutes {
		return validationf("duration_minutes must be between 1 and %d, got %d", s.cfg.MaxDurationMinutes, minutes)
	}
	return nil
}

func (s *Service) validateCreate(in CreateInput) error {
	if in.EmployerID == uuid.Nil {
		return validationf("employer id is required")
	}
	if in.StudentID == uuid.Nil {
		return validationf("student_id is required")
	}
	if in.JobID == uuid.Nil {
		return validationf("job_id is required")
	}
	if in.ApplicationID != nil && *in.ApplicationID == uuid.Nil {
		return validationf("application_id must not be the nil uuid")
	}
	if err := s.validateDuration(in.DurationMinutes); err != nil {
		return err
	}
	if in.Note != nil && utf8.RuneCountInString(*in.Note) > MaxNoteLength {
		return validationf("note must be at most %d characters", MaxNoteLength)
	}
	return nil
}

// CreateRequest proposes interview slots to a student. The employer's busy
// calendar is snapshotted and the candidate slots are computed once; both are
// stored with the request and never rebuilt.
func (s *Service) CreateRequest(ctx context.Context, in CreateInput) (*InterviewRequest, error) {
	if err := s.validateCreate(in); err != nil {
		return nil, err
	}

	employer, err := s.repo.GetEmployerByID(ctx, in.EmployerID)
	if err != nil {
		return nil, notFoundOr(err, "load employer")
	}
	if _, err := s.repo.GetStudentByID(ctx, in.StudentID); err != nil {
		return nil, notFoundOr(err, "load student")
	}

	job, err := s.repo.GetJobByID(ctx, in.JobID)
	if err != nil {
		return nil, notFoundOr(err, "load job")
	}
	if job.EmployerID != employer.ID {
		// same answer as a missing job
		return nil, ErrJobNotFound
	}

	if in.ApplicationID != nil {
		app, err := s.repo.GetApplicationByID(ctx, *in.ApplicationID)
		if err != nil {
			return nil, notFoundOr(err, "load application")
		}
		if app.StudentID != in.StudentID || app.JobID != in.JobID {
			return nil, ErrApplicationNotFound
		}
	}

	busy, err := s.availability.BusyIntervals(ctx, employer)
	if err != nil {
		return nil, notFoundOr(err, "load busy intervals")
	}

	slots, err := s.planner().CandidateSlots(busy, in.DurationMinutes)
	if err != nil {
		if errors.Is(err, scheduling.ErrNoAvailability) {
			return nil, ErrNoAvailability
		}
		return nil, errors.Wrap(err, "compute candidate slots")
	}

	created, err := s.repo.CreateRequest(ctx, NewInterviewRequest{
		StudentID:            in.StudentID,
		EmployerID:           employer.ID,
		JobID:                job.ID,
		ApplicationID:        in.ApplicationID,
		DurationMinutes:      in.DurationMinutes,
		AvailabilitySnapshot: busy,
		ProposedSlots:        slots,
		Note:                 in.Note,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create interview request")
	}

	s.logEvent(ctx, created.ID, EventRequestCreated, map[string]any{
		"employer_id":      employer.ID.String(),
		"student_id":       in.StudentID.String(),
		"job_id":           job.ID.String(),
		"duration_minutes": in.DurationMinutes,
		"proposed_slots":   len(slots),
	})

	return created, nil
}

// PreviewSlots runs the planner for an employer without persisting anything.
func (s *Service) PreviewSlots(ctx context.Context, employerID uuid.UUID, durationMinutes int) ([]scheduling.CandidateSlot, error) {
	if err := s.validateDuration(durationMinutes); err != nil {
		return nil, err
	}

	employer, err := s.repo.GetEmployerByID(ctx, employerID)
	if err != nil {
		return nil, notFoundOr(err, "load employer")
	}

	busy, err := s.availability.BusyIntervals(ctx, employer)
	if err != nil {
		return nil, notFoundOr(err, "load busy intervals")
	}

	slots, err := s.planner().CandidateSlots(busy, durationMinutes)
	if err != nil {
		if errors.Is(err, scheduling.ErrNoAvailability) {
			return nil, ErrNoAvailability
		}
		return nil, errors.Wrap(err, "compute candidate slots")
	}
	return slots, nil
}

// SelectSlot commits the student's choice of one proposed slot. Checks run in
// order: ownership, slot membership, status. The commit itself is a single
// conditional write, so of several concurrent selections on one request at
// most one succeeds and the rest see ErrStateConflict.
func (s *Service) SelectSlot(ctx context.Context, requestID, studentID uuid.UUID, slotID string) (*InterviewRequest, error) {
	req, err := s.loadOwned(ctx, requestID, RoleStudent, studentID)
	if err != nil {
		return nil, err
	}

	slot, ok := req.Slot(slotID)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidSlot, "slot %q", slotID)
	}

	if !Select.Allowed(req.Status) {
		return nil, errors.Wrapf(ErrStateConflict, "interview request is %s", req.Status)
	}

	updated, err := s.commit(ctx, req.ID, Select, &slot)
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, updated.ID, EventRequestScheduled, map[string]any{
		"slot_id":      slot.ID,
		"chosen_start": slot.Start,
		"chosen_end":   slot.End,
	})

	return updated, nil
}

// DeclineRequest lets the student turn down a pending request.
func (s *Service) DeclineRequest(ctx context.Context, requestID, studentID uuid.UUID) (*InterviewRequest, error) {
	req, err := s.loadOwned(ctx, requestID, RoleStudent, studentID)
	if err != nil {
		return nil, err
	}
	if !Decline.Allowed(req.Status) {
		return nil, errors.Wrapf(ErrStateConflict, "interview request is %s", req.Status)
	}

	updated, err := s.commit(ctx, req.ID, Decline, nil)
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, updated.ID, EventRequestDeclined, map[string]any{})
	return updated, nil
}

// CompleteRequest lets the employer mark a scheduled interview as held.
func (s *Service) CompleteRequest(ctx context.Context, requestID, employerID uuid.UUID) (*InterviewRequest, error) {
	req, err := s.loadOwned(ctx, requestID, RoleEmployer, employerID)
	if err != nil {
		return nil, err
	}
	if !Complete.Allowed(req.Status) {
		return nil, errors.Wrapf(ErrStateConflict, "interview request is %s", req.Status)
	}

	updated, err := s.commit(ctx, req.ID, Complete, nil)
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, updated.ID, EventRequestCompleted, map[string]any{})
	return updated, nil
}

// LapseStaleRequests cancels pending requests whose last proposed slot has
// already started. It is intended to be called by the worker periodically and
// returns how many requests were lapsed.
func (s *Service) LapseStaleRequests(ctx context.Context) (int, error) {
	now := s.clock.Now()
	stale, err := s.repo.FindLapsedPending(ctx, now, lapseBatchSize)
	if err != nil {
		return 0, errors.Wrap(err, "find lapsed pending requests")
	}

	lapsed := 0
	for _, req := range stale {
		_, err := s.repo.TransitionRequest(ctx, req.ID, Lapse, nil)
		if err != nil {
			if !errors.Is(err, ErrStateConflict) {
				log.Printf("failed to lapse interview request %s: %v", req.ID, err)
			}
			// lost to a concurrent select or decline
			continue
		}
		lapsed++
		s.logEvent(ctx, req.ID, EventRequestLapsed, map[string]any{
			"last_slot_start": req.LastSlotStart(),
		})
	}

	return lapsed, nil
}

func (s *Service) GetForStudent(ctx context.Context, requestID, studentID uuid.UUID) (*InterviewRequest, error) {
	return s.loadOwned(ctx, requestID, RoleStudent, studentID)
}

func (s *Service) GetForEmployer(ctx context.Context, requestID, employerID uuid.UUID) (*InterviewRequest, error) {
	return s.loadOwned(ctx, requestID, RoleEmployer, employerID)
}

func (s *Service) ListForStudent(ctx context.Context, studentID uuid.UUID, filter ListFilter) ([]InterviewRequest, error) {
	return s.list(ctx, RoleStudent, studentID, filter)
}

func (s *Service) ListForEmployer(ctx context.Context, employerID uuid.UUID, filter ListFilter) ([]InterviewRequest, error) {
	return s.list(ctx, RoleEmployer, employerID, filter)
}

func (s *Service) list(ctx context.Context, role Role, partyID uuid.UUID, filter ListFilter) ([]InterviewRequest, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, validationf("unknown status %q", *filter.Status)
	}
	requests, err := s.repo.ListRequests(ctx, role, partyID, filter.Normalized())
	if err != nil {
		return nil, errors.Wrapf(err, "list interview requests for %s", role)
	}
	return requests, nil
}

// loadOwned returns the request when partyID may act on it as role. A request
// owned by someone else is reported as missing.
func (s *Service) loadOwned(ctx context.Context, requestID uuid.UUID, role Role, partyID uuid.UUID) (*InterviewRequest, error) {
	req, err := s.repo.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, notFoundOr(err, "load interview request")
	}
	if !req.OwnedBy(role, partyID) {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

// commit applies t under the per-request lock when one is configured.
func (s *Service) commit(ctx context.Context, requestID uuid.UUID, t Transition, chosen *scheduling.CandidateSlot) (*InterviewRequest, error) {
	var updated *InterviewRequest

	apply := func(ctx context.Context) error {
		req, err := s.repo.TransitionRequest(ctx, requestID, t, chosen)
		if err != nil {
			return err
		}
		updated = req
		return nil
	}

	var err error
	if s.locker == nil {
		err = apply(ctx)
	} else {
		err = s.locker.WithRequestLock(ctx, requestID, apply)
	}

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, errors.Wrap(ErrStateConflict, "interview request is being updated")
		}
		if errors.Is(err, ErrStateConflict) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "%s interview request", t.Name())
	}
	return updated, nil
}

// notFoundOr passes not-found errors through and wraps everything else.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return errors.Wrap(err, msg)
}

func (s *Service) logEvent(ctx context.Context, requestID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	id := requestID

	ev := EventLog{
		EventType: eventType,
		RequestID: &id,
		Payload:   data,
		CreatedAt: s.clock.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event %s for interview request %s: %v", eventType, requestID, err)
	}
}
