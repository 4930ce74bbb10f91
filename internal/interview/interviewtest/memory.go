// Package interviewtest provides in-memory stand-ins for the interview
// repository, availability source and request lock.
package interviewtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/interview-scheduling/internal/interview"
	redisclient "github.com/hackgods/interview-scheduling/internal/redis"
	"github.com/hackgods/interview-scheduling/internal/scheduling"
)

// Repository is a mutex-guarded interview.Repository. Every method is safe
// for concurrent use and TransitionRequest is an atomic compare-and-set.
// It also implements interview.AvailabilitySource from per-employer raw
// intervals.
type Repository struct {
	mu sync.Mutex

	employers    map[uuid.UUID]interview.Employer
	busy         map[uuid.UUID][]scheduling.RawInterval
	students     map[uuid.UUID]interview.Student
	jobs         map[uuid.UUID]interview.Job
	applications map[uuid.UUID]interview.Application
	requests     map[uuid.UUID]interview.InterviewRequest
	events       []interview.EventLog

	now func() time.Time
	seq int64

	// Hooks for failure injection.
	FailInsertEvent error
	FailBusy        error
}

func NewRepository() *Repository {
	return &Repository{
		employers:    map[uuid.UUID]interview.Employer{},
		busy:         map[uuid.UUID][]scheduling.RawInterval{},
		students:     map[uuid.UUID]interview.Student{},
		jobs:         map[uuid.UUID]interview.Job{},
		applications: map[uuid.UUID]interview.Application{},
		requests:     map[uuid.UUID]interview.InterviewRequest{},
		now:          time.Now,
	}
}

// UseClock makes created_at/updated_at follow c.
func (r *Repository) UseClock(c scheduling.Clock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = c.Now
}

// Seeding

func (r *Repository) AddEmployer(name string, busy ...scheduling.RawInterval) interview.Employer {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := interview.Employer{ID: uuid.New(), CompanyName: name, CreatedAt: r.now(), UpdatedAt: r.now()}
	r.employers[e.ID] = e
	r.busy[e.ID] = busy
	return e
}

func (r *Repository) SetBusy(employerID uuid.UUID, busy ...scheduling.RawInterval) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.busy[employerID] = busy
}

func (r *Repository) AddStudent(name string) interview.Student {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := interview.Student{ID: uuid.New(), FullName: name, CreatedAt: r.now(), UpdatedAt: r.now()}
	r.students[s.ID] = s
	return s
}

func (r *Repository) AddJob(employerID uuid.UUID, title string) interview.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	j := interview.Job{ID: uuid.New(), EmployerID: employerID, Title: title, CreatedAt: r.now(), UpdatedAt: r.now()}
	r.jobs[j.ID] = j
	return j
}

func (r *Repository) AddApplication(studentID, jobID uuid.UUID) interview.Application {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := interview.Application{ID: uuid.New(), StudentID: studentID, JobID: jobID, CreatedAt: r.now()}
	r.applications[a.ID] = a
	return a
}

// PutRequest stores req as is, bypassing the service.
func (r *Repository) PutRequest(req interview.InterviewRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[req.ID] = req
}

func (r *Repository) Events() []interview.EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]interview.EventLog(nil), r.events...)
}

func (r *Repository) RequestCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// interview.Repository

func (r *Repository) GetEmployerByID(_ context.Context, id uuid.UUID) (*interview.Employer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.employers[id]
	if !ok {
		return nil, interview.ErrEmployerNotFound
	}
	return &e, nil
}

func (r *Repository) GetStudentByID(_ context.Context, id uuid.UUID) (*interview.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.students[id]
	if !ok {
		return nil, interview.ErrStudentNotFound
	}
	return &s, nil
}

func (r *Repository) GetJobByID(_ context.Context, id uuid.UUID) (*interview.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, interview.ErrJobNotFound
	}
	return &j, nil
}

func (r *Repository) GetApplicationByID(_ context.Context, id uuid.UUID) (*interview.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.applications[id]
	if !ok {
		return nil, interview.ErrApplicationNotFound
	}
	return &a, nil
}

func (r *Repository) CreateRequest(_ context.Context, in interview.NewInterviewRequest) (*interview.InterviewRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	req := interview.InterviewRequest{
		ID:                   uuid.New(),
		StudentID:            in.StudentID,
		EmployerID:           in.EmployerID,
		JobID:                in.JobID,
		ApplicationID:        in.ApplicationID,
		Status:               interview.StatusPending,
		DurationMinutes:      in.DurationMinutes,
		AvailabilitySnapshot: append([]scheduling.BusyInterval(nil), in.AvailabilitySnapshot...),
		ProposedSlots:        append([]scheduling.CandidateSlot(nil), in.ProposedSlots...),
		Note:                 in.Note,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	r.requests[req.ID] = req

	out := req
	return &out, nil
}

func (r *Repository) GetRequestByID(_ context.Context, id uuid.UUID) (*interview.InterviewRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, interview.ErrRequestNotFound
	}
	return &req, nil
}

func (r *Repository) ListRequests(_ context.Context, role interview.Role, partyID uuid.UUID, filter interview.ListFilter) ([]interview.InterviewRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []interview.InterviewRequest
	for _, req := range r.requests {
		if !req.OwnedBy(role, partyID) {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		matched = append(matched, req)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *Repository) TransitionRequest(_ context.Context, id uuid.UUID, t interview.Transition, chosen *scheduling.CandidateSlot) (*interview.InterviewRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok || req.Status != t.From() {
		return nil, fmt.Errorf("%s interview request %s: %w", t.Name(), id, interview.ErrStateConflict)
	}

	if t.SetsChosenSlot() {
		if chosen == nil {
			return nil, fmt.Errorf("%s transition needs a chosen slot", t.Name())
		}
		start, end := chosen.Start, chosen.End
		req.ChosenStart, req.ChosenEnd = &start, &end
	}
	req.Status = t.To()
	req.UpdatedAt = r.now()
	r.requests[id] = req

	out := req
	return &out, nil
}

func (r *Repository) FindLapsedPending(_ context.Context, now time.Time, limit int) ([]interview.InterviewRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []interview.InterviewRequest
	for _, req := range r.requests {
		if req.Status != interview.StatusPending || req.LastSlotStart().After(now) {
			continue
		}
		result = append(result, req)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastSlotStart().Before(result[j].LastSlotStart())
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *Repository) InsertEvent(_ context.Context, ev interview.EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailInsertEvent != nil {
		return r.FailInsertEvent
	}
	r.seq++
	ev.ID = r.seq
	r.events = append(r.events, ev)
	return nil
}

// interview.AvailabilitySource

func (r *Repository) BusyIntervals(_ context.Context, employer *interview.Employer) ([]scheduling.BusyInterval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailBusy != nil {
		return nil, r.FailBusy
	}
	raw, ok := r.busy[employer.ID]
	if !ok {
		return nil, interview.ErrEmployerNotFound
	}
	return scheduling.NormalizeIntervals(raw), nil
}

// Locker is an in-process redisclient.Locker. Like the Redis one it fails
// fast when the request is already locked.
type Locker struct {
	mu   sync.Mutex
	held map[uuid.UUID]bool
}

var _ redisclient.Locker = (*Locker)(nil)

func NewLocker() *Locker {
	return &Locker{held: map[uuid.UUID]bool{}}
}

// Hold marks requestID as locked by someone else until the returned func is
// called.
func (l *Locker) Hold(requestID uuid.UUID) func() {
	l.mu.Lock()
	l.held[requestID] = true
	l.mu.Unlock()
	return func() { l.unlock(requestID) }
}

func (l *Locker) WithRequestLock(ctx context.Context, requestID uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.held[requestID] {
		l.mu.Unlock()
		return redisclient.ErrLockNotAcquired
	}
	l.held[requestID] = true
	l.mu.Unlock()

	defer l.unlock(requestID)
	return fn(ctx)
}

func (l *Locker) unlock(requestID uuid.UUID) {
	l.mu.Lock()
	delete(l.held, requestID)
	l.mu.Unlock()
}
