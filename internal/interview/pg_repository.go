package interview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/interview-scheduling/internal/scheduling"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const requestColumns = `id, student_id, employer_id, job_id, application_id, status, duration_minutes,
		availability_snapshot, proposed_slots, chosen_start, chosen_end, note, created_at, updated_at`

// Helpers

func scanEmployer(row pgx.Row) (*Employer, error) {
	var e Employer
	err := row.Scan(&e.ID, &e.CompanyName, &e.CalendarID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmployerNotFound
		}
		return nil, err
	}
	return &e, nil
}

func scanStudent(row pgx.Row) (*Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.FullName, &s.Email, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.EmployerID, &j.Title, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &j, nil
}

func scanApplication(row pgx.Row) (*Application, error) {
	var a Application
	err := row.Scan(&a.ID, &a.StudentID, &a.JobID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return &a, nil
}

func scanRequest(row pgx.Row) (*InterviewRequest, error) {
	var (
		r         InterviewRequest
		snapshot  []byte
		proposals []byte
	)

	err := row.Scan(
		&r.ID,
		&r.StudentID,
		&r.EmployerID,
		&r.JobID,
		&r.ApplicationID,
		&r.Status,
		&r.DurationMinutes,
		&snapshot,
		&proposals,
		&r.ChosenStart,
		&r.ChosenEnd,
		&r.Note,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	r.AvailabilitySnapshot, err = scheduling.DecodeAvailability(snapshot)
	if err != nil {
		return nil, fmt.Errorf("interview request %s: %w", r.ID, err)
	}
	r.ProposedSlots, err = scheduling.DecodeSlots(proposals)
	if err != nil {
		return nil, fmt.Errorf("interview request %s: %w", r.ID, err)
	}
	return &r, nil
}

func scanRequests(rows pgx.Rows) ([]InterviewRequest, error) {
	defer rows.Close()

	var result []InterviewRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Interface methods

func (r *PgRepository) GetEmployerByID(ctx context.Context, id uuid.UUID) (*Employer, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, company_name, calendar_id, created_at, updated_at
		FROM employer_profiles
		WHERE id = $1
	`, id)
	return scanEmployer(row)
}

func (r *PgRepository) GetStudentByID(ctx context.Context, id uuid.UUID) (*Student, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, full_name, email, created_at, updated_at
		FROM student_profiles
		WHERE id = $1
	`, id)
	return scanStudent(row)
}

func (r *PgRepository) GetJobByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, employer_id, title, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`, id)
	return scanJob(row)
}

func (r *PgRepository) GetApplicationByID(ctx context.Context, id uuid.UUID) (*Application, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, student_id, job_id, created_at
		FROM applications
		WHERE id = $1
	`, id)
	return scanApplication(row)
}

func (r *PgRepository) CreateRequest(ctx context.Context, in NewInterviewRequest) (*InterviewRequest, error) {
	snapshot, err := scheduling.EncodeAvailability(in.AvailabilitySnapshot)
	if err != nil {
		return nil, fmt.Errorf("encode availability snapshot: %w", err)
	}
	proposals, err := scheduling.EncodeSlots(in.ProposedSlots)
	if err != nil {
		return nil, fmt.Errorf("encode proposed slots: %w", err)
	}

	req := InterviewRequest{ProposedSlots: in.ProposedSlots}
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO interview_requests (
			id, student_id, employer_id, job_id, application_id, status, duration_minutes,
			availability_snapshot, proposed_slots, last_slot_start, note, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7, $8, $9, $10, now(), now())
		RETURNING `+requestColumns,
		id, in.StudentID, in.EmployerID, in.JobID, in.ApplicationID, in.DurationMinutes,
		snapshot, proposals, req.LastSlotStart(), in.Note,
	)
	return scanRequest(row)
}

func (r *PgRepository) GetRequestByID(ctx context.Context, id uuid.UUID) (*InterviewRequest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM interview_requests
		WHERE id = $1
	`, id)
	return scanRequest(row)
}

func (r *PgRepository) ListRequests(ctx context.Context, role Role, partyID uuid.UUID, filter ListFilter) ([]InterviewRequest, error) {
	var column string
	switch role {
	case RoleStudent:
		column = "student_id"
	case RoleEmployer:
		column = "employer_id"
	default:
		return nil, fmt.Errorf("list interview requests: unknown role %q", role)
	}

	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM interview_requests
		WHERE `+column+` = $1
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4
	`, partyID, status, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list interview requests: %w", err)
	}
	return scanRequests(rows)
}

func (r *PgRepository) TransitionRequest(ctx context.Context, id uuid.UUID, t Transition, chosen *scheduling.CandidateSlot) (*InterviewRequest, error) {
	var chosenStart, chosenEnd *time.Time
	if t.SetsChosenSlot() {
		if chosen == nil {
			return nil, fmt.Errorf("%s transition needs a chosen slot", t.Name())
		}
		chosenStart, chosenEnd = &chosen.Start, &chosen.End
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE interview_requests
		SET status = $2,
		    chosen_start = COALESCE($4, chosen_start),
		    chosen_end = COALESCE($5, chosen_end),
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+requestColumns,
		id, t.To(), t.From(), chosenStart, chosenEnd,
	)

	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return nil, fmt.Errorf("%s interview request %s: %w", t.Name(), id, ErrStateConflict)
		}
		return nil, err
	}
	return req, nil
}

func (r *PgRepository) FindLapsedPending(ctx context.Context, now time.Time, limit int) ([]InterviewRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+requestColumns+`
		FROM interview_requests
		WHERE status = 'pending'
		  AND last_slot_start <= $1
		ORDER BY last_slot_start
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	return scanRequests(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO interview_events (event_type, request_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.RequestID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert interview event: %w", err)
	}

	return nil
}

// BusyIntervals reads the busy calendar stored on the employer profile.
// Malformed entries are dropped by the normalizer.
func (r *PgRepository) BusyIntervals(ctx context.Context, employer *Employer) ([]scheduling.BusyInterval, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, `
		SELECT busy_intervals
		FROM employer_profiles
		WHERE id = $1
	`, employer.ID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmployerNotFound
		}
		return nil, fmt.Errorf("load busy intervals: %w", err)
	}

	raw := scheduling.ParseRawIntervals(data)
	busy := scheduling.NormalizeIntervals(raw)
	if dropped := len(raw) - len(busy); dropped > 0 {
		log.Printf("employer %s: dropped %d malformed busy intervals", employer.ID, dropped)
	}
	return busy, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
