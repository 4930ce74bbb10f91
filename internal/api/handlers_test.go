package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/interview-scheduling/internal/config"
	"github.com/hackgods/interview-scheduling/internal/interview"
	"github.com/hackgods/interview-scheduling/internal/interview/interviewtest"
	"github.com/hackgods/interview-scheduling/internal/scheduling"
)

type testEnv struct {
	repo     *interviewtest.Repository
	router   http.Handler
	employer interview.Employer
	student  interview.Student
	job      interview.Job
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := scheduling.NewMockClock(time.Date(2025, 3, 3, 7, 0, 0, 0, time.UTC))
	repo := interviewtest.NewRepository()
	repo.UseClock(clock)

	employer := repo.AddEmployer("Acme Robotics",
		scheduling.RawInterval{Start: "2025-03-03T09:00:00Z", End: "2025-03-03T10:00:00Z"},
		scheduling.RawInterval{Start: "2025-03-03T13:00:00Z", End: "2025-03-03T17:00:00Z"},
	)
	student := repo.AddStudent("Sam Rivera")
	job := repo.AddJob(employer.ID, "Firmware Co-op")

	cfg := config.Defaults()
	cfg.LookaheadDays = 1
	svc := interview.NewService(repo, repo, interviewtest.NewLocker(), cfg, interview.WithClock(clock))

	return &testEnv{
		repo:     repo,
		router:   NewRouter(RouterConfig{Service: svc, Env: "test", Version: "test"}),
		employer: employer,
		student:  student,
		job:      job,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, actor uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if actor != uuid.Nil {
		req.Header.Set(actorHeader, actor.String())
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createRequest(t *testing.T) InterviewRequestResponse {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/interview-requests", e.employer.ID, CreateInterviewRequestBody{
		StudentID:       e.student.ID.String(),
		JobID:           e.job.ID.String(),
		DurationMinutes: 30,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp InterviewRequestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestCreateInterviewRequest(t *testing.T) {
	env := newTestEnv(t)

	resp := env.createRequest(t)
	assert.Equal(t, "pending", resp.Status)
	assert.Len(t, resp.ProposedSlots, 6)
	assert.Len(t, resp.AvailabilitySnapshot, 2)
	assert.Equal(t, "2025-03-03T10:00:00.000Z_2025-03-03T10:30:00.000Z", resp.ProposedSlots[0].ID)
	assert.Nil(t, resp.ChosenStart)
}

func TestCreateInterviewRequest_Errors(t *testing.T) {
	env := newTestEnv(t)

	testCases := []struct {
		name   string
		actor  uuid.UUID
		body   any
		status int
		code   string
	}{
		{
			name:   "missing actor",
			actor:  uuid.Nil,
			body:   CreateInterviewRequestBody{StudentID: env.student.ID.String(), JobID: env.job.ID.String(), DurationMinutes: 30},
			status: http.StatusUnauthorized,
			code:   "missing_actor",
		},
		{
			name:   "bad student id",
			actor:  env.employer.ID,
			body:   CreateInterviewRequestBody{StudentID: "nope", JobID: env.job.ID.String(), DurationMinutes: 30},
			status: http.StatusBadRequest,
			code:   "validation_failed",
		},
		{
			name:   "duration out of range",
			actor:  env.employer.ID,
			body:   CreateInterviewRequestBody{StudentID: env.student.ID.String(), JobID: env.job.ID.String(), DurationMinutes: 500},
			status: http.StatusBadRequest,
			code:   "validation_failed",
		},
		{
			name:   "job owned by someone else",
			actor:  uuid.New(),
			body:   CreateInterviewRequestBody{StudentID: env.student.ID.String(), JobID: env.job.ID.String(), DurationMinutes: 30},
			status: http.StatusNotFound,
			code:   "not_found",
		},
		{
			name:   "no availability",
			actor:  env.employer.ID,
			body:   CreateInterviewRequestBody{StudentID: env.student.ID.String(), JobID: env.job.ID.String(), DurationMinutes: 240},
			status: http.StatusUnprocessableEntity,
			code:   "no_availability",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/interview-requests", tc.actor, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, decodeError(t, rec).Error)
		})
	}
	assert.Equal(t, 0, env.repo.RequestCount())
}

func TestSelectSlotFlow(t *testing.T) {
	env := newTestEnv(t)
	created := env.createRequest(t)
	path := "/interview-requests/" + created.ID.String()

	rec := env.do(t, http.MethodPost, path+"/select", env.student.ID, SelectSlotBody{SlotID: "not-a-slot"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_slot", decodeError(t, rec).Error)

	rec = env.do(t, http.MethodPost, path+"/select", uuid.New(), SelectSlotBody{SlotID: created.ProposedSlots[0].ID})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, path+"/select", env.student.ID, SelectSlotBody{SlotID: created.ProposedSlots[1].ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var selected InterviewRequestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&selected))
	assert.Equal(t, "scheduled", selected.Status)
	require.NotNil(t, selected.ChosenStart)
	assert.True(t, selected.ChosenStart.Equal(created.ProposedSlots[1].Start))
	assert.Empty(t, selected.AvailabilitySnapshot, "students do not see the employer calendar")

	rec = env.do(t, http.MethodPost, path+"/select", env.student.ID, SelectSlotBody{SlotID: created.ProposedSlots[2].ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "state_conflict", decodeError(t, rec).Error)

	rec = env.do(t, http.MethodPost, path+"/complete", env.employer.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, path+"?role=employer", env.employer.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got InterviewRequestResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "completed", got.Status)
}

func TestDeclineFlow(t *testing.T) {
	env := newTestEnv(t)
	created := env.createRequest(t)
	path := "/interview-requests/" + created.ID.String()

	rec := env.do(t, http.MethodPost, path+"/decline", env.student.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, path+"/decline", env.student.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, path+"/select", env.student.ID, SelectSlotBody{SlotID: created.ProposedSlots[0].ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListInterviewRequests(t *testing.T) {
	env := newTestEnv(t)
	env.createRequest(t)
	env.createRequest(t)

	rec := env.do(t, http.MethodGet, "/interview-requests?role=student", env.student.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list InterviewRequestListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list.Items, 2)
	assert.Equal(t, interview.DefaultListLimit, list.Limit)

	rec = env.do(t, http.MethodGet, "/interview-requests?role=employer&status=scheduled", env.employer.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = InterviewRequestListResponse{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Empty(t, list.Items)

	rec = env.do(t, http.MethodGet, "/interview-requests", env.student.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "role is required")

	rec = env.do(t, http.MethodGet, "/interview-requests?role=student&status=bogus", env.student.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/interview-requests?role=student&limit=abc", env.student.ID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSlotPreview(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/employers/me/slot-preview", env.employer.ID, SlotPreviewBody{DurationMinutes: 60})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp SlotPreviewResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Slots, 3)
	assert.Equal(t, 0, env.repo.RequestCount())

	rec = env.do(t, http.MethodPost, "/employers/me/slot-preview", uuid.New(), SlotPreviewBody{DurationMinutes: 60})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type countingService struct {
	InterviewService
	calls atomic.Int32
}

func (c *countingService) PreviewSlots(ctx context.Context, employerID uuid.UUID, durationMinutes int) ([]scheduling.CandidateSlot, error) {
	c.calls.Add(1)
	start := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	return []scheduling.CandidateSlot{scheduling.NewCandidateSlot(start, start.Add(time.Duration(durationMinutes)*time.Minute))}, nil
}

func TestPreviewCache(t *testing.T) {
	svc := &countingService{}
	employerID := uuid.New()

	cached := newPreviewCache(svc, time.Minute)
	for i := 0; i < 3; i++ {
		slots, err := cached.Slots(context.Background(), employerID, 30)
		require.NoError(t, err)
		require.Len(t, slots, 1)
	}
	assert.Equal(t, int32(1), svc.calls.Load())

	_, err := cached.Slots(context.Background(), employerID, 45)
	require.NoError(t, err)
	assert.Equal(t, int32(2), svc.calls.Load(), "durations are cached separately")

	uncached := newPreviewCache(svc, 0)
	_, _ = uncached.Slots(context.Background(), employerID, 30)
	_, _ = uncached.Slots(context.Background(), employerID, 30)
	assert.Equal(t, int32(4), svc.calls.Load())
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(RouterConfig{
		Service:   interview.NewService(env.repo, env.repo, nil, config.Defaults()),
		RateLimit: 1,
		RateBurst: 2,
	})

	actor := uuid.New().String()
	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/interview-requests?role=student", nil)
		req.Header.Set(actorHeader, actor)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Health checks are never limited.
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health/live", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.do(t, http.MethodGet, "/health/ready", uuid.Nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var ready ReadinessResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ready))
	assert.Equal(t, "down", ready.Dependencies["postgres"])
	assert.Equal(t, "disabled", ready.Dependencies["redis"])
}
