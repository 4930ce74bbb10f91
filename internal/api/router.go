package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/hackgods/interview-scheduling/internal/interview"
	"github.com/hackgods/interview-scheduling/internal/scheduling"
)

// InterviewService is the part of *interview.Service the HTTP layer uses.
type InterviewService interface {
	CreateRequest(ctx context.Context, in interview.CreateInput) (*interview.InterviewRequest, error)
	SelectSlot(ctx context.Context, requestID, studentID uuid.UUID, slotID string) (*interview.InterviewRequest, error)
	DeclineRequest(ctx context.Context, requestID, studentID uuid.UUID) (*interview.InterviewRequest, error)
	CompleteRequest(ctx context.Context, requestID, employerID uuid.UUID) (*interview.InterviewRequest, error)
	GetForStudent(ctx context.Context, requestID, studentID uuid.UUID) (*interview.InterviewRequest, error)
	GetForEmployer(ctx context.Context, requestID, employerID uuid.UUID) (*interview.InterviewRequest, error)
	ListForStudent(ctx context.Context, studentID uuid.UUID, filter interview.ListFilter) ([]interview.InterviewRequest, error)
	ListForEmployer(ctx context.Context, employerID uuid.UUID, filter interview.ListFilter) ([]interview.InterviewRequest, error)
	PreviewSlots(ctx context.Context, employerID uuid.UUID, durationMinutes int) ([]scheduling.CandidateSlot, error)
}

var _ InterviewService = (*interview.Service)(nil)

type RouterConfig struct {
	Service InterviewService
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string

	PreviewCacheTTL time.Duration
	RateLimit       rate.Limit // zero disables rate limiting
	RateBurst       int
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Group(func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(NewClientRateLimiter(cfg.RateLimit, cfg.RateBurst).Middleware)
		}

		r.Post("/employers/me/slot-preview", slotPreviewHandler(newPreviewCache(cfg.Service, cfg.PreviewCacheTTL)))

		r.Route("/interview-requests", func(r chi.Router) {
			r.Post("/", createInterviewRequestHandler(cfg.Service))
			r.Get("/", listInterviewRequestsHandler(cfg.Service))
			r.Get("/{id}", getInterviewRequestHandler(cfg.Service))
			r.Post("/{id}/select", selectSlotHandler(cfg.Service))
			r.Post("/{id}/decline", declineHandler(cfg.Service))
			r.Post("/{id}/complete", completeHandler(cfg.Service))
		})
	})

	return r
}
