package api

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/hackgods/interview-scheduling/internal/scheduling"
)

// previewCache reuses slot previews for a short time so an employer tweaking
// a form does not hit the calendar on every keystroke. A ttl of zero turns
// caching off.
type previewCache struct {
	svc   InterviewService
	store *cache.Cache
	ttl   time.Duration
}

func newPreviewCache(svc InterviewService, ttl time.Duration) *previewCache {
	p := &previewCache{svc: svc, ttl: ttl}
	if ttl > 0 {
		p.store = cache.New(ttl, 2*ttl)
	}
	return p
}

func (p *previewCache) Slots(ctx context.Context, employerID uuid.UUID, durationMinutes int) ([]scheduling.CandidateSlot, error) {
	if p.store == nil {
		return p.svc.PreviewSlots(ctx, employerID, durationMinutes)
	}

	key := fmt.Sprintf("%s:%d", employerID, durationMinutes)
	if cached, found := p.store.Get(key); found {
		return cached.([]scheduling.CandidateSlot), nil
	}

	slots, err := p.svc.PreviewSlots(ctx, employerID, durationMinutes)
	if err != nil {
		return nil, err
	}
	p.store.Set(key, slots, p.ttl)
	return slots, nil
}
