package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/interview-scheduling/internal/interview"
	"github.com/hackgods/interview-scheduling/internal/scheduling"
)

type CreateInterviewRequestBody struct {
	StudentID       string  `json:"student_id"`
	JobID           string  `json:"job_id"`
	ApplicationID   *string `json:"application_id,omitempty"`
	DurationMinutes int     `json:"duration_minutes"`
	Note            *string `json:"note,omitempty"`
}

type SelectSlotBody struct {
	SlotID string `json:"slot_id"`
}

type SlotPreviewBody struct {
	DurationMinutes int `json:"duration_minutes"`
}

type SlotResponse struct {
	ID    string    `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type BusyIntervalResponse struct {
	ID    string    `json:"id,omitempty"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label,omitempty"`
}

type InterviewRequestResponse struct {
	ID                   uuid.UUID              `json:"id"`
	StudentID            uuid.UUID              `json:"student_id"`
	EmployerID           uuid.UUID              `json:"employer_id"`
	JobID                uuid.UUID              `json:"job_id"`
	ApplicationID        *uuid.UUID             `json:"application_id,omitempty"`
	Status               string                 `json:"status"`
	DurationMinutes      int                    `json:"duration_minutes"`
	ProposedSlots        []SlotResponse         `json:"proposed_slots"`
	AvailabilitySnapshot []BusyIntervalResponse `json:"availability_snapshot,omitempty"`
	ChosenStart          *time.Time             `json:"chosen_start,omitempty"`
	ChosenEnd            *time.Time             `json:"chosen_end,omitempty"`
	Note                 *string                `json:"note,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at"`
}

type InterviewRequestListResponse struct {
	Items  []InterviewRequestResponse `json:"items"`
	Limit  int                        `json:"limit"`
	Offset int                        `json:"offset"`
}

type SlotPreviewResponse struct {
	DurationMinutes int            `json:"duration_minutes"`
	Slots           []SlotResponse `json:"slots"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toSlotResponses(slots []scheduling.CandidateSlot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{ID: s.ID, Start: s.Start.UTC(), End: s.End.UTC()})
	}
	return out
}

// toResponse renders req for role. Only the employer sees its own busy
// calendar snapshot.
func toResponse(req *interview.InterviewRequest, role interview.Role) InterviewRequestResponse {
	resp := InterviewRequestResponse{
		ID:              req.ID,
		StudentID:       req.StudentID,
		EmployerID:      req.EmployerID,
		JobID:           req.JobID,
		ApplicationID:   req.ApplicationID,
		Status:          string(req.Status),
		DurationMinutes: req.DurationMinutes,
		ProposedSlots:   toSlotResponses(req.ProposedSlots),
		ChosenStart:     req.ChosenStart,
		ChosenEnd:       req.ChosenEnd,
		Note:            req.Note,
		CreatedAt:       req.CreatedAt,
		UpdatedAt:       req.UpdatedAt,
	}

	if role == interview.RoleEmployer {
		resp.AvailabilitySnapshot = make([]BusyIntervalResponse, 0, len(req.AvailabilitySnapshot))
		for _, b := range req.AvailabilitySnapshot {
			resp.AvailabilitySnapshot = append(resp.AvailabilitySnapshot, BusyIntervalResponse{
				ID:    b.ID,
				Start: b.Start,
				End:   b.End,
				Label: b.Label,
			})
		}
	}
	return resp
}
