package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/interview-scheduling/internal/interview"
)

const actorHeader = "X-Actor-ID"

// actorID reads the acting party's id, set by the upstream gateway.
func actorID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(actorHeader)
	if raw == "" {
		writeError(w, http.StatusUnauthorized, "missing_actor", actorHeader+" header is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_actor", actorHeader+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func requestIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func roleParam(w http.ResponseWriter, r *http.Request) (interview.Role, bool) {
	role := interview.Role(r.URL.Query().Get("role"))
	switch role {
	case interview.RoleStudent, interview.RoleEmployer:
		return role, true
	}
	writeError(w, http.StatusBadRequest, "validation_failed", "role must be student or employer")
	return "", false
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func slotPreviewHandler(previews *previewCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employerID, ok := actorID(w, r)
		if !ok {
			return
		}

		var body SlotPreviewBody
		if !decodeBody(w, r, &body) {
			return
		}

		slots, err := previews.Slots(r.Context(), employerID, body.DurationMinutes)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, SlotPreviewResponse{
			DurationMinutes: body.DurationMinutes,
			Slots:           toSlotResponses(slots),
		})
	}
}

func createInterviewRequestHandler(svc InterviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employerID, ok := actorID(w, r)
		if !ok {
			return
		}

		var body CreateInterviewRequestBody
		if !decodeBody(w, r, &body) {
			return
		}

		studentID, err := uuid.Parse(body.StudentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "student_id must be a valid UUID")
			return
		}
		jobID, err := uuid.Parse(body.JobID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "job_id must be a valid UUID")
			return
		}

		var applicationID *uuid.UUID
		if body.ApplicationID != nil {
			id, err := uuid.Parse(*body.ApplicationID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "validation_failed", "application_id must be a valid UUID")
				return
			}
			applicationID = &id
		}

		req, err := svc.CreateRequest(r.Context(), interview.CreateInput{
			EmployerID:      employerID,
			StudentID:       studentID,
			JobID:           jobID,
			ApplicationID:   applicationID,
			DurationMinutes: body.DurationMinutes,
			Note:            body.Note,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toResponse(req, interview.RoleEmployer))
	}
}

func listInterviewRequestsHandler(svc InterviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partyID, ok := actorID(w, r)
		if !ok {
			return
		}
		role, ok := roleParam(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		filter := interview.ListFilter{}
		if v := q.Get("status"); v != "" {
			status := interview.Status(v)
			filter.Status = &status
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "validation_failed", "limit must be an integer")
				return
			}
			filter.Limit = n
		}
		if v := q.Get("offset"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "validation_failed", "offset must be an integer")
				return
			}
			filter.Offset = n
		}
		filter = filter.Normalized()

		var (
			requests []interview.InterviewRequest
			err      error
		)
		if role == interview.RoleStudent {
			requests, err = svc.ListForStudent(r.Context(), partyID, filter)
		} else {
			requests, err = svc.ListForEmployer(r.Context(), partyID, filter)
		}
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		items := make([]InterviewRequestResponse, 0, len(requests))
		for i := range requests {
			items = append(items, toResponse(&requests[i], role))
		}
		writeJSON(w, http.StatusOK, InterviewRequestListResponse{
			Items:  items,
			Limit:  filter.Limit,
			Offset: filter.Offset,
		})
	}
}

func getInterviewRequestHandler(svc InterviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partyID, ok := actorID(w, r)
		if !ok {
			return
		}
		id, ok := requestIDParam(w, r)
		if !ok {
			return
		}
		role, ok := roleParam(w, r)
		if !ok {
			return
		}

		var (
			req *interview.InterviewRequest
			err error
		)
		if role == interview.RoleStudent {
			req, err = svc.GetForStudent(r.Context(), id, partyID)
		} else {
			req, err = svc.GetForEmployer(r.Context(), id, partyID)
		}
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toResponse(req, role))
	}
}

func selectSlotHandler(svc InterviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID, ok := actorID(w, r)
		if !ok {
			return
		}
		id, ok := requestIDParam(w, r)
		if !ok {
			return
		}

		var body SelectSlotBody
		if !decodeBody(w, r, &body) {
			return
		}
		if body.SlotID == "" {
			writeError(w, http.StatusBadRequest, "validation_failed", "slot_id is required")
			return
		}

		req, err := svc.SelectSlot(r.Context(), id, studentID, body.SlotID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toResponse(req, interview.RoleStudent))
	}
}

func declineHandler(svc InterviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID, ok := actorID(w, r)
		if !ok {
			return
		}
		id, ok := requestIDParam(w, r)
		if !ok {
			return
		}

		req, err := svc.DeclineRequest(r.Context(), id, studentID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toResponse(req, interview.RoleStudent))
	}
}

func completeHandler(svc InterviewService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employerID, ok := actorID(w, r)
		if !ok {
			return
		}
		id, ok := requestIDParam(w, r)
		if !ok {
			return
		}

		req, err := svc.CompleteRequest(r.Context(), id, employerID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, toResponse(req, interview.RoleEmployer))
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, interview.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, interview.ErrNoAvailability):
		writeError(w, http.StatusUnprocessableEntity, "no_availability", err.Error())
	case errors.Is(err, interview.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "interview request or referenced record not found")
	case errors.Is(err, interview.ErrStateConflict):
		writeError(w, http.StatusConflict, "state_conflict", err.Error())
	case errors.Is(err, interview.ErrInvalidSlot):
		writeError(w, http.StatusBadRequest, "invalid_slot", err.Error())
	default:
		log.Printf("request_id=%s internal error: %v", GetRequestID(r.Context()), err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
