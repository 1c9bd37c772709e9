package http

import (
	"net/http"
	"time"

	"github.com/agora-gov/agora/internal/domain/deliberation"
	"github.com/agora-gov/agora/internal/domain/vote"
	"github.com/agora-gov/agora/internal/port/auditlog"
	"github.com/agora-gov/agora/internal/service"
)

// Handlers bundles the service dependencies for all HTTP handlers.
type Handlers struct {
	Coordinator *service.Coordinator
	Audit       auditlog.Store // nil when auditing is disabled
}

// CreateSession handles POST /api/v1/sessions.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[deliberation.CreateRequest](w, r)
	if !ok {
		return
	}

	id, err := h.Coordinator.CreateSession(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

// SubmitVote handles POST /api/v1/sessions/{id}/votes: direct submission to
// one session of this coordinator.
func (h *Handlers) SubmitVote(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[vote.SubmitRequest](w, r)
	if !ok {
		return
	}
	if req.SubjectID == "" {
		req.SubjectID = urlParam(r, "id")
	}

	accepted, err := h.Coordinator.SubmitVote(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"accepted": accepted})
}

// PublishVote handles POST /api/v1/votes: fan-out through the event channel
// to every coordinator replica subscribed to the subject.
func (h *Handlers) PublishVote(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[vote.SubmitRequest](w, r)
	if !ok {
		return
	}
	if req.SubjectID == "" {
		writeError(w, http.StatusBadRequest, "message_id is required")
		return
	}

	if err := h.Coordinator.PublishVote(r.Context(), req); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]bool{"published": true})
}

type waitRequest struct {
	TimeoutSec float64 `json:"timeout_seconds,omitempty"`
}

// WaitForResolution handles POST /api/v1/sessions/{id}/wait. The request
// blocks until the session resolves or times out (fail-closed). The body is
// optional; without one the session's own deadline applies.
func (h *Handlers) WaitForResolution(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSONOptional[waitRequest](w, r)
	if !ok {
		return
	}

	override := time.Duration(req.TimeoutSec * float64(time.Second))
	result, err := h.Coordinator.WaitForResolution(r.Context(), urlParam(r, "id"), override)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type humanDecisionRequest struct {
	ReviewerID string `json:"reviewer_id"`
	Decision   string `json:"decision"` // "approved" or "rejected"
	Rationale  string `json:"rationale,omitempty"`
}

// SubmitHumanDecision handles POST /api/v1/sessions/{id}/human-decision.
func (h *Handlers) SubmitHumanDecision(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[humanDecisionRequest](w, r)
	if !ok {
		return
	}

	accepted, err := h.Coordinator.SubmitHumanDecision(r.Context(),
		urlParam(r, "id"), req.ReviewerID, deliberation.Status(req.Decision), req.Rationale)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"accepted": accepted})
}

// GetSession handles GET /api/v1/sessions/{id}.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Coordinator.GetStatus(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetSessionCount handles GET /api/v1/sessions/count.
func (h *Handlers) GetSessionCount(w http.ResponseWriter, _ *http.Request) {
	live, total := h.Coordinator.SessionCount()
	writeJSON(w, http.StatusOK, map[string]int{"live": live, "total": total})
}

// GetVotes handles GET /api/v1/subjects/{subjectID}/votes.
func (h *Handlers) GetVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := h.Coordinator.GetVotes(r.Context(), urlParam(r, "subjectID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if votes == nil {
		votes = []vote.Record{}
	}
	writeJSON(w, http.StatusOK, votes)
}

// GetAudit handles GET /api/v1/subjects/{subjectID}/audit.
func (h *Handlers) GetAudit(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		writeError(w, http.StatusNotImplemented, "audit trail is not configured")
		return
	}

	entries, err := h.Audit.ListBySubject(r.Context(), urlParam(r, "subjectID"), 0)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []auditlog.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
