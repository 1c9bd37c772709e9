// Package auditlog defines the append-only audit trail port for
// deliberation events.
package auditlog

import (
	"context"
	"time"
)

// Actions recorded in the audit trail.
const (
	ActionSessionCreated = "session.created"
	ActionVoteRecorded   = "vote.recorded"
	ActionVoteLate       = "vote.late" // vote against a terminal session, audit-only
	ActionResolved       = "session.resolved"
	ActionEscalated      = "session.escalated"
	ActionTimedOut       = "session.timed_out"
	ActionHumanDecision  = "human.decision"
)

// Entry is one append-only audit record.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	SubjectID string    `json:"subject_id"`
	AgentID   string    `json:"agent_id,omitempty"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the port interface for the audit trail. The deliberation core
// works without one; a nil store disables auditing.
type Store interface {
	// Append inserts a new audit entry.
	Append(ctx context.Context, e *Entry) error

	// ListBySubject returns audit entries for a subject, oldest first.
	ListBySubject(ctx context.Context, subjectID string, limit int) ([]Entry, error)
}
