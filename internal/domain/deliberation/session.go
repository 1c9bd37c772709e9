// Package deliberation defines the session domain model: lifecycle statuses,
// creation parameters, snapshots, and resolution results.
package deliberation

import (
	"fmt"
	"time"

	"github.com/agora-gov/agora/internal/domain"
	"github.com/agora-gov/agora/internal/domain/consensus"
	"github.com/agora-gov/agora/internal/domain/vote"
)

// Status is the lifecycle state of a deliberation session.
// Only pending and under_review are non-terminal; every other status is
// immutable once set.
type Status string

const (
	StatusPending          Status = "pending"
	StatusUnderReview      Status = "under_review"
	StatusApproved         Status = "approved"
	StatusRejected         Status = "rejected"
	StatusConsensusReached Status = "consensus_reached"
	StatusTimedOut         Status = "timed_out"
	StatusEscalated        Status = "escalated"
)

// Terminal reports whether the status permits no further transitions.
// An escalated session still accepts a human decision, which is modeled as
// the designated override rather than a status transition back to review.
func (s Status) Terminal() bool {
	return s != StatusPending && s != StatusUnderReview
}

// Params are the session parameters fixed at creation.
type Params struct {
	RequiredVotes int                `json:"required_votes"`
	Threshold     float64            `json:"threshold"`
	Timeout       time.Duration      `json:"timeout"`
	AgentWeights  map[string]float64 `json:"agent_weights,omitempty"`
	EscalateTo    string             `json:"escalate_to,omitempty"` // empty = fail-closed timeout
}

// Rule returns the consensus parameters for evaluation.
func (p Params) Rule() consensus.Params {
	return consensus.Params{RequiredVotes: p.RequiredVotes, Threshold: p.Threshold}
}

// CreateRequest holds the fields for opening a new session. TimeoutSec
// distinguishes absent (nil, use the configured default) from an explicit
// zero, which makes the session expire immediately.
type CreateRequest struct {
	SubjectID     string             `json:"subject_id"`
	RequiredVotes int                `json:"required_votes"`
	Threshold     float64            `json:"threshold"`
	TimeoutSec    *float64           `json:"timeout_seconds,omitempty"`
	AgentWeights  map[string]float64 `json:"agent_weights,omitempty"`
	EscalateTo    string             `json:"escalate_to,omitempty"`
}

// Validate checks the create request for correctness.
func (r *CreateRequest) Validate() error {
	if r.SubjectID == "" {
		return fmt.Errorf("%w: subject_id is required", domain.ErrValidation)
	}
	if r.RequiredVotes < 1 {
		return fmt.Errorf("%w: required_votes must be >= 1", domain.ErrValidation)
	}
	if r.Threshold <= 0 || r.Threshold > 1 {
		return fmt.Errorf("%w: threshold must be in (0,1]", domain.ErrValidation)
	}
	if r.TimeoutSec != nil && *r.TimeoutSec < 0 {
		return fmt.Errorf("%w: timeout_seconds must be >= 0", domain.ErrValidation)
	}
	for agent, w := range r.AgentWeights {
		if w <= 0 {
			return fmt.Errorf("%w: weight override for %s must be positive", domain.ErrValidation, agent)
		}
	}
	return nil
}

// HumanDecision records a reviewer's override on an escalated or
// human-gated session.
type HumanDecision struct {
	ReviewerID string    `json:"reviewer_id"`
	Decision   Status    `json:"decision"` // approved or rejected
	Rationale  string    `json:"rationale,omitempty"`
	DecidedAt  time.Time `json:"decided_at"`
}

// ValidHumanDecision reports whether s is a status a reviewer may set.
func ValidHumanDecision(s Status) bool {
	return s == StatusApproved || s == StatusRejected
}

// Snapshot is a read-only copy of a session's state, safe to hand to
// concurrent callers.
type Snapshot struct {
	ID         string           `json:"session_id"`
	SubjectID  string           `json:"subject_id"`
	Status     Status           `json:"status"`
	Outcome    vote.Decision    `json:"outcome,omitempty"` // approve/reject once resolved by votes
	Params     Params           `json:"params"`
	Votes      []vote.Record    `json:"votes"`
	Consensus  consensus.Result `json:"consensus"`
	CreatedAt  time.Time        `json:"created_at"`
	Deadline   time.Time        `json:"deadline"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
	Human      *HumanDecision   `json:"human_decision,omitempty"`
}

// Result is the terminal outcome returned to a waiter.
type Result struct {
	SessionID  string           `json:"session_id"`
	SubjectID  string           `json:"subject_id"`
	Status     Status           `json:"status"`
	Outcome    vote.Decision    `json:"outcome,omitempty"`
	Consensus  consensus.Result `json:"consensus"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
	Human      *HumanDecision   `json:"human_decision,omitempty"`
}

// Denied reports whether callers must treat the result as a deny.
// Timed-out sessions are deny-by-default (fail-closed); escalated sessions
// are still awaiting a human decision and block until one arrives.
func (r *Result) Denied() bool {
	switch r.Status {
	case StatusApproved:
		return false
	case StatusConsensusReached:
		return r.Outcome != vote.DecisionApprove
	default:
		return true
	}
}
