package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventSessionCreated   = "session.created"
	EventVoteRecorded     = "vote.recorded"
	EventSessionResolved  = "session.resolved"
	EventSessionEscalated = "session.escalated"
	EventHumanDecision    = "human.decision"
)

// SessionCreatedEvent is broadcast when a deliberation session opens.
type SessionCreatedEvent struct {
	SessionID     string  `json:"session_id"`
	SubjectID     string  `json:"subject_id"`
	RequiredVotes int     `json:"required_votes"`
	Threshold     float64 `json:"threshold"`
}

// VoteRecordedEvent is broadcast when a vote is applied to a live session.
type VoteRecordedEvent struct {
	SessionID string  `json:"session_id"`
	SubjectID string  `json:"subject_id"`
	AgentID   string  `json:"agent_id"`
	Decision  string  `json:"decision"`
	Weight    float64 `json:"weight"`
	Replaced  bool    `json:"replaced"` // true when this vote superseded an earlier one
}

// SessionResolvedEvent is broadcast when a session reaches a terminal status.
type SessionResolvedEvent struct {
	SessionID     string  `json:"session_id"`
	SubjectID     string  `json:"subject_id"`
	Status        string  `json:"status"`
	Outcome       string  `json:"outcome,omitempty"`
	ApprovalRate  float64 `json:"approval_rate"`
	RejectionRate float64 `json:"rejection_rate"`
}

// SessionEscalatedEvent is broadcast when a session escalates to human review.
type SessionEscalatedEvent struct {
	SessionID  string `json:"session_id"`
	SubjectID  string `json:"subject_id"`
	EscalateTo string `json:"escalate_to"`
}

// HumanDecisionEvent is broadcast when a reviewer decides an escalated item.
type HumanDecisionEvent struct {
	SessionID  string `json:"session_id"`
	SubjectID  string `json:"subject_id"`
	ReviewerID string `json:"reviewer_id"`
	Decision   string `json:"decision"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
