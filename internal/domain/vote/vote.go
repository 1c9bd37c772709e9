// Package vote defines the VoteRecord domain entity: one agent's weighted
// decision on one deliberation subject.
package vote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agora-gov/agora/internal/domain"
)

// Decision is the stance an agent takes on a subject.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionAbstain Decision = "abstain"
)

// Valid reports whether d is one of the three allowed literals.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApprove, DecisionReject, DecisionAbstain:
		return true
	}
	return false
}

// Record is an immutable vote cast by one agent on one subject.
// Field names are the stable wire contract; a Record must round-trip
// losslessly through JSON.
type Record struct {
	ID         string            `json:"vote_id"`
	SubjectID  string            `json:"message_id"`
	AgentID    string            `json:"agent_id"`
	Decision   Decision          `json:"decision"`
	Reasoning  string         `json:"reasoning,omitempty"`
	Confidence float64        `json:"confidence"`
	Weight     float64        `json:"weight"`
	Metadata   map[string]any `json:"metadata,omitempty"` // arbitrary JSON object, passed through untouched
	CreatedAt  time.Time      `json:"timestamp"`
}

// SubmitRequest holds the fields needed to cast a vote.
// Weight defaults to 1.0 when zero; confidence defaults to 0.
type SubmitRequest struct {
	SubjectID  string            `json:"message_id"`
	AgentID    string            `json:"agent_id"`
	Decision   Decision          `json:"decision"`
	Reasoning  string         `json:"reasoning,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	Weight     float64        `json:"weight,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// New validates a submit request and builds a Record. Validation fails fast:
// nothing is clamped, so consensus math never sees corrupted inputs.
func New(req SubmitRequest) (*Record, error) {
	if req.AgentID == "" {
		return nil, fmt.Errorf("%w: agent_id is required", domain.ErrValidation)
	}
	if !req.Decision.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidDecision, req.Decision)
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v outside [0,1]", domain.ErrValidation, req.Confidence)
	}
	weight := req.Weight
	if weight == 0 {
		weight = 1.0
	}
	if weight < 0 {
		return nil, fmt.Errorf("%w: weight %v must be positive", domain.ErrValidation, req.Weight)
	}

	return &Record{
		ID:         uuid.NewString(),
		SubjectID:  req.SubjectID,
		AgentID:    req.AgentID,
		Decision:   req.Decision,
		Reasoning:  req.Reasoning,
		Confidence: req.Confidence,
		Weight:     weight,
		Metadata:   req.Metadata,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Encode serializes the record to its wire format.
func (r *Record) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode vote %s: %w", r.ID, err)
	}
	return data, nil
}

// Decode parses a wire-format vote and re-validates it, so replicas never
// replay a malformed record into consensus evaluation.
func Decode(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode vote: %w", err)
	}
	if !r.Decision.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidDecision, r.Decision)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v outside [0,1]", domain.ErrValidation, r.Confidence)
	}
	if r.Weight <= 0 {
		return nil, fmt.Errorf("%w: weight %v must be positive", domain.ErrValidation, r.Weight)
	}
	return &r, nil
}
