package vote

import (
	"errors"
	"testing"

	"github.com/agora-gov/agora/internal/domain"
)

func TestNewDefaults(t *testing.T) {
	rec, err := New(SubmitRequest{
		SubjectID: "msg-1",
		AgentID:   "agent-a",
		Decision:  DecisionApprove,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if rec.ID == "" {
		t.Error("expected generated vote id")
	}
	if rec.Weight != 1.0 {
		t.Errorf("omitted weight should default to 1.0, got %v", rec.Weight)
	}
	if rec.Confidence != 0 {
		t.Errorf("omitted confidence should default to 0, got %v", rec.Confidence)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     SubmitRequest
		wantErr error
	}{
		{
			name:    "missing agent",
			req:     SubmitRequest{SubjectID: "m", Decision: DecisionApprove},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "bad decision",
			req:     SubmitRequest{SubjectID: "m", AgentID: "a", Decision: "maybe"},
			wantErr: domain.ErrInvalidDecision,
		},
		{
			name:    "empty decision",
			req:     SubmitRequest{SubjectID: "m", AgentID: "a"},
			wantErr: domain.ErrInvalidDecision,
		},
		{
			name:    "confidence above one",
			req:     SubmitRequest{SubjectID: "m", AgentID: "a", Decision: DecisionApprove, Confidence: 1.5},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "negative confidence",
			req:     SubmitRequest{SubjectID: "m", AgentID: "a", Decision: DecisionApprove, Confidence: -0.1},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "negative weight",
			req:     SubmitRequest{SubjectID: "m", AgentID: "a", Decision: DecisionApprove, Weight: -2},
			wantErr: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.req)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDecisionValid(t *testing.T) {
	for _, d := range []Decision{DecisionApprove, DecisionReject, DecisionAbstain} {
		if !d.Valid() {
			t.Errorf("%s should be valid", d)
		}
	}
	for _, d := range []Decision{"", "yes", "APPROVE"} {
		if d.Valid() {
			t.Errorf("%q should be invalid", d)
		}
	}
}

func TestWireRoundTrip(t *testing.T) {
	rec, err := New(SubmitRequest{
		SubjectID:  "msg-42",
		AgentID:    "agent-b",
		Decision:   DecisionReject,
		Reasoning:  "breaks the build",
		Confidence: 0.9,
		Weight:     2.5,
		Metadata:   map[string]any{"model": "reviewer-v2"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	data, err := rec.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.ID != rec.ID || got.SubjectID != rec.SubjectID || got.AgentID != rec.AgentID {
		t.Errorf("identity fields changed: %+v vs %+v", got, rec)
	}
	if got.Decision != DecisionReject || got.Weight != 2.5 || got.Confidence != 0.9 {
		t.Errorf("decision fields changed: %+v", got)
	}
	if got.Metadata["model"] != "reviewer-v2" {
		t.Errorf("metadata lost: %+v", got.Metadata)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("timestamp changed: %v vs %v", got.CreatedAt, rec.CreatedAt)
	}
}

func TestDecodeArbitraryMetadata(t *testing.T) {
	// Metadata is an arbitrary JSON object; numbers, arrays, and nested
	// objects all pass through the wire untouched.
	data := []byte(`{
		"vote_id": "v1",
		"message_id": "m1",
		"agent_id": "a",
		"decision": "approve",
		"weight": 1,
		"metadata": {"score": 0.9, "tags": ["x", "y"], "model": {"name": "reviewer-v2"}}
	}`)

	rec, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if rec.Metadata["score"] != 0.9 {
		t.Errorf("numeric metadata lost: %v", rec.Metadata["score"])
	}
	tags, ok := rec.Metadata["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "x" {
		t.Errorf("array metadata lost: %v", rec.Metadata["tags"])
	}
	model, ok := rec.Metadata["model"].(map[string]any)
	if !ok || model["name"] != "reviewer-v2" {
		t.Errorf("nested metadata lost: %v", rec.Metadata["model"])
	}
}

func TestDecodeRejectsCorruptRecords(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{{{`},
		{"bad decision", `{"vote_id":"v","agent_id":"a","decision":"maybe","weight":1}`},
		{"zero weight", `{"vote_id":"v","agent_id":"a","decision":"approve","weight":0}`},
		{"negative weight", `{"vote_id":"v","agent_id":"a","decision":"approve","weight":-1}`},
		{"confidence out of range", `{"vote_id":"v","agent_id":"a","decision":"approve","weight":1,"confidence":2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.data)); err == nil {
				t.Fatal("expected decode error, got nil")
			}
		})
	}
}
