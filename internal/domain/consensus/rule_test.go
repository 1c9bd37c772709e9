package consensus

import (
	"testing"

	"github.com/agora-gov/agora/internal/domain/vote"
)

func votes(decisions ...vote.Decision) []vote.Record {
	out := make([]vote.Record, len(decisions))
	for i, d := range decisions {
		out[i] = vote.Record{AgentID: string(rune('a' + i)), Decision: d, Weight: 1}
	}
	return out
}

func TestEvaluateUnanimousApproval(t *testing.T) {
	res := Evaluate(votes(vote.DecisionApprove, vote.DecisionApprove, vote.DecisionApprove),
		Params{RequiredVotes: 3, Threshold: 0.66})

	if !res.Resolved {
		t.Fatalf("expected resolved, got reason %q", res.Reason)
	}
	if res.Outcome != vote.DecisionApprove {
		t.Errorf("expected approve outcome, got %s", res.Outcome)
	}
	if res.ApprovalRate != 1.0 {
		t.Errorf("expected approval rate 1.0, got %v", res.ApprovalRate)
	}
}

func TestEvaluateInsufficientVotes(t *testing.T) {
	res := Evaluate(votes(vote.DecisionApprove, vote.DecisionApprove),
		Params{RequiredVotes: 3, Threshold: 0.66})

	if res.Resolved {
		t.Fatal("expected unresolved below quorum")
	}
	if res.Reason != ReasonInsufficientVotes {
		t.Errorf("expected %s, got %s", ReasonInsufficientVotes, res.Reason)
	}
	if res.VoteCount != 2 {
		t.Errorf("expected vote count 2, got %d", res.VoteCount)
	}
}

func TestEvaluateThresholdBoundary(t *testing.T) {
	// Two approvals against one rejection: approval rate is exactly 2/3.
	two := votes(vote.DecisionApprove, vote.DecisionApprove, vote.DecisionReject)

	res := Evaluate(two, Params{RequiredVotes: 3, Threshold: 0.66})
	if !res.Resolved || res.Outcome != vote.DecisionApprove {
		t.Errorf("2/3 >= 0.66 should approve, got resolved=%t outcome=%s reason=%s",
			res.Resolved, res.Outcome, res.Reason)
	}

	res = Evaluate(two, Params{RequiredVotes: 3, Threshold: 0.70})
	if res.Resolved {
		t.Errorf("2/3 < 0.70 should stay unresolved, got outcome %s", res.Outcome)
	}
	if res.Reason != ReasonThresholdNotMet {
		t.Errorf("expected %s, got %s", ReasonThresholdNotMet, res.Reason)
	}
}

func TestEvaluateRejectionSide(t *testing.T) {
	res := Evaluate(votes(vote.DecisionReject, vote.DecisionReject, vote.DecisionApprove),
		Params{RequiredVotes: 3, Threshold: 0.66})

	if !res.Resolved {
		t.Fatalf("expected resolved, got reason %q", res.Reason)
	}
	if res.Outcome != vote.DecisionReject {
		t.Errorf("expected reject outcome, got %s", res.Outcome)
	}
}

func TestEvaluateAbstainDilutesBothRates(t *testing.T) {
	// approve, approve, abstain: approval rate 2/3 of total weight 3.
	res := Evaluate(votes(vote.DecisionApprove, vote.DecisionApprove, vote.DecisionAbstain),
		Params{RequiredVotes: 3, Threshold: 0.70})

	if res.Resolved {
		t.Fatal("abstain must dilute approval below 0.70")
	}
	if res.TotalWeight != 3 {
		t.Errorf("abstain must count in total weight: got %v", res.TotalWeight)
	}
	want := 2.0 / 3.0
	if res.ApprovalRate != want {
		t.Errorf("expected approval rate %v, got %v", want, res.ApprovalRate)
	}
}

func TestEvaluateAllAbstain(t *testing.T) {
	res := Evaluate(votes(vote.DecisionAbstain, vote.DecisionAbstain, vote.DecisionAbstain),
		Params{RequiredVotes: 3, Threshold: 0.5})

	if res.Resolved {
		t.Fatal("all-abstain must not resolve")
	}
	if res.Reason != ReasonThresholdNotMet {
		t.Errorf("expected %s, got %s", ReasonThresholdNotMet, res.Reason)
	}
	if res.ApprovalRate != 0 || res.RejectionRate != 0 {
		t.Errorf("expected zero rates, got approval=%v rejection=%v", res.ApprovalRate, res.RejectionRate)
	}
}

func TestEvaluateZeroTotalWeight(t *testing.T) {
	vs := []vote.Record{
		{AgentID: "a", Decision: vote.DecisionApprove, Weight: 0},
		{AgentID: "b", Decision: vote.DecisionApprove, Weight: 0},
	}

	res := Evaluate(vs, Params{RequiredVotes: 2, Threshold: 0.5})
	if res.Resolved {
		t.Fatal("zero total weight must not resolve")
	}
	if res.Reason != ReasonZeroTotalWeight {
		t.Errorf("expected %s, got %s", ReasonZeroTotalWeight, res.Reason)
	}
}

func TestEvaluateWeightedMinority(t *testing.T) {
	// One heavyweight approval outweighs two light rejections.
	vs := []vote.Record{
		{AgentID: "senior", Decision: vote.DecisionApprove, Weight: 5},
		{AgentID: "a", Decision: vote.DecisionReject, Weight: 1},
		{AgentID: "b", Decision: vote.DecisionReject, Weight: 1},
	}

	res := Evaluate(vs, Params{RequiredVotes: 3, Threshold: 0.66})
	if !res.Resolved {
		t.Fatalf("expected resolved, got reason %q", res.Reason)
	}
	if res.Outcome != vote.DecisionApprove {
		t.Errorf("weighted approval should win: got %s", res.Outcome)
	}
	if res.TotalWeight != 7 {
		t.Errorf("expected total weight 7, got %v", res.TotalWeight)
	}
}

func TestEvaluateEmpty(t *testing.T) {
	res := Evaluate(nil, Params{RequiredVotes: 1, Threshold: 0.5})
	if res.Resolved {
		t.Fatal("no votes must not resolve")
	}
	if res.Reason != ReasonInsufficientVotes {
		t.Errorf("expected %s, got %s", ReasonInsufficientVotes, res.Reason)
	}
}
