// Package consensus implements the pure quorum/threshold evaluation rule.
package consensus

import "github.com/agora-gov/agora/internal/domain/vote"

// Unresolved reasons reported by Evaluate.
const (
	ReasonInsufficientVotes = "insufficient_votes"
	ReasonZeroTotalWeight   = "zero_total_weight"
	ReasonThresholdNotMet   = "threshold_not_met"
)

// Params are the quorum parameters fixed at session creation.
type Params struct {
	RequiredVotes int     `json:"required_votes"`
	Threshold     float64 `json:"threshold"` // fraction in (0,1]
}

// Result is the outcome of one evaluation pass.
type Result struct {
	Resolved      bool          `json:"resolved"`
	Outcome       vote.Decision `json:"outcome,omitempty"` // approve or reject when resolved
	Reason        string        `json:"reason,omitempty"`  // set when not resolved
	VoteCount     int           `json:"vote_count"`
	TotalWeight   float64       `json:"total_weight"`
	ApprovalRate  float64       `json:"approval_rate"`
	RejectionRate float64       `json:"rejection_rate"`
}

// Evaluate computes whether the given effective votes (one per agent) satisfy
// quorum and threshold. It is deterministic, side-effect-free, and safe to
// call redundantly after every vote insertion.
//
// Abstentions contribute to total weight but to neither side, so they dilute
// both rates.
func Evaluate(votes []vote.Record, p Params) Result {
	res := Result{VoteCount: len(votes)}

	var approveWeight, rejectWeight float64
	for i := range votes {
		res.TotalWeight += votes[i].Weight
		switch votes[i].Decision {
		case vote.DecisionApprove:
			approveWeight += votes[i].Weight
		case vote.DecisionReject:
			rejectWeight += votes[i].Weight
		case vote.DecisionAbstain:
			// counts toward total weight only
		}
	}

	if len(votes) < p.RequiredVotes {
		res.Reason = ReasonInsufficientVotes
		return res
	}

	if res.TotalWeight == 0 {
		// Defensive: all abstain or zero-weighted records.
		res.Reason = ReasonZeroTotalWeight
		return res
	}

	res.ApprovalRate = approveWeight / res.TotalWeight
	res.RejectionRate = rejectWeight / res.TotalWeight

	switch {
	case res.ApprovalRate >= p.Threshold:
		res.Resolved = true
		res.Outcome = vote.DecisionApprove
	case res.RejectionRate >= p.Threshold:
		res.Resolved = true
		res.Outcome = vote.DecisionReject
	default:
		res.Reason = ReasonThresholdNotMet
	}

	return res
}
