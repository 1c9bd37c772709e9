// Package service implements the deliberation coordinator: session
// lifecycle, vote routing, consensus resolution, timeout escalation, and
// the fail-closed default.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	agotel "github.com/agora-gov/agora/internal/adapter/otel"
	"github.com/agora-gov/agora/internal/adapter/ws"
	"github.com/agora-gov/agora/internal/config"
	"github.com/agora-gov/agora/internal/domain"
	"github.com/agora-gov/agora/internal/domain/deliberation"
	"github.com/agora-gov/agora/internal/domain/vote"
	"github.com/agora-gov/agora/internal/port/auditlog"
	"github.com/agora-gov/agora/internal/port/broadcast"
	"github.com/agora-gov/agora/internal/port/cache"
	"github.com/agora-gov/agora/internal/port/eventchannel"
)

const defaultResultTTL = time.Hour

// Options carries the coordinator's optional collaborators. Every field may
// be nil (or zero); the coordinator degrades feature by feature, never as a
// whole.
type Options struct {
	Results   cache.Cache           // resolved-result cache, read after eviction
	ResultTTL time.Duration         // how long evicted results stay readable
	Audit     auditlog.Store        // append-only audit trail
	Hub       broadcast.Broadcaster // live event fan-out to observers
	Metrics   *agotel.Metrics
}

// Coordinator owns all deliberation sessions of one replica. Votes reach it
// directly over HTTP or through the event channel; either path converges on
// applyRecord.
type Coordinator struct {
	cfg     config.Deliberation
	prefix  string
	channel eventchannel.Channel
	store   *sessionStore

	results   cache.Cache
	resultTTL time.Duration
	audit     auditlog.Store
	hub       broadcast.Broadcaster
	metrics   *agotel.Metrics
}

// NewCoordinator builds a coordinator on the given event channel.
func NewCoordinator(cfg config.Deliberation, prefix string, channel eventchannel.Channel, opts Options) *Coordinator {
	ttl := opts.ResultTTL
	if ttl <= 0 {
		ttl = defaultResultTTL
	}
	return &Coordinator{
		cfg:       cfg,
		prefix:    prefix,
		channel:   channel,
		store:     newSessionStore(cfg.MaxSessions),
		results:   opts.Results,
		resultTTL: ttl,
		audit:     opts.Audit,
		hub:       opts.Hub,
		metrics:   opts.Metrics,
	}
}

// CreateSession opens a deliberation session for a subject and subscribes to
// its vote topic. Missing quorum parameters fall back to configured defaults.
func (c *Coordinator) CreateSession(ctx context.Context, req deliberation.CreateRequest) (string, error) {
	if req.RequiredVotes == 0 {
		req.RequiredVotes = c.cfg.DefaultQuorum
	}
	if req.Threshold == 0 {
		req.Threshold = c.cfg.DefaultThreshold
	}
	if req.EscalateTo == "" {
		req.EscalateTo = c.cfg.EscalationTarget
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	timeout := c.cfg.DefaultTimeout
	if req.TimeoutSec != nil {
		timeout = time.Duration(*req.TimeoutSec * float64(time.Second))
	}

	params := deliberation.Params{
		RequiredVotes: req.RequiredVotes,
		Threshold:     req.Threshold,
		Timeout:       timeout,
		AgentWeights:  req.AgentWeights,
		EscalateTo:    req.EscalateTo,
	}

	s := newSession(uuid.NewString(), req.SubjectID, params, time.Now().UTC())

	if err := c.store.add(s); err != nil {
		// Under pressure, reclaim expired and stale sessions once, then retry.
		c.Sweep(ctx, time.Now().UTC())
		if err = c.store.add(s); err != nil {
			return "", err
		}
	}

	subject := eventchannel.Subject(c.prefix, s.subjectID)
	unsub, err := c.channel.Subscribe(ctx, subject, c.handleVoteMessage)
	if err != nil {
		// Direct submission still works; only channel-routed votes are lost.
		slog.Warn("vote subscription failed, direct submission only",
			"session_id", s.id, "subject", subject, "error", err)
	} else {
		s.unsub = unsub
	}

	c.appendAudit(ctx, &auditlog.Entry{
		SessionID: s.id,
		SubjectID: s.subjectID,
		Action:    auditlog.ActionSessionCreated,
		Details:   fmt.Sprintf("required_votes=%d threshold=%.2f timeout=%s", params.RequiredVotes, params.Threshold, params.Timeout),
	})
	if c.hub != nil {
		c.hub.BroadcastEvent(ctx, ws.EventSessionCreated, ws.SessionCreatedEvent{
			SessionID:     s.id,
			SubjectID:     s.subjectID,
			RequiredVotes: params.RequiredVotes,
			Threshold:     params.Threshold,
		})
	}
	if c.metrics != nil {
		c.metrics.SessionsCreated.Add(ctx, 1)
		c.metrics.LiveSessions.Add(ctx, 1)
	}

	slog.Info("session created",
		"session_id", s.id,
		"subject_id", s.subjectID,
		"required_votes", params.RequiredVotes,
		"threshold", params.Threshold,
		"timeout", params.Timeout,
	)
	return s.id, nil
}

// SubmitVote validates and applies a vote to the session for its subject.
// Returns false without error when no session exists for the subject or the
// session is already terminal; a submitter racing cleanup gets a benign
// no-op, not a failure.
func (c *Coordinator) SubmitVote(ctx context.Context, req vote.SubmitRequest) (bool, error) {
	rec, err := vote.New(req)
	if err != nil {
		return false, err
	}
	return c.applyRecord(ctx, rec)
}

// PublishVote validates a vote and fans it out through the event channel, so
// every replica subscribed to the subject applies it. Delivery back to this
// replica happens through its own subscription.
func (c *Coordinator) PublishVote(ctx context.Context, req vote.SubmitRequest) error {
	rec, err := vote.New(req)
	if err != nil {
		return err
	}
	data, err := rec.Encode()
	if err != nil {
		return err
	}
	return c.channel.Publish(ctx, eventchannel.Subject(c.prefix, rec.SubjectID), data)
}

// handleVoteMessage is the channel subscription callback. Malformed payloads
// are dropped with a log line rather than redelivered forever.
func (c *Coordinator) handleVoteMessage(ctx context.Context, subject string, data []byte) error {
	rec, err := vote.Decode(data)
	if err != nil {
		slog.Warn("dropping malformed vote message", "subject", subject, "error", err)
		return nil
	}
	if _, err := c.applyRecord(ctx, rec); err != nil {
		slog.Warn("vote message not applied", "subject", subject, "vote_id", rec.ID, "error", err)
	}
	return nil
}

// applyRecord is the single convergence point for both submission paths.
// Per-agent votes replace, never append, which also makes at-least-once
// channel delivery harmless.
func (c *Coordinator) applyRecord(ctx context.Context, rec *vote.Record) (bool, error) {
	s := c.store.lookup(rec.SubjectID)
	if s == nil {
		slog.Debug("vote for unknown subject ignored", "subject_id", rec.SubjectID, "agent_id", rec.AgentID)
		return false, nil
	}

	s.mu.Lock()

	if s.status.Terminal() {
		sessionID, subjectID := s.id, s.subjectID
		s.mu.Unlock()

		c.appendAudit(ctx, &auditlog.Entry{
			SessionID: sessionID,
			SubjectID: subjectID,
			AgentID:   rec.AgentID,
			Action:    auditlog.ActionVoteLate,
			Details:   string(rec.Decision),
		})
		if c.metrics != nil {
			c.metrics.VotesLate.Add(ctx, 1)
		}
		slog.Info("late vote ignored", "session_id", sessionID, "agent_id", rec.AgentID)
		return false, nil
	}

	// Creation-time weight overrides beat whatever the agent claimed.
	if w, ok := s.params.AgentWeights[rec.AgentID]; ok {
		rec.Weight = w
	}

	replaced := s.applyLocked(rec)
	result := s.result
	resolved := result.Resolved
	if resolved {
		s.transitionLocked(deliberation.StatusConsensusReached, result.Outcome, time.Now().UTC())
	}
	sessionID, subjectID := s.id, s.subjectID
	s.mu.Unlock()

	c.appendAudit(ctx, &auditlog.Entry{
		SessionID: sessionID,
		SubjectID: subjectID,
		AgentID:   rec.AgentID,
		Action:    auditlog.ActionVoteRecorded,
		Details:   fmt.Sprintf("decision=%s weight=%.2f replaced=%t", rec.Decision, rec.Weight, replaced),
	})
	if c.hub != nil {
		c.hub.BroadcastEvent(ctx, ws.EventVoteRecorded, ws.VoteRecordedEvent{
			SessionID: sessionID,
			SubjectID: subjectID,
			AgentID:   rec.AgentID,
			Decision:  string(rec.Decision),
			Weight:    rec.Weight,
			Replaced:  replaced,
		})
	}
	if c.metrics != nil {
		c.metrics.VotesRecorded.Add(ctx, 1)
	}

	slog.Info("vote recorded",
		"session_id", sessionID,
		"agent_id", rec.AgentID,
		"decision", rec.Decision,
		"weight", rec.Weight,
		"replaced", replaced,
		"vote_count", result.VoteCount,
	)

	if resolved {
		c.finalize(ctx, s)
	}
	return true, nil
}

// WaitForResolution blocks until the session reaches a terminal status or
// the wait deadline passes, whichever is first. On deadline it drives the
// timeout transition itself, so a session never outlives its budget just
// because nobody was watching. A zero override waits until the session's own
// deadline.
func (c *Coordinator) WaitForResolution(ctx context.Context, idOrSubject string, override time.Duration) (*deliberation.Result, error) {
	s := c.store.lookup(idOrSubject)
	if s == nil {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, idOrSubject)
	}

	s.mu.Lock()
	if s.status.Terminal() {
		res := s.resultLocked()
		s.mu.Unlock()
		return res, nil
	}
	if s.status == deliberation.StatusPending {
		s.status = deliberation.StatusUnderReview
	}
	wait := time.Until(s.deadline)
	if override > 0 {
		wait = override
	}
	done := s.done
	s.mu.Unlock()

	if wait <= 0 {
		c.resolveTimeout(ctx, s)
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.resultLocked(), nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		c.resolveTimeout(ctx, s)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultLocked(), nil
}

// resolveTimeout drives an expired session into its timeout status:
// escalated when an escalation target is configured, otherwise the
// fail-closed timed_out deny. Safe to race with a concurrent resolution.
func (c *Coordinator) resolveTimeout(ctx context.Context, s *session) {
	s.mu.Lock()
	if s.status.Terminal() {
		s.mu.Unlock()
		return
	}

	escalated := s.params.EscalateTo != ""
	if escalated {
		s.transitionLocked(deliberation.StatusEscalated, "", time.Now().UTC())
	} else {
		s.transitionLocked(deliberation.StatusTimedOut, "", time.Now().UTC())
	}
	s.mu.Unlock()

	c.finalize(ctx, s)
}

// SubmitHumanDecision applies a reviewer's decision. Legal only while the
// session is under review or escalated, and only once; returns false for
// anything else.
func (c *Coordinator) SubmitHumanDecision(ctx context.Context, idOrSubject, reviewerID string, decision deliberation.Status, rationale string) (bool, error) {
	if !deliberation.ValidHumanDecision(decision) {
		return false, fmt.Errorf("%w: human decision must be approved or rejected, got %q", domain.ErrInvalidDecision, decision)
	}
	if reviewerID == "" {
		return false, fmt.Errorf("%w: reviewer_id is required", domain.ErrValidation)
	}

	s := c.store.lookup(idOrSubject)
	if s == nil {
		return false, fmt.Errorf("%w: session %s", domain.ErrNotFound, idOrSubject)
	}

	s.mu.Lock()
	legal := (s.status == deliberation.StatusUnderReview || s.status == deliberation.StatusEscalated) && s.human == nil
	if !legal {
		status := s.status
		s.mu.Unlock()
		slog.Info("human decision not applicable", "session_id", s.id, "status", status)
		return false, nil
	}

	wasEscalated := s.status == deliberation.StatusEscalated
	s.human = &deliberation.HumanDecision{
		ReviewerID: reviewerID,
		Decision:   decision,
		Rationale:  rationale,
		DecidedAt:  time.Now().UTC(),
	}
	s.transitionLocked(decision, "", time.Now().UTC())
	sessionID, subjectID := s.id, s.subjectID
	s.mu.Unlock()

	c.appendAudit(ctx, &auditlog.Entry{
		SessionID: sessionID,
		SubjectID: subjectID,
		AgentID:   reviewerID,
		Action:    auditlog.ActionHumanDecision,
		Details:   string(decision),
	})
	if c.hub != nil {
		c.hub.BroadcastEvent(ctx, ws.EventHumanDecision, ws.HumanDecisionEvent{
			SessionID:  sessionID,
			SubjectID:  subjectID,
			ReviewerID: reviewerID,
			Decision:   string(decision),
		})
	}

	slog.Info("human decision recorded",
		"session_id", sessionID, "reviewer_id", reviewerID, "decision", decision)

	// An escalated session was already finalized at escalation time; the
	// decision only settles its status.
	if !wasEscalated {
		c.finalize(ctx, s)
	}
	return true, nil
}

// GetStatus returns a snapshot of a live session, falling back to the
// resolved-result cache for sessions already evicted from the store.
func (c *Coordinator) GetStatus(ctx context.Context, idOrSubject string) (*deliberation.Snapshot, error) {
	if s := c.store.lookup(idOrSubject); s != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.snapshotLocked(), nil
	}

	if c.results != nil {
		data, ok, err := c.results.Get(ctx, resultKey(idOrSubject))
		if err == nil && ok {
			var snap deliberation.Snapshot
			if err := json.Unmarshal(data, &snap); err == nil {
				return &snap, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, idOrSubject)
}

// GetVotes returns the effective votes recorded for a subject.
func (c *Coordinator) GetVotes(ctx context.Context, idOrSubject string) ([]vote.Record, error) {
	snap, err := c.GetStatus(ctx, idOrSubject)
	if err != nil {
		return nil, err
	}
	return snap.Votes, nil
}

// SessionCount returns (live, total) session counts.
func (c *Coordinator) SessionCount() (live, total int) {
	return c.store.counts()
}

// IsConnected reports broker connectivity of the underlying channel.
func (c *Coordinator) IsConnected() bool {
	return c.channel.IsConnected()
}

// Reset drops all sessions and their subscriptions. Test isolation only.
func (c *Coordinator) Reset() {
	for _, s := range c.store.reset() {
		s.stopSubscription()
	}
}

// finalize runs the post-terminal side effects exactly once per session:
// subscription teardown, audit, observer broadcast, metrics. Callers must
// not hold the session lock.
func (c *Coordinator) finalize(ctx context.Context, s *session) {
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.stopSubscription()

	action := auditlog.ActionResolved
	switch snap.Status {
	case deliberation.StatusEscalated:
		action = auditlog.ActionEscalated
	case deliberation.StatusTimedOut:
		action = auditlog.ActionTimedOut
	}
	c.appendAudit(ctx, &auditlog.Entry{
		SessionID: snap.ID,
		SubjectID: snap.SubjectID,
		Action:    action,
		Details:   fmt.Sprintf("status=%s outcome=%s", snap.Status, snap.Outcome),
	})

	if c.hub != nil {
		if snap.Status == deliberation.StatusEscalated {
			c.hub.BroadcastEvent(ctx, ws.EventSessionEscalated, ws.SessionEscalatedEvent{
				SessionID:  snap.ID,
				SubjectID:  snap.SubjectID,
				EscalateTo: snap.Params.EscalateTo,
			})
		} else {
			c.hub.BroadcastEvent(ctx, ws.EventSessionResolved, ws.SessionResolvedEvent{
				SessionID:     snap.ID,
				SubjectID:     snap.SubjectID,
				Status:        string(snap.Status),
				Outcome:       string(snap.Outcome),
				ApprovalRate:  snap.Consensus.ApprovalRate,
				RejectionRate: snap.Consensus.RejectionRate,
			})
		}
	}

	if c.metrics != nil {
		switch snap.Status {
		case deliberation.StatusEscalated:
			c.metrics.SessionsEscalated.Add(ctx, 1)
		case deliberation.StatusTimedOut:
			c.metrics.SessionsTimedOut.Add(ctx, 1)
		default:
			c.metrics.SessionsResolved.Add(ctx, 1)
		}
		c.metrics.LiveSessions.Add(ctx, -1)
		if snap.ResolvedAt != nil {
			c.metrics.ResolutionSeconds.Record(ctx, snap.ResolvedAt.Sub(snap.CreatedAt).Seconds())
		}
	}

	slog.Info("session finalized",
		"session_id", snap.ID,
		"subject_id", snap.SubjectID,
		"status", snap.Status,
		"outcome", snap.Outcome,
	)
}

// appendAudit writes an audit entry best-effort. Audit failure never blocks
// the deliberation path.
func (c *Coordinator) appendAudit(ctx context.Context, e *auditlog.Entry) {
	if c.audit == nil {
		return
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := c.audit.Append(ctx, e); err != nil {
		slog.Warn("audit append failed", "session_id", e.SessionID, "action", e.Action, "error", err)
	}
}

func resultKey(id string) string {
	return "resolved:" + id
}
