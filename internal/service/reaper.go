package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/agora-gov/agora/internal/domain/deliberation"
)

// StartReaper runs the periodic sweep in the background and returns a stop
// function. The sweep resolves expired sessions that nobody is waiting on
// and evicts terminal sessions once their grace period passes.
func (c *Coordinator) StartReaper(ctx context.Context) func() {
	interval := c.cfg.ReaperInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.Sweep(ctx, time.Now().UTC())
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return func() { close(stop) }
}

// Sweep makes one pass over all sessions: expired live sessions get their
// timeout transition (escalation or fail-closed deny), terminal sessions past
// the grace period are parked in the result cache and evicted. Escalated
// sessions awaiting a human decision are never evicted.
func (c *Coordinator) Sweep(ctx context.Context, now time.Time) {
	for _, s := range c.store.list() {
		s.mu.Lock()
		terminal := s.status.Terminal()
		expired := !terminal && now.After(s.deadline)
		var stale bool
		if terminal && s.resolvedAt != nil {
			stale = now.Sub(*s.resolvedAt) > c.cfg.GracePeriod
		}
		s.mu.Unlock()

		switch {
		case expired:
			c.resolveTimeout(ctx, s)
		case stale:
			c.evict(ctx, s)
		}
	}
}

// evict parks a terminal session's snapshot in the result cache, keyed by
// both session and subject id, then removes it from the store.
func (c *Coordinator) evict(ctx context.Context, s *session) {
	s.mu.Lock()
	if s.status == deliberation.StatusEscalated && s.human == nil {
		// Still awaiting a reviewer.
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if c.results != nil {
		if data, err := json.Marshal(snap); err == nil {
			if err := c.results.Set(ctx, resultKey(snap.ID), data, c.resultTTL); err != nil {
				slog.Warn("result cache set failed", "session_id", snap.ID, "error", err)
			}
			if err := c.results.Set(ctx, resultKey(snap.SubjectID), data, c.resultTTL); err != nil {
				slog.Warn("result cache set failed", "subject_id", snap.SubjectID, "error", err)
			}
		}
	}

	s.stopSubscription()
	c.store.remove(s)

	slog.Debug("session evicted", "session_id", snap.ID, "status", snap.Status)
}
