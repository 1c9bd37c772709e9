package service

import (
	"sync"
	"time"

	"github.com/agora-gov/agora/internal/domain"
	"github.com/agora-gov/agora/internal/domain/consensus"
	"github.com/agora-gov/agora/internal/domain/deliberation"
	"github.com/agora-gov/agora/internal/domain/vote"
)

// session is the coordinator-owned mutable state of one deliberation.
// All fields below mu are guarded by it; external callers only ever hold a
// session id and go through coordinator operations.
type session struct {
	mu sync.Mutex

	id        string
	subjectID string
	params    deliberation.Params

	status  deliberation.Status
	outcome vote.Decision
	votes   []vote.Record  // insertion order, unique by agent
	voteIdx map[string]int // agent id -> index into votes
	result  consensus.Result

	createdAt  time.Time
	deadline   time.Time
	resolvedAt *time.Time
	human      *deliberation.HumanDecision

	// done is closed exactly once, at the first terminal transition.
	// Waiters block on it; closing under mu avoids the check-then-register race.
	done     chan struct{}
	signaled bool

	// cleanup cancels the vote subscription exactly once.
	cleanup sync.Once
	unsub   func()
}

func newSession(id, subjectID string, params deliberation.Params, now time.Time) *session {
	return &session{
		id:        id,
		subjectID: subjectID,
		params:    params,
		status:    deliberation.StatusPending,
		voteIdx:   make(map[string]int),
		createdAt: now,
		deadline:  now.Add(params.Timeout),
		done:      make(chan struct{}),
	}
}

// transitionLocked moves the session to the given status. The wake channel
// is closed on the first transition into a terminal status; a later human
// decision on an escalated session updates the status without re-signaling.
func (s *session) transitionLocked(status deliberation.Status, outcome vote.Decision, now time.Time) {
	s.status = status
	if outcome != "" {
		s.outcome = outcome
	}
	if status.Terminal() && !s.signaled {
		t := now
		s.resolvedAt = &t
		s.signaled = true
		close(s.done)
	}
}

// applyLocked inserts or replaces the agent's effective vote and re-evaluates
// consensus. Returns whether an earlier vote was replaced.
func (s *session) applyLocked(rec *vote.Record) (replaced bool) {
	if idx, ok := s.voteIdx[rec.AgentID]; ok {
		s.votes[idx] = *rec
		replaced = true
	} else {
		s.voteIdx[rec.AgentID] = len(s.votes)
		s.votes = append(s.votes, *rec)
	}
	if s.status == deliberation.StatusPending {
		s.status = deliberation.StatusUnderReview
	}
	s.result = consensus.Evaluate(s.votes, s.params.Rule())
	return replaced
}

// snapshotLocked copies the session state for concurrent readers.
func (s *session) snapshotLocked() *deliberation.Snapshot {
	votes := make([]vote.Record, len(s.votes))
	copy(votes, s.votes)

	snap := &deliberation.Snapshot{
		ID:        s.id,
		SubjectID: s.subjectID,
		Status:    s.status,
		Outcome:   s.outcome,
		Params:    s.params,
		Votes:     votes,
		Consensus: s.result,
		CreatedAt: s.createdAt,
		Deadline:  s.deadline,
	}
	if s.resolvedAt != nil {
		t := *s.resolvedAt
		snap.ResolvedAt = &t
	}
	if s.human != nil {
		h := *s.human
		snap.Human = &h
	}
	return snap
}

// resultLocked builds the waiter-facing result from the current state.
func (s *session) resultLocked() *deliberation.Result {
	res := &deliberation.Result{
		SessionID: s.id,
		SubjectID: s.subjectID,
		Status:    s.status,
		Outcome:   s.outcome,
		Consensus: s.result,
	}
	if s.resolvedAt != nil {
		t := *s.resolvedAt
		res.ResolvedAt = &t
	}
	if s.human != nil {
		h := *s.human
		res.Human = &h
	}
	return res
}

// stopSubscription cancels the session's vote subscription exactly once.
func (s *session) stopSubscription() {
	s.cleanup.Do(func() {
		if s.unsub != nil {
			s.unsub()
		}
	})
}

// sessionStore is the keyed registry of in-flight sessions. The store mutex
// guards only the maps; vote application happens under each session's own
// lock, never while holding the store lock across a blocking wait.
type sessionStore struct {
	mu        sync.RWMutex
	byID      map[string]*session
	bySubject map[string]*session
	maxLive   int
}

func newSessionStore(maxLive int) *sessionStore {
	return &sessionStore{
		byID:      make(map[string]*session),
		bySubject: make(map[string]*session),
		maxLive:   maxLive,
	}
}

// add registers a new session, enforcing the live-session capacity bound.
func (st *sessionStore) add(s *session) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.liveCountLocked() >= st.maxLive {
		return domain.ErrCapacityExceeded
	}
	st.byID[s.id] = s
	st.bySubject[s.subjectID] = s
	return nil
}

// lookup resolves a session by session id or subject id.
func (st *sessionStore) lookup(idOrSubject string) *session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if s, ok := st.byID[idOrSubject]; ok {
		return s
	}
	return st.bySubject[idOrSubject]
}

// remove evicts a session from the registry.
func (st *sessionStore) remove(s *session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.byID, s.id)
	if st.bySubject[s.subjectID] == s {
		delete(st.bySubject, s.subjectID)
	}
}

// list returns all registered sessions.
func (st *sessionStore) list() []*session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*session, 0, len(st.byID))
	for _, s := range st.byID {
		out = append(out, s)
	}
	return out
}

// counts returns (live, total) session counts.
func (st *sessionStore) counts() (live, total int) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.liveCountLocked(), len(st.byID)
}

func (st *sessionStore) liveCountLocked() int {
	live := 0
	for _, s := range st.byID {
		s.mu.Lock()
		if !s.status.Terminal() {
			live++
		}
		s.mu.Unlock()
	}
	return live
}

// reset drops every session. Test isolation only.
func (st *sessionStore) reset() []*session {
	st.mu.Lock()
	defer st.mu.Unlock()
	dropped := make([]*session, 0, len(st.byID))
	for _, s := range st.byID {
		dropped = append(dropped, s)
	}
	st.byID = make(map[string]*session)
	st.bySubject = make(map[string]*session)
	return dropped
}
