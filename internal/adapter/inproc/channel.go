// Package inproc implements the event channel port with in-process fan-out,
// so a single-coordinator deployment works with no broker at all.
package inproc

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/agora-gov/agora/internal/port/eventchannel"
)

// defaultMaxInFlight bounds concurrent handler invocations across all
// subjects, so one slow subscriber cannot spawn goroutines without limit.
const defaultMaxInFlight = 64

// Channel is an in-process publish/subscribe channel.
type Channel struct {
	mu     sync.RWMutex
	subs   map[string]map[int]eventchannel.Handler
	nextID int
	closed bool

	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// New creates an in-process channel.
func New() *Channel {
	return &Channel{
		subs: make(map[string]map[int]eventchannel.Handler),
		sem:  semaphore.NewWeighted(defaultMaxInFlight),
	}
}

// Publish delivers the message to every handler subscribed to the subject.
// Handlers run asynchronously; delivery to a subject with no subscribers is
// a silent no-op, matching broker semantics.
func (c *Channel) Publish(ctx context.Context, subject string, data []byte) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return errors.New("inproc channel closed")
	}
	handlers := make([]eventchannel.Handler, 0, len(c.subs[subject]))
	for _, h := range c.subs[subject] {
		handlers = append(handlers, h)
	}
	c.mu.RUnlock()

	for _, h := range handlers {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		c.wg.Add(1)
		go func(h eventchannel.Handler) {
			defer c.wg.Done()
			defer c.sem.Release(1)
			// The publisher's context may end before the handler runs.
			if err := h(context.Background(), subject, data); err != nil {
				slog.Error("inproc handler failed", "subject", subject, "error", err)
			}
		}(h)
	}
	return nil
}

// Subscribe registers a handler for the subject. The returned function
// cancels the subscription and is safe to call more than once.
func (c *Channel) Subscribe(_ context.Context, subject string, handler eventchannel.Handler) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.New("inproc channel closed")
	}

	id := c.nextID
	c.nextID++
	if c.subs[subject] == nil {
		c.subs[subject] = make(map[int]eventchannel.Handler)
	}
	c.subs[subject][id] = handler

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if m, ok := c.subs[subject]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(c.subs, subject)
			}
		}
	}, nil
}

// Close stops accepting messages and waits for in-flight handlers to finish.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.subs = make(map[string]map[int]eventchannel.Handler)
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

// IsConnected reports whether the channel accepts messages.
func (c *Channel) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// SubjectCount returns the number of subjects with live subscriptions.
func (c *Channel) SubjectCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}
