// Package eventchannel defines the publish/subscribe port that moves vote
// records between agents and coordinator replicas.
package eventchannel

import "context"

// Handler processes a message received on a subject.
type Handler func(ctx context.Context, subject string, data []byte) error

// Channel is the port interface for vote transport. Delivery is
// at-least-once; consumers must tolerate duplicates (the coordinator's
// replace-not-append rule makes redelivery harmless).
type Channel interface {
	// Publish sends a message to the given subject. Implementations must not
	// fail on transport unavailability alone; see the fallback adapter.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Close shuts down the channel and all subscriptions.
	Close() error

	// IsConnected reports whether the underlying transport is reachable.
	IsConnected() bool
}

// Subject builds the per-subject topic name under the configured prefix.
// One topic per live subject keeps subscription count proportional to live
// sessions, not total vote traffic.
func Subject(prefix, subjectID string) string {
	return prefix + "." + subjectID
}
