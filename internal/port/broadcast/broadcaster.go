// Package broadcast defines the port for pushing deliberation lifecycle
// events to connected observers.
package broadcast

import "context"

// Broadcaster sends a typed event to every connected observer. Delivery is
// best-effort; observers are informational only and never gate resolution.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
