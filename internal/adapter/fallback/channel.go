// Package fallback composes a broker-backed event channel with the
// in-process channel. Publishing degrades to local delivery when the broker
// is unreachable, so transport failure is never visible on the vote path.
package fallback

import (
	"context"
	"errors"
	"log/slog"

	"github.com/agora-gov/agora/internal/port/eventchannel"
)

// Channel wraps a primary (broker) channel and a local in-process channel.
// The primary may be nil for broker-less deployments.
type Channel struct {
	primary eventchannel.Channel
	local   eventchannel.Channel
}

// New creates a fallback channel. local must not be nil.
func New(primary, local eventchannel.Channel) *Channel {
	return &Channel{primary: primary, local: local}
}

// Publish sends via the broker when connected, falling back to in-process
// delivery on any transport error. Only local failure is returned.
func (c *Channel) Publish(ctx context.Context, subject string, data []byte) error {
	if c.primary != nil && c.primary.IsConnected() {
		if err := c.primary.Publish(ctx, subject, data); err == nil {
			return nil
		} else {
			slog.Warn("broker publish failed, delivering locally", "subject", subject, "error", err)
		}
	}
	return c.local.Publish(ctx, subject, data)
}

// Subscribe registers the handler on both channels so messages arrive
// whether they traveled through the broker or the local fallback path.
// Duplicate delivery is tolerated by consumers (at-least-once contract).
func (c *Channel) Subscribe(ctx context.Context, subject string, handler eventchannel.Handler) (func(), error) {
	cancelLocal, err := c.local.Subscribe(ctx, subject, handler)
	if err != nil {
		return nil, err
	}

	if c.primary == nil {
		return cancelLocal, nil
	}

	cancelPrimary, err := c.primary.Subscribe(ctx, subject, handler)
	if err != nil {
		// Broker subscription failure degrades to local-only delivery.
		slog.Warn("broker subscribe failed, local delivery only", "subject", subject, "error", err)
		return cancelLocal, nil
	}

	return func() {
		cancelPrimary()
		cancelLocal()
	}, nil
}

// Close shuts down both channels.
func (c *Channel) Close() error {
	var errs []error
	if c.primary != nil {
		errs = append(errs, c.primary.Close())
	}
	errs = append(errs, c.local.Close())
	return errors.Join(errs...)
}

// IsConnected reports broker connectivity; local delivery always works, so
// this is a health signal, not a delivery guarantee.
func (c *Channel) IsConnected() bool {
	return c.primary != nil && c.primary.IsConnected()
}
