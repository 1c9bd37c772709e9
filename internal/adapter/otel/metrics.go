// Package otel provides OpenTelemetry metric instruments for the
// deliberation core. Exporter wiring is deployment-owned; instruments use
// the global meter provider.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "agora"

// Metrics holds all deliberation metric instruments.
type Metrics struct {
	SessionsCreated   metric.Int64Counter
	SessionsResolved  metric.Int64Counter
	SessionsEscalated metric.Int64Counter
	SessionsTimedOut  metric.Int64Counter
	VotesRecorded     metric.Int64Counter
	VotesLate         metric.Int64Counter
	LiveSessions      metric.Int64UpDownCounter
	ResolutionSeconds metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.SessionsCreated, err = meter.Int64Counter("agora.sessions.created",
		metric.WithDescription("Number of deliberation sessions created"))
	if err != nil {
		return nil, err
	}

	m.SessionsResolved, err = meter.Int64Counter("agora.sessions.resolved",
		metric.WithDescription("Number of sessions resolved by consensus or human decision"))
	if err != nil {
		return nil, err
	}

	m.SessionsEscalated, err = meter.Int64Counter("agora.sessions.escalated",
		metric.WithDescription("Number of sessions escalated to human review"))
	if err != nil {
		return nil, err
	}

	m.SessionsTimedOut, err = meter.Int64Counter("agora.sessions.timed_out",
		metric.WithDescription("Number of sessions denied by timeout (fail-closed)"))
	if err != nil {
		return nil, err
	}

	m.VotesRecorded, err = meter.Int64Counter("agora.votes.recorded",
		metric.WithDescription("Number of votes applied to live sessions"))
	if err != nil {
		return nil, err
	}

	m.VotesLate, err = meter.Int64Counter("agora.votes.late",
		metric.WithDescription("Number of votes arriving after a terminal status (audit-only)"))
	if err != nil {
		return nil, err
	}

	m.LiveSessions, err = meter.Int64UpDownCounter("agora.sessions.live",
		metric.WithDescription("Number of non-terminal sessions in the store"))
	if err != nil {
		return nil, err
	}

	m.ResolutionSeconds, err = meter.Float64Histogram("agora.session.resolution_seconds",
		metric.WithDescription("Time from session creation to terminal status"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
