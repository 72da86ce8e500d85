package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	pairingdomain "pairing-control-plane/internal/pairing/domain"
	"pairing-control-plane/internal/telemetry/domain"
)

// Sink plugs into the facade's event hook: every pairing outcome becomes an
// async OTel log record plus a counter increment.
type Sink struct {
	emitter  EventEmitter
	source   string
	requests metric.Int64Counter
	verifies metric.Int64Counter
}

// NewSink returns a sink that emits through emitter and counts on meter.
// emitter may be nil (log records are then skipped).
func NewSink(emitter EventEmitter, meter metric.Meter, source string) (*Sink, error) {
	requests, err := meter.Int64Counter("pairing.code_requests",
		metric.WithDescription("Pairing code requests by channel and outcome"))
	if err != nil {
		return nil, err
	}
	verifies, err := meter.Int64Counter("pairing.code_submissions",
		metric.WithDescription("Pairing code submissions by channel and outcome"))
	if err != nil {
		return nil, err
	}
	return &Sink{emitter: emitter, source: source, requests: requests, verifies: verifies}, nil
}

// PairingEvent records the outcome and fires an async log record. Never
// blocks the request path.
func (s *Sink) PairingEvent(ctx context.Context, name, sessionID string, ch pairingdomain.Channel, outcome string) {
	attrs := metric.WithAttributes(
		attribute.String("channel", string(ch)),
		attribute.String("outcome", outcome),
	)
	switch name {
	case "request_code":
		s.requests.Add(ctx, 1, attrs)
	case "submit_code":
		s.verifies.Add(ctx, 1, attrs)
	}
	EmitAsync(s.emitter, ctx, &domain.Event{
		SessionID: sessionID,
		Channel:   string(ch),
		EventType: name,
		Outcome:   outcome,
		Source:    s.source,
		CreatedAt: time.Now().UTC(),
	})
}
