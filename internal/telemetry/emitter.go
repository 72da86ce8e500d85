// Package telemetry defines the event emitter contract and the async
// fire-and-forget helper used from request paths.
package telemetry

import (
	"context"
	"log"
	"time"

	"pairing-control-plane/internal/telemetry/domain"
)

// emitTimeout is the max time allowed for a single async emit. Used by
// EmitAsync and by ShutdownDrainDuration.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the HTTP server stops
// before shutting down the OTel providers, so in-flight async emits have time
// to complete. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EventEmitter emits pairing events (e.g. to OTel logs). Best-effort; callers
// log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}

// EmitAsync runs Emit in a goroutine with a short timeout so the caller is
// not blocked. emitter and event may be nil; EmitAsync then returns without
// starting a goroutine. The goroutine uses context.Background() so request
// cancellation does not abort an in-flight emit.
func EmitAsync(emitter EventEmitter, ctx context.Context, event *domain.Event) {
	if emitter == nil || event == nil {
		return
	}
	go func() {
		emitCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, event); err != nil {
			log.Printf("telemetry: async emit failed: %v", err)
		}
	}()
}
