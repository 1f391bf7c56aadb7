package stream

import "context"

// EventSource is the transport-agnostic subscription contract §6
// requires: "the orchestrator is agnostic to the concrete transport so
// long as it delivers the typed event variants above." Concrete
// adapters (websocket, Kafka) live under internal/transport/.
type EventSource interface {
	// Connect establishes the subscription, subject to ctx's deadline —
	// §5 budgets subscription establishment at 30s.
	Connect(ctx context.Context) error

	// Events returns the channel of decoded events. The channel is
	// closed when the connection drops; the orchestrator treats that as
	// a transport error and reconnects.
	Events() <-chan Event

	// Errs returns the channel of transport-level errors (decode
	// failures that don't close the stream, connection issues, etc).
	Errs() <-chan error

	// Close tears down the subscription.
	Close() error
}
