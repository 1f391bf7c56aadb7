// Package kafkafeed is a reference segmentio/kafka-go EventSource: it
// consumes the same JSON envelope wsfeed decodes, but over a Kafka
// topic instead of a websocket, demonstrating that the orchestrator is
// transport-agnostic per §6.
package kafkafeed

import (
	"context"
	"fmt"

	kafka "github.com/segmentio/kafka-go"
	"github.com/pbelltech0/solana-streamer/internal/stream"
	"github.com/pbelltech0/solana-streamer/internal/transport/wsfeed"
	"go.uber.org/zap"
)

// Source is a kafka-go reader-backed stream.EventSource.
type Source struct {
	brokers []string
	topic   string
	groupID string
	log     *zap.Logger

	reader *kafka.Reader

	events chan stream.Event
	errs   chan error
	done   chan struct{}
}

// New builds a Source that will open a reader on Connect.
func New(brokers []string, topic, groupID string, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		brokers: brokers,
		topic:   topic,
		groupID: groupID,
		log:     logger.Named("kafkafeed"),
		events:  make(chan stream.Event, 256),
		errs:    make(chan error, 16),
		done:    make(chan struct{}),
	}
}

// Connect opens the Kafka reader and starts the fetch loop.
func (s *Source) Connect(ctx context.Context) error {
	s.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers: s.brokers,
		Topic:   s.topic,
		GroupID: s.groupID,
	})
	go s.readLoop()
	return nil
}

func (s *Source) readLoop() {
	defer close(s.events)
	ctx := context.Background()
	for {
		select {
		case <-s.done:
			return
		default:
		}

		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			select {
			case s.errs <- fmt.Errorf("kafkafeed: read: %w", err):
			default:
			}
			return
		}

		ev, err := wsfeed.Decode(msg.Value)
		if err != nil {
			select {
			case s.errs <- fmt.Errorf("kafkafeed: decode: %w", err):
			default:
			}
			continue
		}

		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

// Events implements stream.EventSource.
func (s *Source) Events() <-chan stream.Event { return s.events }

// Errs implements stream.EventSource.
func (s *Source) Errs() <-chan error { return s.errs }

// Close implements stream.EventSource.
func (s *Source) Close() error {
	close(s.done)
	if s.reader != nil {
		return s.reader.Close()
	}
	return nil
}
