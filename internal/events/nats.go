package events

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSPublisher implements Publisher using NATS
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSPublisher creates a new NATS-backed publisher
func NewNATSPublisher(natsURL, subject string, logger zerolog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}

	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger,
	}, nil
}

// Close closes the NATS connection
func (n *NATSPublisher) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

// PublishBufferStatus publishes buffer status events to NATS
func (n *NATSPublisher) PublishBufferStatus(ctx context.Context, event BufferStatusEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		n.logger.Error().Err(err).Str("subject", n.subject).Msg("Failed to publish buffer status")
		return err
	}

	// A nearly full buffer gets its own routing key so alerting can watch it.
	if event.Capacity > 0 && event.Size == event.Capacity {
		routingKey := n.subject + ".full"
		if err := n.conn.Publish(routingKey, data); err != nil {
			n.logger.Error().Err(err).Str("routing_key", routingKey).Msg("Failed to publish to routing key")
		}
	}

	n.logger.Debug().
		Int("size", event.Size).
		Float64("beta", event.Beta).
		Str("subject", n.subject).
		Msg("Published buffer status event")

	return nil
}

// PublishPriorityUpdate publishes priority update events to NATS
func (n *NATSPublisher) PublishPriorityUpdate(ctx context.Context, event PriorityUpdateEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	subject := n.subject + ".priorities"
	if err := n.conn.Publish(subject, data); err != nil {
		n.logger.Error().Err(err).Str("subject", subject).Msg("Failed to publish priority update event")
		return err
	}

	return nil
}
