package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mwa-review/src/broker"
	"mwa-review/src/contracts"
	"mwa-review/src/logger"
	"mwa-review/src/metrics"
)

// Relay outcomes as counted by metrics.IncRelayed.
const (
	RelayPublished = "published"
	RelayInvalid   = "invalid"
	RelayFailed    = "failed"
)

// RelayConfig configures a Relay.
type RelayConfig struct {
	Broker broker.Broker
	// Topic defaults to contracts.TopicContactEvents.
	Topic   string
	Logger  logger.Logger
	Metrics *metrics.Metrics
}

// Relay mirrors push frames into a broker topic, keyed by contact id, so other dashboards
// can follow the stream through a BrokerDialer. It rides on a Channel's connections and so
// shares its reconnect behaviour.
type Relay struct {
	broker  broker.Broker
	topic   string
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewRelay creates a relay.
func NewRelay(cfg RelayConfig) *Relay {
	topic := cfg.Topic
	if topic == "" {
		topic = contracts.TopicContactEvents
	}
	return &Relay{
		broker:  cfg.Broker,
		topic:   topic,
		log:     logger.OrSilent(cfg.Logger),
		metrics: cfg.Metrics,
	}
}

// Dialer wraps d so that every frame read from its connections is forwarded before the
// channel dispatches it.
func (r *Relay) Dialer(d Dialer) Dialer {
	return DialerFunc(func(ctx context.Context) (Conn, error) {
		conn, err := d.Dial(ctx)
		if err != nil {
			return nil, err
		}
		return &relayConn{Conn: conn, relay: r}, nil
	})
}

// Forward publishes one raw frame. Malformed frames are dropped; frames of unknown types
// are forwarded under their type name so newer consumers still see them.
func (r *Relay) Forward(ctx context.Context, raw []byte) error {
	key, err := EnvelopeKey(raw)
	if err != nil {
		r.metrics.IncRelayed(RelayInvalid)
		r.log.Warn("dropping malformed frame", "error", err)
		return err
	}
	if err := r.broker.Publish(ctx, r.topic, key, raw); err != nil {
		r.metrics.IncRelayed(RelayFailed)
		r.log.Error("failed to relay frame", "topic", r.topic, "key", key, "error", err)
		return fmt.Errorf("publish to %s: %w", r.topic, err)
	}
	r.metrics.IncRelayed(RelayPublished)
	r.log.Debug("relayed frame", "topic", r.topic, "key", key)
	return nil
}

// EnvelopeKey returns the partition key of a frame: the contact id for contact events,
// the message type otherwise.
func EnvelopeKey(raw []byte) (string, error) {
	var env contracts.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("%w: %v", contracts.ErrMalformedMessage, err)
	}
	ev, err := contracts.DecodeEvent(env)
	switch {
	case errors.Is(err, contracts.ErrUnknownMessageType):
		return string(env.Type), nil
	case err != nil:
		return "", err
	}
	switch ev := ev.(type) {
	case contracts.ContactEvent:
		return string(ev.Contact.ID), nil
	case contracts.ContactDeletedEvent:
		return string(ev.ID), nil
	default:
		return string(env.Type), nil
	}
}

type relayConn struct {
	Conn
	relay *Relay
}

func (c *relayConn) ReadMessage(ctx context.Context) ([]byte, error) {
	data, err := c.Conn.ReadMessage(ctx)
	if err == nil {
		// forwarding failures are counted and logged; the frame is still delivered locally
		_ = c.relay.Forward(ctx, data)
	}
	return data, err
}
