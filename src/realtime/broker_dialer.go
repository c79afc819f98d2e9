package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"

	"mwa-review/src/broker"
)

// BrokerDialer "connects" by subscribing to a broker topic carrying push envelopes, as
// written by the relay command. Each Dial creates a fresh subscription.
type BrokerDialer struct {
	Broker  broker.Broker
	Topic   string
	GroupID string
	// OutboundTopic receives Send traffic. Empty drops outbound messages.
	OutboundTopic string
}

// Dial subscribes to the topic.
func (d *BrokerDialer) Dial(ctx context.Context) (Conn, error) {
	if d.Broker == nil {
		return nil, errors.New("broker dialer has no broker")
	}
	subCtx, cancel := context.WithCancel(ctx)
	msgs, err := d.Broker.Subscribe(subCtx, d.Topic, d.GroupID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to %s: %w", d.Topic, err)
	}
	return &brokerConn{dialer: d, msgs: msgs, cancel: cancel}, nil
}

type brokerConn struct {
	dialer *BrokerDialer
	msgs   <-chan broker.Message
	cancel context.CancelFunc
}

func (c *brokerConn) ReadMessage(ctx context.Context) ([]byte, error) {
	select {
	case msg, ok := <-c.msgs:
		if !ok {
			return nil, io.EOF
		}
		return msg.Value, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *brokerConn) WriteMessage(ctx context.Context, data []byte) error {
	if c.dialer.OutboundTopic == "" {
		return errors.New("broker channel is receive-only")
	}
	return c.dialer.Broker.Publish(ctx, c.dialer.OutboundTopic, "", data)
}

func (c *brokerConn) Close() error {
	c.cancel()
	return nil
}
