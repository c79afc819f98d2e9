package broker

import (
	"context"
	"sync"
	"time"
)

const inMemoryBuffer = 256

type subscription struct {
	ctx context.Context
	ch  chan Message
}

// InMemoryBroker delivers messages to every live subscriber of a topic within the process.
// Used by tests and the demo dashboard.
type InMemoryBroker struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscription
	offsets     map[string]int64
	closed      bool
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subscribers: make(map[string][]*subscription),
		offsets:     make(map[string]int64),
	}
}

// Publish delivers value to all subscribers of topic. It blocks while a subscriber's buffer is
// full, until that subscriber reads, unsubscribes or ctx is done.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	offset := b.offsets[topic]
	b.offsets[topic] = offset + 1
	b.mu.Unlock()

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     append([]byte(nil), value...),
		Offset:    offset,
		Timestamp: time.Now().UnixMilli(),
	}

	// Channels are only closed under the write lock, so holding the read lock keeps every
	// subscriber channel open while we deliver.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for _, sub := range b.subscribers[topic] {
		select {
		case sub.ch <- msg:
		case <-sub.ctx.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a subscriber for topic. Only messages published after the call are seen.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	sub := &subscription{ctx: ctx, ch: make(chan Message, inMemoryBuffer)}
	b.subscribers[topic] = append(b.subscribers[topic], sub)

	go func() {
		<-ctx.Done()
		b.unsubscribe(topic, sub)
	}()

	return sub.ch, nil
}

func (b *InMemoryBroker) unsubscribe(topic string, sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[topic]
	for i, s := range subs {
		if s == sub {
			b.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
			close(sub.ch)
			return
		}
	}
}

// Close closes every subscriber channel. Further Publish and Subscribe calls fail.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for topic, subs := range b.subscribers {
		for _, sub := range subs {
			close(sub.ch)
		}
		delete(b.subscribers, topic)
	}
	return nil
}
