package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"mwa-review/src/logger"
)

const defaultClientID = "mwa-review"

// RedpandaBroker carries push envelopes over a Kafka-compatible cluster using franz-go.
// One producer client is shared by all publishers; every subscription gets its own
// consumer client.
type RedpandaBroker struct {
	producer *kgo.Client
	opts     []kgo.Opt
	log      logger.Logger

	mu        sync.Mutex
	consumers map[string]*kgo.Client // topic:group -> consumer
	closed    bool
}

// NewRedpandaBroker connects to the seed brokers (e.g. ["localhost:19092"]).
func NewRedpandaBroker(brokers []string, log logger.Logger) (*RedpandaBroker, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker address is required")
	}
	log = logger.OrSilent(log)

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(defaultClientID),
		kgo.WithLogger(kgoLogger{log}),
	}
	producer, err := kgo.NewClient(append(opts,
		kgo.AllowAutoTopicCreation(),
		// envelopes for one contact stay ordered on one partition
		kgo.RecordPartitioner(kgo.StickyKeyPartitioner(nil)),
	)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka client: %w", err)
	}

	return &RedpandaBroker{
		producer:  producer,
		opts:      opts,
		log:       log,
		consumers: make(map[string]*kgo.Client),
	}, nil
}

// Publish produces one record and waits for the broker to acknowledge it.
func (b *RedpandaBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	record := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	if err := b.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", topic, err)
	}
	return nil
}

// Subscribe joins groupID on topic, starting at the end of the topic: a dashboard only wants
// live mutations and reconciles history through a full load. The consumer is released when
// ctx is done, so the same topic and group can be subscribed again after a reconnect.
func (b *RedpandaBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	key := topic + ":" + groupID
	if _, exists := b.consumers[key]; exists {
		return nil, fmt.Errorf("consumer already exists for topic %s and group %s", topic, groupID)
	}

	consumer, err := kgo.NewClient(append(b.opts,
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}
	b.consumers[key] = consumer

	msgs := make(chan Message, 100)
	go b.consume(ctx, key, consumer, msgs)
	return msgs, nil
}

func (b *RedpandaBroker) consume(ctx context.Context, key string, consumer *kgo.Client, msgs chan<- Message) {
	defer close(msgs)
	defer b.release(key, consumer)

	for {
		fetches := consumer.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			b.log.Warn("fetch error", "topic", topic, "partition", partition, "error", err)
		})

		for iter := fetches.RecordIter(); !iter.Done(); {
			record := iter.Next()
			select {
			case msgs <- Message{
				Topic:     record.Topic,
				Key:       string(record.Key),
				Value:     record.Value,
				Offset:    record.Offset,
				Partition: record.Partition,
				Timestamp: record.Timestamp.UnixMilli(),
			}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (b *RedpandaBroker) release(key string, consumer *kgo.Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if current, ok := b.consumers[key]; ok && current == consumer {
		delete(b.consumers, key)
	}
	consumer.Close()
}

// Close shuts down the producer and every consumer.
func (b *RedpandaBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	consumers := b.consumers
	b.consumers = make(map[string]*kgo.Client)
	b.mu.Unlock()

	for _, consumer := range consumers {
		consumer.Close()
	}
	b.producer.Close()
	return nil
}

// kgoLogger routes franz-go's client logs into the application logger. Debug output from
// the client is dropped.
type kgoLogger struct {
	log logger.Logger
}

func (l kgoLogger) Level() kgo.LogLevel { return kgo.LogLevelInfo }

func (l kgoLogger) Log(level kgo.LogLevel, msg string, keyvals ...any) {
	switch level {
	case kgo.LogLevelError:
		l.log.Error(msg, keyvals...)
	case kgo.LogLevelWarn:
		l.log.Warn(msg, keyvals...)
	case kgo.LogLevelInfo:
		l.log.Debug(msg, keyvals...)
	}
}
