package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

func TestInMemoryBroker_PublishSubscribe(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	topic := "mwa.contacts.events"
	key := "c-42"
	value := []byte(`{"type":"contact_deleted","data":{"id":"c-42"}}`)

	// Subscribe before publishing
	msgChan, err := broker.Subscribe(ctx, topic, "dashboard")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	// Publish message
	if err := broker.Publish(ctx, topic, key, value); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	// Receive message
	select {
	case msg := <-msgChan:
		if msg.Topic != topic {
			t.Errorf("Expected topic %s, got %s", topic, msg.Topic)
		}
		if msg.Key != key {
			t.Errorf("Expected key %s, got %s", key, msg.Key)
		}
		if string(msg.Value) != string(value) {
			t.Errorf("Expected value %s, got %s", string(value), string(msg.Value))
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestInMemoryBroker_MultipleSubscribers(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	topic := "test-topic"

	// Create two subscribers
	sub1, err := broker.Subscribe(ctx, topic, "group1")
	if err != nil {
		t.Fatalf("Subscribe 1 failed: %v", err)
	}

	sub2, err := broker.Subscribe(ctx, topic, "group2")
	if err != nil {
		t.Fatalf("Subscribe 2 failed: %v", err)
	}

	// Publish message
	value := []byte("broadcast message")
	if err := broker.Publish(ctx, topic, "key", value); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	// Both subscribers should receive the message
	for i, sub := range []<-chan Message{sub1, sub2} {
		select {
		case msg := <-sub:
			if string(msg.Value) != string(value) {
				t.Errorf("Subscriber %d: expected value %s, got %s", i+1, string(value), string(msg.Value))
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("Subscriber %d: timeout waiting for message", i+1)
		}
	}
}

func TestInMemoryBroker_TopicIsolation(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()
	ctx := context.Background()

	chA, _ := broker.Subscribe(ctx, "topic-a", "g")
	chB, _ := broker.Subscribe(ctx, "topic-b", "g")

	if err := broker.Publish(ctx, "topic-a", "", []byte("for a")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case <-chA:
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message on topic-a")
	}

	select {
	case msg := <-chB:
		t.Errorf("Topic B should not receive message, but got: %q", msg.Value)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInMemoryBroker_OrderAndOffsets(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()
	ctx := context.Background()

	ch, _ := broker.Subscribe(ctx, "t", "g")
	for i := 0; i < 10; i++ {
		if err := broker.Publish(ctx, "t", "", []byte{byte(i)}); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	for i := 0; i < 10; i++ {
		msg := <-ch
		if msg.Offset != int64(i) || msg.Value[0] != byte(i) {
			t.Fatalf("message %d: offset %d value %v", i, msg.Offset, msg.Value)
		}
	}
}

func TestInMemoryBroker_CancelClosesChannel(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := broker.Subscribe(ctx, "t", "g")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel after cancel")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Publishing after the subscriber left must neither block nor panic.
	if err := broker.Publish(context.Background(), "t", "", []byte("x")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
}

func TestInMemoryBroker_ConcurrentPublishSubscribe(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subCtx, subCancel := context.WithCancel(ctx)
			ch, err := broker.Subscribe(subCtx, "t", "g")
			if err != nil {
				t.Errorf("Subscribe failed: %v", err)
				subCancel()
				return
			}
			go func() {
				for range ch {
				}
			}()
			time.Sleep(5 * time.Millisecond)
			subCancel()
		}()
	}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = broker.Publish(ctx, "t", "", []byte("x"))
		}()
	}
	wg.Wait()
}

func TestInMemoryBroker_ClosedBroker(t *testing.T) {
	broker := NewInMemoryBroker()
	broker.Close()

	ctx := context.Background()

	// Publishing to closed broker should fail
	err := broker.Publish(ctx, "test", "key", []byte("value"))
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed when publishing to closed broker, got %v", err)
	}

	// Subscribing to closed broker should fail
	_, err = broker.Subscribe(ctx, "test", "group")
	if err == nil {
		t.Error("Expected error when subscribing to closed broker")
	}
}

func TestNewRedpandaBroker_RequiresAddress(t *testing.T) {
	if _, err := NewRedpandaBroker(nil, nil); err == nil {
		t.Error("expected error without broker addresses")
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingLogger) record(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, level+" "+msg)
}

func (r *recordingLogger) Debug(msg string, args ...any) { r.record("DEBUG", msg) }
func (r *recordingLogger) Info(msg string, args ...any)  { r.record("INFO", msg) }
func (r *recordingLogger) Warn(msg string, args ...any)  { r.record("WARN", msg) }
func (r *recordingLogger) Error(msg string, args ...any) { r.record("ERROR", msg) }

func TestKgoLogger_MapsLevels(t *testing.T) {
	rec := &recordingLogger{}
	l := kgoLogger{log: rec}

	if l.Level() != kgo.LogLevelInfo {
		t.Errorf("expected client log level info, got %v", l.Level())
	}

	l.Log(kgo.LogLevelError, "unable to join group", "group", "mwa-dashboard")
	l.Log(kgo.LogLevelWarn, "metadata refresh failed")
	l.Log(kgo.LogLevelInfo, "assigning partitions")
	l.Log(kgo.LogLevelDebug, "wrote Fetch")

	want := []string{
		"ERROR unable to join group",
		"WARN metadata refresh failed",
		"DEBUG assigning partitions",
	}
	if len(rec.lines) != len(want) {
		t.Fatalf("expected %d log lines, got %v", len(want), rec.lines)
	}
	for i := range want {
		if rec.lines[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], rec.lines[i])
		}
	}
}
