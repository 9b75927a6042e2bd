package violation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/teslashibe/go-proctor/internal/log"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	block  chan struct{}
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestKafkaSink_Publishes(t *testing.T) {
	w := &fakeWriter{}
	s := newKafkaSink(w, KafkaConfig{}, log.Discard())

	e := New(ScreenAway, at)
	e.SessionID = "session-1"
	s.Record(e)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(w.msgs))
	}

	msg := w.msgs[0]
	if string(msg.Key) != "session-1" {
		t.Errorf("key = %q", msg.Key)
	}
	var got Event
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Kind != ScreenAway || got.Description != "Looking away from screen" {
		t.Errorf("payload = %+v", got)
	}
	if !w.closed {
		t.Error("writer not closed")
	}
}

func TestKafkaSink_WriteErrorSwallowed(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	s := newKafkaSink(w, KafkaConfig{}, log.Discard())

	s.Record(New(MultiplePersons, at))
	s.Record(New(ScreenAway, at))

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(w.msgs) != 2 {
		t.Errorf("attempted %d writes, want 2", len(w.msgs))
	}
}

func TestKafkaSink_FullQueueDrops(t *testing.T) {
	w := &fakeWriter{block: make(chan struct{})}
	s := newKafkaSink(w, KafkaConfig{QueueSize: 1, WriteTimeout: time.Second}, log.Discard())

	// One event may be in flight inside the blocked writer and one queued;
	// the rest must be dropped without blocking Record.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			s.Record(New(ScreenAway, at))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	close(w.block)
	s.Close()
	if len(w.msgs) > 2 {
		t.Errorf("published %d, want at most 2", len(w.msgs))
	}
}

func TestKafkaSink_CloseTwice(t *testing.T) {
	s := newKafkaSink(&fakeWriter{}, KafkaConfig{}, log.Discard())
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); !errors.Is(err, ErrSinkClosed) {
		t.Errorf("second Close = %v, want ErrSinkClosed", err)
	}
	s.Record(New(ScreenAway, at)) // must not panic
}
