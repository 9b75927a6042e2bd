package violation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrSinkClosed is returned by Close when called twice.
var ErrSinkClosed = errors.New("violation: sink closed")

// KafkaConfig configures the telemetry sink.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	QueueSize    int
	WriteTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink forwards events to a Kafka topic from a background goroutine.
// Record never blocks: when the queue is full the event is dropped and a
// warning is logged. Events are keyed by session so a session's violations
// stay ordered within a partition.
type KafkaSink struct {
	writer  messageWriter
	logger  *slog.Logger
	timeout time.Duration
	queue   chan Event

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewKafkaSink creates a sink writing to cfg.Topic.
func NewKafkaSink(cfg KafkaConfig, logger *slog.Logger) *KafkaSink {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return newKafkaSink(w, cfg, logger)
}

func newKafkaSink(w messageWriter, cfg KafkaConfig, logger *slog.Logger) *KafkaSink {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &KafkaSink{
		writer:  w,
		logger:  logger.With("component", "kafka-sink"),
		timeout: cfg.WriteTimeout,
		queue:   make(chan Event, cfg.QueueSize),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Record implements Sink.
func (s *KafkaSink) Record(e Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}

	select {
	case s.queue <- e:
	default:
		s.logger.Warn("telemetry queue full, dropping violation", "type", string(e.Kind))
	}
}

// Close drains queued events and closes the writer.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	return s.writer.Close()
}

func (s *KafkaSink) run() {
	defer s.wg.Done()
	for e := range s.queue {
		s.publish(e)
	}
}

func (s *KafkaSink) publish(e Event) {
	value, err := json.Marshal(e)
	if err != nil {
		s.logger.Error("encode violation", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(e.SessionID),
		Value: value,
		Time:  e.Timestamp,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Kind)},
			{Key: "rank", Value: []byte(Rank(e.Kind))},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.logger.Warn("publish violation failed", "type", string(e.Kind), "error", err)
	}
}
