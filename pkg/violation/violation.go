// Package violation defines the violation events raised by the monitors and
// the sinks they are forwarded to.
package violation

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Kind identifies what was violated.
type Kind string

const (
	ScreenAway        Kind = "screen_away"
	QuestionAway      Kind = "question_away"
	MultiplePersons   Kind = "multiple_persons"
	ExcessiveMovement Kind = "excessive_movement"
)

// Kinds lists every known kind.
var Kinds = []Kind{ScreenAway, QuestionAway, MultiplePersons, ExcessiveMovement}

var descriptions = map[Kind]string{
	ScreenAway:        "Looking away from screen",
	QuestionAway:      "Not focused on question",
	MultiplePersons:   "Multiple persons detected",
	ExcessiveMovement: "Excessive body movement",
}

// Describe returns the human readable description of a kind.
func Describe(k Kind) string {
	if d, ok := descriptions[k]; ok {
		return d
	}
	return "Unknown"
}

// Rank buckets a kind for reporting: high, medium or low.
func Rank(k Kind) string {
	switch k {
	case MultiplePersons:
		return "high"
	case ScreenAway, ExcessiveMovement:
		return "medium"
	default:
		return "low"
	}
}

// Event is an immutable violation record.
type Event struct {
	Kind        Kind      `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	SessionID   string    `json:"session_id,omitempty"`
}

// New builds an event with the catalogue description.
func New(k Kind, at time.Time) Event {
	return Event{Kind: k, Description: Describe(k), Timestamp: at.UTC()}
}

func (e Event) String() string {
	return fmt.Sprintf("%s (%s) at %s", e.Kind, e.Description, e.Timestamp.Format(time.RFC3339))
}

// Sink receives violation events. Delivery is fire-and-forget: Record
// must not block the caller on I/O.
type Sink interface {
	Record(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

// Record implements Sink.
func (f SinkFunc) Record(e Event) { f(e) }

// MultiSink fans an event out to several sinks.
type MultiSink []Sink

// Record implements Sink.
func (m MultiSink) Record(e Event) {
	for _, s := range m {
		if s != nil {
			s.Record(e)
		}
	}
}

// LogSink writes each event to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

// Record implements Sink.
func (s LogSink) Record(e Event) {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Warn("violation",
		"type", string(e.Kind),
		"description", e.Description,
		"rank", Rank(e.Kind),
		"session", e.SessionID,
		"timestamp", e.Timestamp.Format(time.RFC3339Nano),
	)
}

// DefaultRecorderSize bounds the in-memory history.
const DefaultRecorderSize = 500

// Recorder keeps the most recent events in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.RWMutex
	events []Event
	size   int
	counts map[Kind]int
}

// NewRecorder creates a recorder holding up to size events.
func NewRecorder(size int) *Recorder {
	if size <= 0 {
		size = DefaultRecorderSize
	}
	return &Recorder{
		events: make([]Event, 0, size),
		size:   size,
		counts: make(map[Kind]int),
	}
}

// Record implements Sink.
func (r *Recorder) Record(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) == r.size {
		copy(r.events, r.events[1:])
		r.events = r.events[:r.size-1]
	}
	r.events = append(r.events, e)
	r.counts[e.Kind]++
}

// Events returns the retained events, oldest first.
func (r *Recorder) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Event(nil), r.events...)
}

// Counts returns the number of events seen per kind, including evicted ones.
func (r *Recorder) Counts() map[Kind]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[Kind]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

// Len returns the number of retained events.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}
