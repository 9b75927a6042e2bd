// Package presence turns a periodic face count into multiple-persons violations.
package presence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-proctor/internal/log"
	"github.com/teslashibe/go-proctor/pkg/alert"
	"github.com/teslashibe/go-proctor/pkg/status"
	"github.com/teslashibe/go-proctor/pkg/violation"
)

// MsgMultiplePersons is the alert raised when the counter fires.
const MsgMultiplePersons = "Multiple persons detected!"

// ErrUnavailable means the source has no reading this cycle. It is never
// the same as zero faces.
var ErrUnavailable = errors.New("presence: face count unavailable")

// Source produces a face count once per poll.
type Source interface {
	FaceCount(ctx context.Context) (int, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (int, error)

// FaceCount implements Source.
func (f SourceFunc) FaceCount(ctx context.Context) (int, error) { return f(ctx) }

// Config holds presence tunables.
type Config struct {
	Interval  time.Duration `json:"interval"`  // Poll period
	Threshold int           `json:"threshold"` // Counter above this fires
	Timeout   time.Duration `json:"timeout"`   // Per-poll source deadline
}

// DefaultConfig polls every 3 s and fires on the ninth consecutive crowded poll.
func DefaultConfig() Config {
	return Config{
		Interval:  3 * time.Second,
		Threshold: 8,
		Timeout:   2 * time.Second,
	}
}

// Alerter raises alerts.
type Alerter interface {
	Raise(message string, sev alert.Severity)
}

// Counter is a saturating up/down counter that fires above a high-water mark.
type Counter struct {
	count int
	high  int
}

// Up increments and reports whether the mark was crossed, resetting if so.
func (c *Counter) Up() bool {
	c.count++
	if c.count > c.high {
		c.count = 0
		return true
	}
	return false
}

// Down decrements, floored at zero.
func (c *Counter) Down() {
	if c.count > 0 {
		c.count--
	}
}

// Count returns the current value.
func (c *Counter) Count() int {
	return c.count
}

// Stats summarizes polling so far.
type Stats struct {
	Count   int `json:"count"`
	Polls   int `json:"polls"`
	Skipped int `json:"skipped"`
}

// Monitor consumes presence polls. It must only be used from the owning
// session loop.
type Monitor struct {
	cfg      Config
	alerter  Alerter
	sink     violation.Sink
	reporter status.Reporter
	now      func() time.Time
	logger   *slog.Logger

	counter   Counter
	polls     int
	skipped   int
	seen      bool
	available bool
}

// NewMonitor creates a presence monitor.
func NewMonitor(cfg Config, alerter Alerter, sink violation.Sink, reporter status.Reporter, now func() time.Time) *Monitor {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if now == nil {
		now = time.Now
	}
	if sink == nil {
		sink = violation.SinkFunc(func(violation.Event) {})
	}
	if reporter == nil {
		reporter = status.Discard{}
	}
	return &Monitor{
		cfg:      cfg,
		alerter:  alerter,
		sink:     sink,
		reporter: reporter,
		now:      now,
		logger:   log.L(),
		counter:  Counter{high: cfg.Threshold},
	}
}

// SetLogger replaces the monitor's logger.
func (m *Monitor) SetLogger(l *slog.Logger) {
	if l != nil {
		m.logger = l
	}
}

// Config returns the effective configuration.
func (m *Monitor) Config() Config {
	return m.cfg
}

// OnPresencePoll consumes one poll. ok=false means the source had no
// reading; the poll is skipped and the counter is left alone.
func (m *Monitor) OnPresencePoll(faceCount int, ok bool) {
	m.track(ok)
	if !ok {
		m.skipped++
		return
	}
	m.polls++

	if faceCount > 1 {
		if m.counter.Up() {
			m.alerter.Raise(MsgMultiplePersons, alert.Critical)
			m.sink.Record(violation.New(violation.MultiplePersons, m.now()))
			m.logger.Debug("presence violation", "faces", faceCount)
		}
		return
	}
	m.counter.Down()
}

// Stats returns counters for inspection.
func (m *Monitor) Stats() Stats {
	return Stats{Count: m.counter.Count(), Polls: m.polls, Skipped: m.skipped}
}

// Blind reports whether the last poll had no reading.
func (m *Monitor) Blind() bool {
	return m.seen && !m.available
}

// track surfaces availability transitions on the status board.
func (m *Monitor) track(ok bool) {
	if m.seen && m.available == ok {
		return
	}
	m.seen = true
	m.available = ok
	m.reporter.SetIndicator(status.Face, ok)
	if !ok {
		m.reporter.SetStatus(status.DetectorUnavailable)
		m.logger.Warn("face count unavailable, presence monitoring blind")
	}
}

// Reported is a Source fed by client-side detection. A reading older than
// MaxAge, or no reading at all, is unavailable. Safe for concurrent use.
type Reported struct {
	mu     sync.Mutex
	count  int
	at     time.Time
	has    bool
	maxAge time.Duration
	now    func() time.Time
}

// NewReported creates a reported source.
func NewReported(maxAge time.Duration, now func() time.Time) *Reported {
	if now == nil {
		now = time.Now
	}
	return &Reported{maxAge: maxAge, now: now}
}

// Report stores the latest count. Negative counts are ignored.
func (r *Reported) Report(count int) {
	if count < 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count = count
	r.at = r.now()
	r.has = true
}

// Invalidate forgets the latest count, e.g. when the client reports its
// detector failed.
func (r *Reported) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.has = false
}

// FaceCount implements Source.
func (r *Reported) FaceCount(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.has {
		return 0, ErrUnavailable
	}
	if r.maxAge > 0 && r.now().Sub(r.at) > r.maxAge {
		return 0, ErrUnavailable
	}
	return r.count, nil
}

// Chain asks each source in turn and returns the first reading. Sources
// reporting ErrUnavailable are skipped; any other error stops the chain.
type Chain []Source

// FaceCount implements Source.
func (c Chain) FaceCount(ctx context.Context) (int, error) {
	for _, s := range c {
		n, err := s.FaceCount(ctx)
		if errors.Is(err, ErrUnavailable) {
			continue
		}
		return n, err
	}
	return 0, ErrUnavailable
}
