package remote

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-proctor/internal/log"
	"github.com/teslashibe/go-proctor/pkg/alert"
	"github.com/teslashibe/go-proctor/pkg/detection"
	"github.com/teslashibe/go-proctor/pkg/presence"
)

// MsgFocusScreen is raised when the server sees the face looking away
const MsgFocusScreen = "Please focus on the screen!"

// DefaultTrackInterval is the period between frame uploads
const DefaultTrackInterval = 600 * time.Millisecond

// Analyzer is implemented by Client
type Analyzer interface {
	Analyze(ctx context.Context, jpeg []byte) (detection.Report, error)
}

// Alerter receives focus warnings
type Alerter interface {
	Raise(message string, sev alert.Severity)
}

// Tracker periodically uploads the latest frame and warns when the
// primary face is looking away. Errors are logged and skipped. Its last
// report doubles as a presence source, so each frame is uploaded once.
type Tracker struct {
	analyzer Analyzer
	frames   detection.FrameSource
	alerter  Alerter
	interval time.Duration
	timeout  time.Duration
	maxAge   time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu   sync.Mutex
	last detection.Report
	at   time.Time
	seen bool
}

// NewTracker creates a tracker. A zero interval uses DefaultTrackInterval.
func NewTracker(a Analyzer, frames detection.FrameSource, alerter Alerter, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = DefaultTrackInterval
	}
	return &Tracker{
		analyzer: a,
		frames:   frames,
		alerter:  alerter,
		interval: interval,
		timeout:  interval * 4,
		maxAge:   interval * 5,
		now:      time.Now,
		logger:   log.With("component", "remote-tracker"),
	}
}

// SetLogger replaces the tracker's logger
func (t *Tracker) SetLogger(l *slog.Logger) {
	if l != nil {
		t.logger = l
	}
}

// Run uploads frames until ctx is cancelled
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick performs one upload
func (t *Tracker) Tick(ctx context.Context) {
	jpeg, _, ok := t.frames.LatestFrame()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	r, err := t.analyzer.Analyze(ctx, jpeg)
	if err != nil {
		t.logger.Debug("frame analysis failed", "error", err)
		return
	}

	t.mu.Lock()
	t.last, t.at, t.seen = r, t.now(), true
	t.mu.Unlock()

	if r.OffScreen() {
		t.alerter.Raise(MsgFocusScreen, alert.Warning)
	}
}

// Last returns the most recent report
func (t *Tracker) Last() (detection.Report, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.seen
}

// FaceCount implements presence.Source from the latest upload. No report,
// or one older than five upload periods, is unavailable.
func (t *Tracker) FaceCount(ctx context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.seen || t.now().Sub(t.at) > t.maxAge {
		return 0, presence.ErrUnavailable
	}
	return t.last.FaceCount, nil
}
