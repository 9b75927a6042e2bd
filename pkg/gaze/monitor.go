// Package gaze turns a raw gaze coordinate stream into screen-away and
// off-task violations.
package gaze

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-proctor/internal/log"
	"github.com/teslashibe/go-proctor/pkg/alert"
	"github.com/teslashibe/go-proctor/pkg/status"
	"github.com/teslashibe/go-proctor/pkg/violation"
)

// Alert messages.
const (
	MsgScreenAway = "Looking away from screen!"
	MsgTaskAway   = "Focus on the question area!"
)

// Gate tells the monitor whether gaze data is trusted.
type Gate interface {
	Completed() bool
}

// Alerter raises alerts and plays cues.
type Alerter interface {
	Raise(message string, sev alert.Severity)
	Cue(c alert.Cue)
}

// Counts exposes the hysteresis counters.
type Counts struct {
	Screen int `json:"screen"`
	Task   int `json:"task"`
}

// Monitor evaluates gaze samples. It must only be used from the owning
// session loop.
type Monitor struct {
	cfg      Config
	gate     Gate
	alerter  Alerter
	sink     violation.Sink
	reporter status.Reporter
	now      func() time.Time
	logger   *slog.Logger

	smoother *Smoother
	screen   Counter
	task     Counter
}

// NewMonitor creates a monitor. now defaults to time.Now; a nil reporter or
// sink discards.
func NewMonitor(cfg Config, gate Gate, alerter Alerter, sink violation.Sink, reporter status.Reporter, now func() time.Time) *Monitor {
	cfg = cfg.normalize()
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
		gate:     gate,
		alerter:  alerter,
		sink:     sink,
		reporter: reporter,
		now:      now,
		logger:   log.L(),
		smoother: NewSmoother(cfg.Smoothing),
		screen:   NewCounter(cfg.ScreenSoft, cfg.ScreenHard),
		task:     NewCounter(cfg.TaskSoft, cfg.TaskHard),
	}
}

// SetLogger replaces the monitor's logger.
func (m *Monitor) SetLogger(l *slog.Logger) {
	if l != nil {
		m.logger = l
	}
}

// Ready reports whether samples are currently evaluated.
func (m *Monitor) Ready() bool {
	return m.gate != nil && m.gate.Completed()
}

// OnGazeSample evaluates one raw sample in viewport pixels against the
// screen edges and the task zone. Samples arriving before calibration
// completes are dropped without touching any state.
func (m *Monitor) OnGazeSample(x, y, viewportW, viewportH float64, focusZone Rect) {
	if !m.Ready() {
		return
	}

	sx, sy := m.smoother.Update(x, y)

	if nearEdge(sx, sy, viewportW, viewportH, m.cfg.EdgeMargin) {
		switch m.screen.Out() {
		case Fire:
			m.violate(violation.ScreenAway, MsgScreenAway)
		case Soft:
			m.reporter.SetStatus(status.FocusScreen)
			m.alerter.Cue(alert.CueWarning)
		}
	} else {
		m.screen.In()
	}

	zone := focusZone.Expand(m.cfg.ZoneMarginX, m.cfg.ZoneMarginY)
	if !zone.Contains(sx, sy) {
		switch m.task.Out() {
		case Fire:
			m.violate(violation.QuestionAway, MsgTaskAway)
		case Soft:
			m.reporter.SetStatus(status.LookAtQuestion)
			m.alerter.Cue(alert.CueWarning)
		}
	} else {
		m.task.In()
		m.reporter.SetStatus(status.GoodFocus)
	}
}

// Counts returns the current counter values.
func (m *Monitor) Counts() Counts {
	return Counts{Screen: m.screen.Count(), Task: m.task.Count()}
}

// Smoothed returns the filter state.
func (m *Monitor) Smoothed() (float64, float64, bool) {
	return m.smoother.Position()
}

func (m *Monitor) violate(kind violation.Kind, msg string) {
	m.alerter.Raise(msg, alert.Violation)
	m.sink.Record(violation.New(kind, m.now()))
	m.logger.Debug("gaze violation", "type", string(kind))
}
