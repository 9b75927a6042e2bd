// Package calibration sequences the fixed calibration targets and decides
// when gaze data can be trusted.
package calibration

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-proctor/internal/log"
	"github.com/teslashibe/go-proctor/pkg/alert"
	"github.com/teslashibe/go-proctor/pkg/clock"
	"github.com/teslashibe/go-proctor/pkg/status"
)

// Point is a target position normalized to the viewport, (0,0) top left.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DefaultPoints returns the 3x3 grid at 10%, 50% and 90% of each axis,
// row by row from the top left.
func DefaultPoints() []Point {
	stops := []float64{0.1, 0.5, 0.9}
	points := make([]Point, 0, len(stops)*len(stops))
	for _, y := range stops {
		for _, x := range stops {
			points = append(points, Point{X: x, Y: y})
		}
	}
	return points
}

// State is the controller's position in the sequence.
type State int

const (
	Idle State = iota
	AwaitingConfirmation
	Complete
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingConfirmation:
		return "awaiting_confirmation"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Progress describes the sequence for renderers.
type Progress struct {
	State          State `json:"state"`
	Index          int   `json:"index"`
	Total          int   `json:"total"`
	ControlEnabled bool  `json:"control_enabled"`
}

// Display renders targets and progress.
type Display interface {
	ShowTarget(index int, p Point)
	ClearTargets()
	Progress(p Progress)
}

// Chimer plays cues, honoring the mute flag.
type Chimer interface {
	Cue(c alert.Cue)
}

// DefaultRestartDelay keeps the start control disabled briefly after completion.
const DefaultRestartDelay = 800 * time.Millisecond

// Config holds controller tunables.
type Config struct {
	Points       []Point       `json:"points,omitempty"`
	RestartDelay time.Duration `json:"restart_delay"`
}

// DefaultConfig returns the nine-point grid and the 800 ms debounce.
func DefaultConfig() Config {
	return Config{
		Points:       DefaultPoints(),
		RestartDelay: DefaultRestartDelay,
	}
}

// Controller walks Idle -> AwaitingConfirmation(0..N-1) -> Complete.
// It must only be used from the owning session loop.
type Controller struct {
	points   []Point
	delay    time.Duration
	display  Display
	chimer   Chimer
	reporter status.Reporter
	reenable *clock.Task
	logger   *slog.Logger

	state          State
	index          int
	completed      bool
	controlEnabled bool

	onComplete []func()
}

// New creates an idle controller. Nil collaborators are replaced with no-ops.
func New(cfg Config, sched clock.Scheduler, display Display, chimer Chimer, reporter status.Reporter) *Controller {
	points := cfg.Points
	if len(points) == 0 {
		points = DefaultPoints()
	}
	delay := cfg.RestartDelay
	if delay <= 0 {
		delay = DefaultRestartDelay
	}
	if display == nil {
		display = nopDisplay{}
	}
	if chimer == nil {
		chimer = nopChimer{}
	}
	if reporter == nil {
		reporter = status.Discard{}
	}
	return &Controller{
		points:         append([]Point(nil), points...),
		delay:          delay,
		display:        display,
		chimer:         chimer,
		reporter:       reporter,
		reenable:       clock.NewTask(sched),
		logger:         log.L(),
		controlEnabled: true,
	}
}

// SetLogger replaces the controller's logger.
func (c *Controller) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// OnComplete registers fn to run each time the sequence completes.
func (c *Controller) OnComplete(fn func()) {
	c.onComplete = append(c.onComplete, fn)
}

// Start (re)starts the sequence from target 0. Any rendered target is
// removed before the first one is shown, so a stale target can never be
// confirmed. Starting also withdraws trust until the new sequence completes.
func (c *Controller) Start() {
	c.reenable.Cancel()
	c.display.ClearTargets()

	c.index = 0
	c.completed = false
	c.state = AwaitingConfirmation
	c.controlEnabled = false

	c.reporter.SetStatus(status.CalibrationPrompt)
	c.reporter.SetIndicator(status.Calibration, false)
	c.logger.Info("calibration started", "points", len(c.points))

	c.display.ShowTarget(0, c.points[0])
	c.publish()
}

// RequestStart starts calibration on behalf of the start control. It is
// ignored while the control is disabled.
func (c *Controller) RequestStart() bool {
	if !c.controlEnabled {
		return false
	}
	c.Start()
	return true
}

// Confirm accepts the currently displayed target. It is a no-op unless a
// confirmation is awaited.
func (c *Controller) Confirm() bool {
	if c.state != AwaitingConfirmation {
		return false
	}

	c.chimer.Cue(alert.CueClick)
	c.display.ClearTargets()
	c.index++

	if c.index == len(c.points) {
		c.complete()
		return true
	}

	c.display.ShowTarget(c.index, c.points[c.index])
	c.publish()
	return true
}

// ConfirmPoint confirms target i. Confirmations for any other index are ignored.
func (c *Controller) ConfirmPoint(i int) bool {
	if c.state != AwaitingConfirmation || i != c.index {
		return false
	}
	return c.Confirm()
}

// Completed reports whether gaze data is trusted.
func (c *Controller) Completed() bool {
	return c.completed
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Index returns the next target to confirm.
func (c *Controller) Index() int {
	return c.index
}

// Points returns a copy of the target list.
func (c *Controller) Points() []Point {
	return append([]Point(nil), c.points...)
}

// ControlEnabled reports whether the start control accepts requests.
func (c *Controller) ControlEnabled() bool {
	return c.controlEnabled
}

// Progress returns the current progress.
func (c *Controller) Progress() Progress {
	return Progress{
		State:          c.state,
		Index:          c.index,
		Total:          len(c.points),
		ControlEnabled: c.controlEnabled,
	}
}

// Close cancels the pending control re-enable.
func (c *Controller) Close() {
	c.reenable.Cancel()
}

func (c *Controller) complete() {
	c.state = Complete
	c.completed = true

	c.reporter.SetStatus(status.CalibrationComplete)
	c.reporter.SetIndicator(status.Calibration, true)
	c.reporter.SetIndicator(status.Eye, true)
	c.chimer.Cue(alert.CueWarning)
	c.logger.Info("calibration complete")

	c.reenable.Arm(c.delay, func() {
		c.controlEnabled = true
		c.publish()
	})
	c.publish()

	for _, fn := range c.onComplete {
		fn()
	}
}

func (c *Controller) publish() {
	c.display.Progress(c.Progress())
}

type nopDisplay struct{}

func (nopDisplay) ShowTarget(int, Point) {}
func (nopDisplay) ClearTargets()         {}
func (nopDisplay) Progress(Progress)     {}

type nopChimer struct{}

func (nopChimer) Cue(alert.Cue) {}
