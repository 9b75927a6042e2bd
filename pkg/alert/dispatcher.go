package alert

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-proctor/internal/log"
	"github.com/teslashibe/go-proctor/pkg/clock"
)

// DefaultDisplayDuration is how long an alert stays visible.
const DefaultDisplayDuration = 3500 * time.Millisecond

// Alert is the single live notification.
type Alert struct {
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Visible   bool      `json:"visible"`
	RaisedAt  time.Time `json:"raised_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Renderer displays and clears the live alert.
type Renderer interface {
	ShowAlert(a Alert)
	ClearAlert()
}

// CuePlayer plays sound cues.
type CuePlayer interface {
	PlayCue(c Cue)
}

// Config holds dispatcher tunables.
type Config struct {
	DisplayDuration time.Duration `json:"display_duration"`
}

// DefaultConfig returns the standard 3.5 s display window.
func DefaultConfig() Config {
	return Config{DisplayDuration: DefaultDisplayDuration}
}

// Dispatcher owns the live alert and the mute flag.
// It must only be used from the owning session loop.
type Dispatcher struct {
	cfg      Config
	sched    clock.Scheduler
	dismiss  *clock.Task
	renderer Renderer
	player   CuePlayer
	logger   *slog.Logger

	current Alert
	muted   bool
}

// NewDispatcher creates a dispatcher. Nil collaborators are replaced with no-ops.
func NewDispatcher(cfg Config, sched clock.Scheduler, renderer Renderer, player CuePlayer) *Dispatcher {
	if cfg.DisplayDuration <= 0 {
		cfg.DisplayDuration = DefaultDisplayDuration
	}
	if renderer == nil {
		renderer = nopRenderer{}
	}
	if player == nil {
		player = nopPlayer{}
	}
	return &Dispatcher{
		cfg:      cfg,
		sched:    sched,
		dismiss:  clock.NewTask(sched),
		renderer: renderer,
		player:   player,
		logger:   log.L(),
	}
}

// SetLogger replaces the dispatcher's logger.
func (d *Dispatcher) SetLogger(l *slog.Logger) {
	if l != nil {
		d.logger = l
	}
}

// Raise replaces the live alert and re-arms the dismissal window.
// Muting suppresses the cue only; the alert is always shown.
func (d *Dispatcher) Raise(message string, sev Severity) {
	now := d.sched.Now()
	d.current = Alert{
		Message:   message,
		Severity:  sev,
		Visible:   true,
		RaisedAt:  now,
		ExpiresAt: now.Add(d.cfg.DisplayDuration),
	}

	d.renderer.ShowAlert(d.current)
	d.Cue(CueFor(sev))
	d.logger.Debug("alert raised", "message", message, "severity", sev.String(), "muted", d.muted)

	d.dismiss.Arm(d.cfg.DisplayDuration, d.expire)
}

// Cue plays c unless muted.
func (d *Dispatcher) Cue(c Cue) {
	if d.muted {
		return
	}
	d.player.PlayCue(c)
}

// Current returns the live alert. Visible is false once dismissed.
func (d *Dispatcher) Current() Alert {
	return d.current
}

// Muted reports the mute flag.
func (d *Dispatcher) Muted() bool {
	return d.muted
}

// SetMuted sets the mute flag without announcing it.
func (d *Dispatcher) SetMuted(muted bool) {
	d.muted = muted
}

// ToggleMute flips the mute flag and announces the new state. Unmuting also
// plays a click so the user hears that sound is back.
func (d *Dispatcher) ToggleMute() bool {
	d.muted = !d.muted
	if !d.muted {
		d.Cue(CueClick)
	}
	if d.muted {
		d.Raise("Alerts muted", Warning)
	} else {
		d.Raise("Alerts unmuted", Warning)
	}
	return d.muted
}

// Close cancels a pending dismissal.
func (d *Dispatcher) Close() {
	d.dismiss.Cancel()
}

func (d *Dispatcher) expire() {
	d.current.Visible = false
	d.renderer.ClearAlert()
}

type nopRenderer struct{}

func (nopRenderer) ShowAlert(Alert) {}
func (nopRenderer) ClearAlert()     {}

type nopPlayer struct{}

func (nopPlayer) PlayCue(Cue) {}
