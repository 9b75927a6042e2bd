// Package session runs the attention monitors of one proctored exam
// session on a single event loop and exposes them to transports.
package session

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-proctor/internal/log"
	"github.com/teslashibe/go-proctor/pkg/alert"
	"github.com/teslashibe/go-proctor/pkg/calibration"
	"github.com/teslashibe/go-proctor/pkg/clock"
	"github.com/teslashibe/go-proctor/pkg/detection"
	"github.com/teslashibe/go-proctor/pkg/gaze"
	"github.com/teslashibe/go-proctor/pkg/metrics"
	"github.com/teslashibe/go-proctor/pkg/presence"
	"github.com/teslashibe/go-proctor/pkg/remote"
	"github.com/teslashibe/go-proctor/pkg/status"
	"github.com/teslashibe/go-proctor/pkg/violation"
)

// Options configures a new session
type Options struct {
	ID       string
	Config   Config
	Notifier Notifier

	// Sinks receive every violation in addition to the session's own
	// history and log.
	Sinks []violation.Sink

	// Source overrides the face count source. By default the session
	// uses client reports, then Detector on submitted frames, then the
	// remote server.
	Source presence.Source

	// Detector counts faces on frames submitted with SubmitFrame.
	Detector detection.Detector

	// RemoteURL points at a frame analysis server.
	RemoteURL string

	// Scheduler and Now replace the real clock in tests. Callbacks of a
	// custom Scheduler must run on the session loop (see Do).
	Scheduler clock.Scheduler
	Now       func() time.Time

	Logger *slog.Logger
}

// Snapshot is a point-in-time view of a session
type Snapshot struct {
	ID          string                 `json:"id"`
	CreatedAt   time.Time              `json:"created_at"`
	Status      status.Snapshot        `json:"status"`
	Calibration calibration.Progress   `json:"calibration"`
	Alert       *alert.Alert           `json:"alert,omitempty"`
	Muted       bool                   `json:"muted"`
	Gaze        gaze.Counts            `json:"gaze"`
	Presence    presence.Stats         `json:"presence"`
	Violations  map[violation.Kind]int `json:"violations"`
}

// Session owns one set of monitors. Component state is touched only on
// the loop goroutine started by Run; every exported method is safe for
// concurrent use.
type Session struct {
	id        string
	cfg       Config
	createdAt time.Time
	now       func() time.Time
	logger    *slog.Logger

	posts     chan func()
	stop      chan struct{}
	done      chan struct{}
	started   chan struct{}
	closeOnce sync.Once
	startOnce sync.Once

	out      outbound
	board    *status.Board
	alerts   *alert.Dispatcher
	calib    *calibration.Controller
	gaze     *gaze.Monitor
	presence *presence.Monitor
	history  *violation.Recorder

	source   presence.Source
	reported *presence.Reported
	frames   *detection.FrameStore
	tracker  *remote.Tracker

	// Loop-owned
	runCtx  context.Context
	polling bool
}

// New wires a session. Call Run to start its loop.
func New(opts Options) *Session {
	cfg := opts.Config
	if cfg.Presence.Interval <= 0 {
		cfg.Presence.Interval = presence.DefaultConfig().Interval
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.L()
	}
	logger = logger.With("session", opts.ID)

	notifier := opts.Notifier
	if notifier == nil {
		notifier = discardNotifier{}
	}

	s := &Session{
		id:        opts.ID,
		cfg:       cfg,
		createdAt: now(),
		now:       now,
		logger:    logger,
		posts:     make(chan func(), 256),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		started:   make(chan struct{}),
		out:       outbound{n: notifier, logger: logger},
		history:   violation.NewRecorder(cfg.HistorySize),
		reported:  presence.NewReported(cfg.presenceMaxAge(), now),
		frames:    &detection.FrameStore{},
	}

	sched := opts.Scheduler
	if sched == nil {
		sched = clock.NewLoop(func(fn func()) { s.Post(fn) })
	}

	sinks := violation.MultiSink{violation.LogSink{Logger: logger}, s.history, s.out}
	sinks = append(sinks, opts.Sinks...)
	sink := violation.SinkFunc(func(e violation.Event) {
		e.SessionID = s.id
		sinks.Record(e)
	})

	s.board = status.NewBoard(now)
	s.board.OnChange(s.out.Status)

	s.alerts = alert.NewDispatcher(cfg.Alert, sched, s.out, s.out)
	s.alerts.SetLogger(logger)

	s.calib = calibration.New(cfg.Calibration, sched, s.out, s.alerts, s.board)
	s.calib.SetLogger(logger)

	s.gaze = gaze.NewMonitor(cfg.Gaze, s.calib, s.alerts, sink, s.board, now)
	s.gaze.SetLogger(logger)

	s.presence = presence.NewMonitor(cfg.Presence, s.alerts, sink, s.board, now)
	s.presence.SetLogger(logger)

	chain := presence.Chain{s.reported}
	if opts.Detector != nil {
		chain = append(chain, detection.NewCounter(opts.Detector, s.frames, cfg.presenceMaxAge(), now))
	}
	if opts.RemoteURL != "" {
		client, err := remote.New(opts.RemoteURL, remote.WithSessionID(s.id), remote.WithFrames(s.frames))
		if err != nil {
			logger.Warn("remote analysis disabled", "error", err)
		} else {
			s.tracker = remote.NewTracker(client, s.frames, loopAlerter{s}, remote.DefaultTrackInterval)
			s.tracker.SetLogger(logger)
			chain = append(chain, s.tracker)
		}
	}
	s.source = chain
	if opts.Source != nil {
		s.source = opts.Source
	}

	return s
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was created
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Done is closed once the loop has stopped
func (s *Session) Done() <-chan struct{} { return s.done }

// Run processes posted work and presence polls until ctx is cancelled or
// Close is called. It must be called exactly once.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.alerts.Close()
		s.calib.Close()
		close(s.done)
		s.logger.Debug("session loop stopped")
	}()
	s.runCtx = ctx
	s.startOnce.Do(func() { close(s.started) })

	if s.tracker != nil {
		go s.tracker.Run(ctx)
	}

	ticker := time.NewTicker(s.cfg.Presence.Interval)
	defer ticker.Stop()

	s.sync()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case fn := <-s.posts:
			fn()
		case <-ticker.C:
			s.poll()
		}
	}
}

// Close stops the loop and waits for it to exit
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.stop) })
	select {
	case <-s.started:
		<-s.done
	default:
	}
}

// Post queues fn to run on the session loop
func (s *Session) Post(fn func()) error {
	select {
	case <-s.done:
		return ErrClosed
	case <-s.stop:
		return ErrClosed
	default:
	}
	select {
	case s.posts <- fn:
		return nil
	case <-s.done:
		return ErrClosed
	case <-s.stop:
		return ErrClosed
	}
}

// Do runs fn on the session loop and waits for it to finish
func (s *Session) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if err := s.Post(func() {
		fn()
		close(finished)
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitGaze feeds one gaze sample. A nil or empty zone means the whole
// viewport is the question area. Samples without a viewport or with
// non-finite coordinates are rejected with ErrInvalidGaze.
func (s *Session) SubmitGaze(x, y, viewportW, viewportH float64, zone *gaze.Rect) error {
	if !finite(x, y, viewportW, viewportH) || viewportW <= 0 || viewportH <= 0 {
		metrics.GazeSample(false)
		return ErrInvalidGaze
	}
	if zone != nil && !finite(zone.Left, zone.Top, zone.Right, zone.Bottom) {
		metrics.GazeSample(false)
		return ErrInvalidGaze
	}
	return s.Post(func() {
		metrics.GazeSample(s.gaze.Ready())
		z := gaze.Rect{Right: viewportW, Bottom: viewportH}
		if zone != nil && !zone.Empty() {
			z = *zone
		}
		s.gaze.OnGazeSample(x, y, viewportW, viewportH, z)
	})
}

// ReportFaces stores a face count measured by the client. A negative count
// marks the client detector as failed.
func (s *Session) ReportFaces(count int) error {
	if s.closed() {
		return ErrClosed
	}
	if count < 0 {
		s.reported.Invalidate()
		return nil
	}
	s.reported.Report(count)
	return nil
}

// SubmitFrame stores the latest camera frame for server-side counting
func (s *Session) SubmitFrame(jpeg []byte) error {
	if s.closed() {
		return ErrClosed
	}
	if len(jpeg) == 0 {
		return detection.ErrNoImage
	}
	s.frames.Put(jpeg, s.now())
	return nil
}

// RequestCalibration starts calibration from the UI control. It is
// ignored while the control is disabled.
func (s *Session) RequestCalibration() error {
	return s.Post(func() { s.calib.RequestStart() })
}

// RestartCalibration starts calibration unconditionally
func (s *Session) RestartCalibration() error {
	return s.Post(s.calib.Start)
}

// ConfirmPoint confirms the calibration target with the given index
func (s *Session) ConfirmPoint(index int) error {
	return s.Post(func() { s.calib.ConfirmPoint(index) })
}

// ToggleMute flips the mute flag
func (s *Session) ToggleMute() error {
	return s.Post(func() {
		s.muteChanged(s.alerts.ToggleMute())
	})
}

// SetMuted sets the mute flag
func (s *Session) SetMuted(muted bool) error {
	return s.Post(func() {
		s.alerts.SetMuted(muted)
		s.muteChanged(muted)
	})
}

// muteChanged runs on the loop
func (s *Session) muteChanged(muted bool) {
	s.board.SetIndicator(status.Sound, !muted)
	s.out.MuteState(muted)
}

// Sync re-sends the current state to clients
func (s *Session) Sync() error {
	return s.Post(s.sync)
}

// PollNow runs a presence poll without waiting for the ticker
func (s *Session) PollNow() error {
	return s.Post(s.poll)
}

// Snapshot captures the session state
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.Do(ctx, func() {
		snap = Snapshot{
			ID:          s.id,
			CreatedAt:   s.createdAt,
			Status:      s.board.Snapshot(),
			Calibration: s.calib.Progress(),
			Muted:       s.alerts.Muted(),
			Gaze:        s.gaze.Counts(),
			Presence:    s.presence.Stats(),
			Violations:  s.history.Counts(),
		}
		if a := s.alerts.Current(); a.Visible {
			snap.Alert = &a
		}
	})
	return snap, err
}

// Violations returns the session's recent violations, oldest first
func (s *Session) Violations() []violation.Event {
	return s.history.Events()
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s *Session) closed() bool {
	select {
	case <-s.stop:
		return true
	case <-s.done:
		return true
	default:
		return false
	}
}

// sync runs on the loop
func (s *Session) sync() {
	s.out.Status(s.board.Snapshot())
	s.out.Progress(s.calib.Progress())
	s.out.MuteState(s.alerts.Muted())
	if a := s.alerts.Current(); a.Visible {
		s.out.ShowAlert(a)
	}
}

// poll runs on the loop. The source is queried off-loop and its result
// posted back; at most one query is in flight.
func (s *Session) poll() {
	if s.polling {
		return
	}
	s.polling = true

	ctx := s.runCtx
	timeout := s.presence.Config().Timeout
	go func() {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		n, err := s.source.FaceCount(ctx)
		if perr := s.Post(func() {
			s.polling = false
			s.onPoll(n, err)
		}); perr != nil {
			s.logger.Debug("presence poll dropped", "error", perr)
		}
	}()
}

func (s *Session) onPoll(n int, err error) {
	switch {
	case err == nil:
		metrics.PresencePoll(metrics.ResultOK)
	case errors.Is(err, presence.ErrUnavailable):
		metrics.PresencePoll(metrics.ResultUnavailable)
	default:
		metrics.PresencePoll(metrics.ResultError)
		s.logger.Debug("face count failed", "error", err)
	}
	s.presence.OnPresencePoll(n, err == nil)
}

// loopAlerter raises alerts from other goroutines through the loop
type loopAlerter struct{ s *Session }

func (a loopAlerter) Raise(msg string, sev alert.Severity) {
	if err := a.s.Post(func() { a.s.alerts.Raise(msg, sev) }); err != nil {
		a.s.logger.Debug("alert dropped", "message", msg, "error", err)
	}
}
