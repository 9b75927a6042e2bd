package session

import (
	"log/slog"

	"github.com/teslashibe/go-proctor/pkg/alert"
	"github.com/teslashibe/go-proctor/pkg/calibration"
	"github.com/teslashibe/go-proctor/pkg/metrics"
	"github.com/teslashibe/go-proctor/pkg/protocol"
	"github.com/teslashibe/go-proctor/pkg/status"
	"github.com/teslashibe/go-proctor/pkg/violation"
)

// Notifier receives outbound messages for the session's clients.
// Notify is called from the session loop and must not block.
type Notifier interface {
	Notify(msg *protocol.Message)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(msg *protocol.Message)

// Notify implements Notifier
func (f NotifierFunc) Notify(msg *protocol.Message) { f(msg) }

type discardNotifier struct{}

func (discardNotifier) Notify(*protocol.Message) {}

// outbound turns component callbacks into protocol messages. It implements
// alert.Renderer, alert.CuePlayer and calibration.Display.
type outbound struct {
	n      Notifier
	logger *slog.Logger
}

func (o outbound) send(msg *protocol.Message, err error) {
	if err != nil {
		o.logger.Error("encode outbound message", "error", err)
		return
	}
	o.n.Notify(msg)
}

func (o outbound) ShowAlert(a alert.Alert) {
	metrics.Alert(a.Severity.String())
	o.send(protocol.NewAlertMessage(a.Message, a.Severity.String(), a.ExpiresAt))
}

func (o outbound) ClearAlert() {
	o.send(protocol.NewMessage(protocol.TypeAlertClear, nil))
}

func (o outbound) PlayCue(c alert.Cue) {
	o.send(protocol.NewCueMessage(c.Name, c.Volume))
}

func (o outbound) ShowTarget(i int, p calibration.Point) {
	o.send(protocol.NewTargetMessage(i, p.X, p.Y))
}

func (o outbound) ClearTargets() {
	o.send(protocol.NewMessage(protocol.TypeTargetsClear, nil))
}

func (o outbound) Progress(p calibration.Progress) {
	o.send(protocol.NewMessage(protocol.TypeCalibration, protocol.CalibrationData{
		State:          p.State.String(),
		Index:          p.Index,
		Total:          p.Total,
		ControlEnabled: p.ControlEnabled,
	}))
}

func (o outbound) Status(s status.Snapshot) {
	o.send(protocol.NewStatusMessage(s.Text, s.Indicators))
}

func (o outbound) MuteState(muted bool) {
	o.send(protocol.NewMuteStateMessage(muted))
}

// Record implements violation.Sink
func (o outbound) Record(e violation.Event) {
	metrics.Violation(string(e.Kind))
	o.send(protocol.NewMessage(protocol.TypeViolation, ViolationData(e)))
}

// ViolationData converts an event to its wire form
func ViolationData(e violation.Event) protocol.ViolationData {
	return protocol.ViolationData{
		Kind:        string(e.Kind),
		Description: e.Description,
		Rank:        violation.Rank(e.Kind),
		Timestamp:   e.Timestamp,
		SessionID:   e.SessionID,
	}
}
