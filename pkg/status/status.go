// Package status keeps the human readable focus status and the readiness
// indicators shown next to it.
package status

import "time"

// Indicator names.
const (
	Face        = "face"
	Eye         = "eye"
	Calibration = "calibration"
	Sound       = "sound"
)

// Status phrases shared by the monitors.
const (
	Boot                = "Calibration required. Click \"Calibrate\" to begin!"
	CalibrationPrompt   = "Click each red dot for calibration."
	CalibrationComplete = "Calibration complete! Starting advanced tracking..."
	GoodFocus           = "Good focus!"
	FocusScreen         = "Please focus on screen"
	LookAtQuestion      = "Please look at question"
	DetectorUnavailable = "Basic tracking only - face detector unavailable"
)

// Reporter receives status transitions.
type Reporter interface {
	SetStatus(text string)
	SetIndicator(name string, ok bool)
}

// Snapshot is a copy of the board.
type Snapshot struct {
	Text       string          `json:"text"`
	Indicators map[string]bool `json:"indicators"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Board is a Reporter that remembers the latest status and forwards
// changes to an optional listener. Not safe for concurrent use.
type Board struct {
	text       string
	indicators map[string]bool
	updatedAt  time.Time
	now        func() time.Time
	onChange   func(Snapshot)
}

// NewBoard creates a board showing the boot prompt with every indicator off
// except sound.
func NewBoard(now func() time.Time) *Board {
	if now == nil {
		now = time.Now
	}
	return &Board{
		text: Boot,
		indicators: map[string]bool{
			Face:        false,
			Eye:         false,
			Calibration: false,
			Sound:       true,
		},
		updatedAt: now(),
		now:       now,
	}
}

// OnChange registers the listener called after every effective change.
func (b *Board) OnChange(fn func(Snapshot)) {
	b.onChange = fn
}

// SetStatus implements Reporter. Repeating the current text is not a change.
func (b *Board) SetStatus(text string) {
	if text == b.text {
		return
	}
	b.text = text
	b.changed()
}

// SetIndicator implements Reporter.
func (b *Board) SetIndicator(name string, ok bool) {
	if cur, exists := b.indicators[name]; exists && cur == ok {
		return
	}
	b.indicators[name] = ok
	b.changed()
}

// Text returns the current status phrase.
func (b *Board) Text() string {
	return b.text
}

// Snapshot returns a copy of the board.
func (b *Board) Snapshot() Snapshot {
	ind := make(map[string]bool, len(b.indicators))
	for k, v := range b.indicators {
		ind[k] = v
	}
	return Snapshot{Text: b.text, Indicators: ind, UpdatedAt: b.updatedAt}
}

func (b *Board) changed() {
	b.updatedAt = b.now()
	if b.onChange != nil {
		b.onChange(b.Snapshot())
	}
}

// Discard is a Reporter that ignores everything.
type Discard struct{}

func (Discard) SetStatus(string)          {}
func (Discard) SetIndicator(string, bool) {}
