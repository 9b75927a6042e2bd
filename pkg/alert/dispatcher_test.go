package alert

import (
	"testing"
	"time"

	"github.com/teslashibe/go-proctor/pkg/clock"
)

var epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

type recordingRenderer struct {
	shown   []Alert
	cleared int
}

func (r *recordingRenderer) ShowAlert(a Alert) { r.shown = append(r.shown, a) }
func (r *recordingRenderer) ClearAlert()       { r.cleared++ }

type recordingPlayer struct {
	cues []Cue
}

func (p *recordingPlayer) PlayCue(c Cue) { p.cues = append(p.cues, c) }

func newTestDispatcher() (*Dispatcher, *clock.Manual, *recordingRenderer, *recordingPlayer) {
	clk := clock.NewManual(epoch)
	r := &recordingRenderer{}
	p := &recordingPlayer{}
	return NewDispatcher(DefaultConfig(), clk, r, p), clk, r, p
}

func TestRaise_SeverityCue(t *testing.T) {
	tests := []struct {
		sev  Severity
		want Cue
	}{
		{Warning, CueWarning},
		{Violation, CueViolation},
		{Critical, CueCritical},
	}

	for _, tc := range tests {
		t.Run(tc.sev.String(), func(t *testing.T) {
			d, _, _, p := newTestDispatcher()
			d.Raise("msg", tc.sev)
			if len(p.cues) != 1 || p.cues[0] != tc.want {
				t.Errorf("cues = %v, want [%v]", p.cues, tc.want)
			}
		})
	}
}

func TestRaise_Supersedes(t *testing.T) {
	d, clk, r, _ := newTestDispatcher()

	d.Raise("first", Warning)
	clk.Advance(time.Second)
	d.Raise("second", Critical)

	cur := d.Current()
	if cur.Message != "second" || cur.Severity != Critical || !cur.Visible {
		t.Fatalf("Current() = %+v, want visible critical 'second'", cur)
	}
	if want := epoch.Add(time.Second + DefaultDisplayDuration); !cur.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v (fresh window)", cur.ExpiresAt, want)
	}
	if clk.Pending() != 1 {
		t.Errorf("pending dismissals = %d, want 1", clk.Pending())
	}

	// The first alert's window would have closed here; the second must still show.
	clk.Advance(2600 * time.Millisecond)
	if r.cleared != 0 || !d.Current().Visible {
		t.Fatal("alert dismissed by the superseded timer")
	}

	clk.Advance(time.Second)
	if r.cleared != 1 {
		t.Errorf("cleared = %d, want exactly 1", r.cleared)
	}
	if d.Current().Visible {
		t.Error("alert still visible after its window")
	}
}

func TestRaise_MutedStillShows(t *testing.T) {
	d, clk, r, p := newTestDispatcher()
	d.SetMuted(true)

	d.Raise("Looking away from screen!", Violation)

	if len(p.cues) != 0 {
		t.Errorf("cues while muted = %v, want none", p.cues)
	}
	if len(r.shown) != 1 || !d.Current().Visible {
		t.Fatal("muted alert was not shown")
	}

	clk.Advance(DefaultDisplayDuration)
	if r.cleared != 1 {
		t.Errorf("cleared = %d, want 1 (timeout still applies when muted)", r.cleared)
	}
}

func TestToggleMute(t *testing.T) {
	d, _, r, p := newTestDispatcher()

	if !d.ToggleMute() {
		t.Fatal("ToggleMute() = false, want true")
	}
	if len(p.cues) != 0 {
		t.Errorf("cues on mute = %v, want none", p.cues)
	}
	if got := r.shown[len(r.shown)-1].Message; got != "Alerts muted" {
		t.Errorf("announcement = %q, want %q", got, "Alerts muted")
	}

	if d.ToggleMute() {
		t.Fatal("ToggleMute() = true, want false")
	}
	if len(p.cues) != 2 || p.cues[0] != CueClick || p.cues[1] != CueWarning {
		t.Errorf("cues on unmute = %v, want [click warning]", p.cues)
	}
	if got := r.shown[len(r.shown)-1].Message; got != "Alerts unmuted" {
		t.Errorf("announcement = %q, want %q", got, "Alerts unmuted")
	}
}

func TestCue_Muted(t *testing.T) {
	d, _, _, p := newTestDispatcher()
	d.SetMuted(true)
	d.Cue(CueWarning)
	if len(p.cues) != 0 {
		t.Errorf("cues = %v, want none", p.cues)
	}
}

func TestSeverity_Text(t *testing.T) {
	for _, s := range []Severity{Warning, Violation, Critical} {
		b, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", s, err)
		}
		var back Severity
		if err := back.UnmarshalText(b); err != nil || back != s {
			t.Errorf("UnmarshalText(%q) = %v, %v", b, back, err)
		}
	}

	if _, err := ParseSeverity("loud"); err == nil {
		t.Error("ParseSeverity(loud) succeeded, want error")
	}
	if !(Warning < Violation && Violation < Critical) {
		t.Error("severities are not ordered")
	}
}
