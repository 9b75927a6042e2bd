package calibration

import (
	"testing"
	"time"

	"github.com/teslashibe/go-proctor/pkg/alert"
	"github.com/teslashibe/go-proctor/pkg/clock"
	"github.com/teslashibe/go-proctor/pkg/status"
)

type fakeDisplay struct {
	shown    []int
	visible  []int
	progress []Progress
}

func (d *fakeDisplay) ShowTarget(i int, p Point) {
	d.shown = append(d.shown, i)
	d.visible = append(d.visible, i)
}
func (d *fakeDisplay) ClearTargets()       { d.visible = nil }
func (d *fakeDisplay) Progress(p Progress) { d.progress = append(d.progress, p) }

type fakeChimer struct {
	cues []alert.Cue
}

func (c *fakeChimer) Cue(cue alert.Cue) { c.cues = append(c.cues, cue) }

func newTestController() (*Controller, *clock.Manual, *fakeDisplay, *fakeChimer, *status.Board) {
	clk := clock.NewManual(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	d := &fakeDisplay{}
	ch := &fakeChimer{}
	b := status.NewBoard(clk.Now)
	return New(DefaultConfig(), clk, d, ch, b), clk, d, ch, b
}

func TestDefaultPoints(t *testing.T) {
	pts := DefaultPoints()
	if len(pts) != 9 {
		t.Fatalf("len = %d, want 9", len(pts))
	}
	if pts[0] != (Point{0.1, 0.1}) || pts[4] != (Point{0.5, 0.5}) || pts[8] != (Point{0.9, 0.9}) {
		t.Errorf("unexpected grid %v", pts)
	}
	if pts[1] != (Point{0.5, 0.1}) {
		t.Errorf("grid is not row-major: pts[1] = %v", pts[1])
	}
}

func TestController_FullSequence(t *testing.T) {
	c, clk, d, ch, b := newTestController()
	completions := 0
	c.OnComplete(func() { completions++ })

	c.Start()
	if c.State() != AwaitingConfirmation || c.Index() != 0 {
		t.Fatalf("after Start: state=%v index=%d", c.State(), c.Index())
	}

	for i := 0; i < 8; i++ {
		if !c.Confirm() {
			t.Fatalf("Confirm() #%d rejected", i)
		}
		if c.Completed() {
			t.Fatalf("completed after %d confirmations", i+1)
		}
		if len(d.visible) != 1 || d.visible[0] != i+1 {
			t.Fatalf("visible targets = %v, want [%d]", d.visible, i+1)
		}
	}

	c.Confirm()
	if c.State() != Complete || !c.Completed() {
		t.Fatalf("after 9 confirmations: state=%v completed=%v", c.State(), c.Completed())
	}
	if completions != 1 {
		t.Errorf("completions = %d, want 1", completions)
	}
	if len(d.visible) != 0 {
		t.Errorf("targets still visible after completion: %v", d.visible)
	}
	if b.Text() != status.CalibrationComplete {
		t.Errorf("status = %q", b.Text())
	}

	// 9 clicks followed by one success chime.
	if len(ch.cues) != 10 || ch.cues[9] != alert.CueWarning {
		t.Errorf("cues = %v", ch.cues)
	}

	if c.ControlEnabled() {
		t.Fatal("start control enabled immediately after completion")
	}
	clk.Advance(799 * time.Millisecond)
	if c.ControlEnabled() {
		t.Fatal("start control enabled before 800ms")
	}
	clk.Advance(time.Millisecond)
	if !c.ControlEnabled() {
		t.Fatal("start control not re-enabled after 800ms")
	}
}

func TestController_ConfirmWhenNotAwaiting(t *testing.T) {
	c, _, _, ch, _ := newTestController()

	if c.Confirm() {
		t.Error("Confirm() in Idle accepted")
	}
	if c.State() != Idle || c.Index() != 0 {
		t.Errorf("state=%v index=%d after idle confirm", c.State(), c.Index())
	}

	c.Start()
	for i := 0; i < 9; i++ {
		c.Confirm()
	}
	if c.Confirm() {
		t.Error("Confirm() after Complete accepted")
	}
	if c.Index() != 9 {
		t.Errorf("index = %d, want 9", c.Index())
	}
	if len(ch.cues) != 10 {
		t.Errorf("cues = %d, want 10 (no cue for rejected confirm)", len(ch.cues))
	}
}

func TestController_ConfirmPointIndex(t *testing.T) {
	c, _, _, _, _ := newTestController()
	c.Start()

	if c.ConfirmPoint(1) {
		t.Error("ConfirmPoint(1) accepted while awaiting 0")
	}
	if !c.ConfirmPoint(0) {
		t.Error("ConfirmPoint(0) rejected")
	}
	if c.ConfirmPoint(0) {
		t.Error("stale ConfirmPoint(0) accepted")
	}
	if c.Index() != 1 {
		t.Errorf("index = %d, want 1", c.Index())
	}
}

func TestController_RestartMidSequence(t *testing.T) {
	c, _, d, _, _ := newTestController()
	c.Start()
	c.Confirm()
	c.Confirm()
	c.Confirm()

	c.Start()
	if c.Index() != 0 || c.State() != AwaitingConfirmation {
		t.Fatalf("after restart: index=%d state=%v", c.Index(), c.State())
	}
	if len(d.visible) != 1 || d.visible[0] != 0 {
		t.Errorf("visible targets = %v, want only [0]", d.visible)
	}
}

func TestController_RestartWithdrawsTrust(t *testing.T) {
	c, clk, _, _, _ := newTestController()
	c.Start()
	for i := 0; i < 9; i++ {
		c.Confirm()
	}
	clk.Advance(time.Second)

	if !c.RequestStart() {
		t.Fatal("RequestStart() rejected with control enabled")
	}
	if c.Completed() {
		t.Error("still trusted after restarting calibration")
	}
}

func TestController_RequestStartDebounce(t *testing.T) {
	c, clk, _, _, _ := newTestController()

	if !c.RequestStart() {
		t.Fatal("first RequestStart() rejected")
	}
	if c.RequestStart() {
		t.Error("RequestStart() accepted while calibration in progress")
	}

	for i := 0; i < 9; i++ {
		c.Confirm()
	}
	if c.RequestStart() {
		t.Error("RequestStart() accepted inside the 800ms debounce")
	}

	clk.Advance(DefaultRestartDelay)
	if !c.RequestStart() {
		t.Error("RequestStart() rejected after debounce")
	}
}

func TestController_ProgressPublished(t *testing.T) {
	c, _, d, _, _ := newTestController()
	c.Start()
	c.Confirm()

	last := d.progress[len(d.progress)-1]
	if last.State != AwaitingConfirmation || last.Index != 1 || last.Total != 9 {
		t.Errorf("last progress = %+v", last)
	}
}
