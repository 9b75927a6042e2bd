package presence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-proctor/pkg/alert"
	"github.com/teslashibe/go-proctor/pkg/status"
	"github.com/teslashibe/go-proctor/pkg/violation"
)

var now = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

type fakeAlerter struct {
	sevs []alert.Severity
	msgs []string
}

func (a *fakeAlerter) Raise(msg string, sev alert.Severity) {
	a.msgs = append(a.msgs, msg)
	a.sevs = append(a.sevs, sev)
}

func newTestMonitor() (*Monitor, *fakeAlerter, *violation.Recorder, *status.Board) {
	a := &fakeAlerter{}
	rec := violation.NewRecorder(0)
	b := status.NewBoard(func() time.Time { return now })
	return NewMonitor(DefaultConfig(), a, rec, b, func() time.Time { return now }), a, rec, b
}

func TestMonitor_NineCrowdedPollsFireOnce(t *testing.T) {
	m, a, rec, _ := newTestMonitor()

	for i := 0; i < 8; i++ {
		m.OnPresencePoll(2, true)
	}
	if rec.Len() != 0 {
		t.Fatalf("fired after 8 polls")
	}

	m.OnPresencePoll(2, true)
	if rec.Counts()[violation.MultiplePersons] != 1 {
		t.Fatalf("multiple_persons events = %d, want 1", rec.Counts()[violation.MultiplePersons])
	}
	if len(a.sevs) != 1 || a.sevs[0] != alert.Critical || a.msgs[0] != MsgMultiplePersons {
		t.Errorf("raised %v %v, want one critical", a.msgs, a.sevs)
	}
	if m.Stats().Count != 0 {
		t.Errorf("counter = %d after firing, want 0", m.Stats().Count)
	}
}

func TestMonitor_SinglePollDelaysFire(t *testing.T) {
	m, _, rec, _ := newTestMonitor()

	for i := 0; i < 8; i++ {
		m.OnPresencePoll(2, true)
	}
	m.OnPresencePoll(1, true)
	if got := m.Stats().Count; got != 7 {
		t.Fatalf("counter = %d after decrement, want 7", got)
	}

	m.OnPresencePoll(2, true)
	if rec.Len() != 0 {
		t.Fatal("fired on the 9th crowded poll despite the interleaved single face")
	}
	m.OnPresencePoll(2, true)
	if rec.Len() != 1 {
		t.Errorf("events = %d, want 1 after 10 crowded polls", rec.Len())
	}
}

func TestMonitor_DecayFloorsAtZero(t *testing.T) {
	m, _, _, _ := newTestMonitor()
	m.OnPresencePoll(2, true)
	m.OnPresencePoll(0, true)
	m.OnPresencePoll(1, true)
	m.OnPresencePoll(0, true)

	if got := m.Stats().Count; got != 0 {
		t.Errorf("counter = %d, want 0", got)
	}
}

func TestMonitor_UnavailableSkipped(t *testing.T) {
	m, _, _, b := newTestMonitor()

	for i := 0; i < 3; i++ {
		m.OnPresencePoll(2, true)
	}
	for i := 0; i < 5; i++ {
		m.OnPresencePoll(0, false)
	}

	st := m.Stats()
	if st.Count != 3 {
		t.Errorf("counter = %d, want 3 (unavailable is not zero faces)", st.Count)
	}
	if st.Skipped != 5 || st.Polls != 3 {
		t.Errorf("stats = %+v", st)
	}
	if !m.Blind() {
		t.Error("Blind() = false after unavailable polls")
	}
	snap := b.Snapshot()
	if snap.Text != status.DetectorUnavailable || snap.Indicators[status.Face] {
		t.Errorf("board = %+v, want blind status", snap)
	}

	m.OnPresencePoll(1, true)
	if m.Blind() || !b.Snapshot().Indicators[status.Face] {
		t.Error("recovery not reflected")
	}
}

func TestReported(t *testing.T) {
	clock := now
	r := NewReported(6*time.Second, func() time.Time { return clock })
	ctx := context.Background()

	if _, err := r.FaceCount(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("FaceCount before report: err = %v, want ErrUnavailable", err)
	}

	r.Report(2)
	if n, err := r.FaceCount(ctx); err != nil || n != 2 {
		t.Fatalf("FaceCount = %d, %v", n, err)
	}

	r.Report(-1)
	if n, _ := r.FaceCount(ctx); n != 2 {
		t.Errorf("negative report overwrote count: %d", n)
	}

	clock = clock.Add(7 * time.Second)
	if _, err := r.FaceCount(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("stale reading: err = %v, want ErrUnavailable", err)
	}

	r.Report(0)
	if n, err := r.FaceCount(ctx); err != nil || n != 0 {
		t.Errorf("zero faces must be available: %d, %v", n, err)
	}

	r.Invalidate()
	if _, err := r.FaceCount(ctx); !errors.Is(err, ErrUnavailable) {
		t.Errorf("after Invalidate: err = %v", err)
	}
}

func TestChain(t *testing.T) {
	unavailable := SourceFunc(func(context.Context) (int, error) { return 0, ErrUnavailable })
	two := SourceFunc(func(context.Context) (int, error) { return 2, nil })
	broken := SourceFunc(func(context.Context) (int, error) { return 0, errors.New("camera gone") })

	tests := []struct {
		name    string
		chain   Chain
		want    int
		wantErr error
	}{
		{"empty", Chain{}, 0, ErrUnavailable},
		{"skips unavailable", Chain{unavailable, two}, 2, nil},
		{"all unavailable", Chain{unavailable, unavailable}, 0, ErrUnavailable},
		{"error stops", Chain{broken, two}, 0, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, err := tc.chain.FaceCount(context.Background())
			if tc.name == "error stops" {
				if err == nil || errors.Is(err, ErrUnavailable) {
					t.Errorf("got err=%v, want the source error", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) || n != tc.want {
				t.Errorf("got (%d, %v), want (%d, %v)", n, err, tc.want, tc.wantErr)
			}
		})
	}
}
