package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(violationsTotal.WithLabelValues("screen_away"))
	Violation("screen_away")
	Violation("screen_away")
	if got := testutil.ToFloat64(violationsTotal.WithLabelValues("screen_away")) - before; got != 2 {
		t.Errorf("violations: got %v, want 2", got)
	}

	acc := testutil.ToFloat64(gazeSamplesTotal.WithLabelValues(ResultAccepted))
	rej := testutil.ToFloat64(gazeSamplesTotal.WithLabelValues(ResultRejected))
	GazeSample(true)
	GazeSample(false)
	GazeSample(false)
	if got := testutil.ToFloat64(gazeSamplesTotal.WithLabelValues(ResultAccepted)) - acc; got != 1 {
		t.Errorf("accepted: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(gazeSamplesTotal.WithLabelValues(ResultRejected)) - rej; got != 2 {
		t.Errorf("rejected: got %v, want 2", got)
	}
}

func TestActiveSessions(t *testing.T) {
	before := testutil.ToFloat64(activeSessions)
	SessionOpened()
	SessionOpened()
	SessionClosed()
	if got := testutil.ToFloat64(activeSessions) - before; got != 1 {
		t.Errorf("active sessions: got %v, want 1", got)
	}
}
