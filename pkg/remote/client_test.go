package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-proctor/pkg/alert"
	"github.com/teslashibe/go-proctor/pkg/detection"
	"github.com/teslashibe/go-proctor/pkg/presence"
)

func frameServer(t *testing.T, status int, body string) (*httptest.Server, *frameRequest) {
	t.Helper()
	var got frameRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, FramePath, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrNoURL)
}

func TestAnalyze(t *testing.T) {
	srv, got := frameServer(t, http.StatusOK, `{
		"timestamp": "2026-01-01T12:00:00Z",
		"face_count": 1,
		"faces": [{"bbox": [10, 20, 100, 120], "gaze_score": 0.9, "status": "look_right"}]
	}`)

	c, err := New(srv.URL+"/", WithSessionID("s-1"))
	require.NoError(t, err)

	r, err := c.Analyze(context.Background(), []byte{0xff, 0xd8})
	require.NoError(t, err)

	assert.Equal(t, "s-1", got.SessionID)
	assert.True(t, strings.HasPrefix(got.Image, "data:image/jpeg;base64,"))

	assert.Equal(t, 1, r.FaceCount)
	require.Len(t, r.Faces, 1)
	assert.Equal(t, detection.StatusLookRight, r.Faces[0].Status)
	assert.True(t, r.OffScreen())
	assert.Equal(t, 2026, r.Timestamp.Year())
}

func TestAnalyze_FaceCountFallbacks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"no face alert", `{"alert":"no_face","faces":[]}`, 0},
		{"multiple persons without count", `{"alert":"multiple_persons"}`, 2},
		{"count from faces", `{"faces":[{"status":"on_screen"}]}`, 1},
		{"explicit count wins", `{"face_count":3,"faces":[]}`, 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := frameServer(t, http.StatusOK, tc.body)
			c, err := New(srv.URL)
			require.NoError(t, err)

			r, err := c.Analyze(context.Background(), []byte{1})
			require.NoError(t, err)
			assert.Equal(t, tc.want, r.FaceCount)
			assert.NotNil(t, r.Faces)
		})
	}
}

func TestAnalyze_APIError(t *testing.T) {
	srv, _ := frameServer(t, http.StatusBadRequest, `{"error":"no image"}`)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Analyze(context.Background(), []byte{1})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "no image", apiErr.Message)
	assert.True(t, apiErr.IsBadRequest())
	assert.False(t, apiErr.IsRetryable())
}

func TestAPIError_Classes(t *testing.T) {
	assert.True(t, (&APIError{StatusCode: 503}).IsServerError())
	assert.True(t, (&APIError{StatusCode: 503}).IsRetryable())
	assert.True(t, (&APIError{StatusCode: 429}).IsRetryable())
	assert.False(t, (&APIError{StatusCode: 404}).IsRetryable())
	assert.Contains(t, (&APIError{StatusCode: 500, Message: "boom"}).Error(), "500")
}

func TestFaceCount(t *testing.T) {
	srv, _ := frameServer(t, http.StatusOK, `{"face_count":2,"alert":"multiple_persons"}`)

	frames := &detection.FrameStore{}
	c, err := New(srv.URL, WithFrames(frames))
	require.NoError(t, err)

	var _ presence.Source = c

	_, err = c.FaceCount(context.Background())
	assert.ErrorIs(t, err, presence.ErrUnavailable)

	frames.Put([]byte{0xff}, time.Now())
	n, err := c.FaceCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	noFrames, err := New(srv.URL)
	require.NoError(t, err)
	_, err = noFrames.FaceCount(context.Background())
	assert.ErrorIs(t, err, presence.ErrUnavailable)
}

type stubAnalyzer struct {
	report detection.Report
	err    error
}

func (s stubAnalyzer) Analyze(context.Context, []byte) (detection.Report, error) {
	return s.report, s.err
}

type recordingAlerter struct {
	mu     sync.Mutex
	raised []string
}

func (r *recordingAlerter) Raise(msg string, sev alert.Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raised = append(r.raised, msg+"/"+sev.String())
}

func TestTracker_Tick(t *testing.T) {
	frames := &detection.FrameStore{}
	offScreen := detection.Report{FaceCount: 1, Faces: []detection.Face{{Status: detection.StatusLookLeft}}}
	onScreen := detection.Report{FaceCount: 1, Faces: []detection.Face{{Status: detection.StatusOnScreen}}}

	t.Run("no frame does nothing", func(t *testing.T) {
		a := &recordingAlerter{}
		tr := NewTracker(stubAnalyzer{report: offScreen}, frames, a, 0)
		tr.Tick(context.Background())
		assert.Empty(t, a.raised)
		_, ok := tr.Last()
		assert.False(t, ok)
	})

	frames.Put([]byte{0xff}, time.Now())

	t.Run("off screen warns", func(t *testing.T) {
		a := &recordingAlerter{}
		tr := NewTracker(stubAnalyzer{report: offScreen}, frames, a, 0)
		tr.Tick(context.Background())
		assert.Equal(t, []string{MsgFocusScreen + "/warning"}, a.raised)
		last, ok := tr.Last()
		assert.True(t, ok)
		assert.Equal(t, 1, last.FaceCount)
	})

	t.Run("on screen is quiet", func(t *testing.T) {
		a := &recordingAlerter{}
		NewTracker(stubAnalyzer{report: onScreen}, frames, a, 0).Tick(context.Background())
		assert.Empty(t, a.raised)
	})

	t.Run("errors are swallowed", func(t *testing.T) {
		a := &recordingAlerter{}
		tr := NewTracker(stubAnalyzer{err: errors.New("down")}, frames, a, 0)
		tr.Tick(context.Background())
		assert.Empty(t, a.raised)
		_, ok := tr.Last()
		assert.False(t, ok)
	})
}

func TestTracker_RunStopsOnCancel(t *testing.T) {
	frames := &detection.FrameStore{}
	frames.Put([]byte{0xff}, time.Now())
	a := &recordingAlerter{}
	tr := NewTracker(stubAnalyzer{report: detection.Report{Faces: []detection.Face{{Status: detection.StatusLookRight}}}}, frames, a, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return len(a.raised) > 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTracker_FaceCount(t *testing.T) {
	frames := &detection.FrameStore{}
	frames.Put([]byte{0xff}, time.Now())
	now := time.Unix(1000, 0)

	tr := NewTracker(stubAnalyzer{report: detection.Report{FaceCount: 2}}, frames, &recordingAlerter{}, 100*time.Millisecond)
	tr.now = func() time.Time { return now }

	_, err := tr.FaceCount(context.Background())
	assert.ErrorIs(t, err, presence.ErrUnavailable, "no upload yet")

	tr.Tick(context.Background())
	n, err := tr.FaceCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	now = now.Add(600 * time.Millisecond)
	_, err = tr.FaceCount(context.Background())
	assert.ErrorIs(t, err, presence.ErrUnavailable, "stale report")
}
