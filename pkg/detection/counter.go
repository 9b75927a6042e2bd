package detection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teslashibe/go-proctor/pkg/presence"
)

// FrameSource yields the most recent camera frame
type FrameSource interface {
	LatestFrame() (jpeg []byte, at time.Time, ok bool)
}

// FrameStore holds the latest frame submitted by a client. Safe for
// concurrent use.
type FrameStore struct {
	mu    sync.RWMutex
	frame []byte
	at    time.Time
}

// Put replaces the stored frame
func (s *FrameStore) Put(jpeg []byte, at time.Time) {
	s.mu.Lock()
	s.frame = jpeg
	s.at = at
	s.mu.Unlock()
}

// LatestFrame returns the stored frame, if any
func (s *FrameStore) LatestFrame() ([]byte, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame, s.at, len(s.frame) > 0
}

// Counter is a presence source that counts faces on the latest frame
type Counter struct {
	det    Detector
	frames FrameSource
	maxAge time.Duration
	now    func() time.Time
}

// NewCounter creates a face counter. Frames older than maxAge are treated
// as unavailable; zero disables the check.
func NewCounter(det Detector, frames FrameSource, maxAge time.Duration, now func() time.Time) *Counter {
	if now == nil {
		now = time.Now
	}
	return &Counter{det: det, frames: frames, maxAge: maxAge, now: now}
}

// FaceCount implements presence.Source
func (c *Counter) FaceCount(ctx context.Context) (int, error) {
	if c.det == nil {
		return 0, presence.ErrUnavailable
	}
	jpeg, at, ok := c.frames.LatestFrame()
	if !ok {
		return 0, presence.ErrUnavailable
	}
	if c.maxAge > 0 && c.now().Sub(at) > c.maxAge {
		return 0, presence.ErrUnavailable
	}

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		dets, err := c.det.Detect(jpeg)
		done <- result{len(dets), err}
	}()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return 0, fmt.Errorf("detection: count faces: %w", r.err)
		}
		return r.n, nil
	}
}
