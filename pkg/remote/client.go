// Package remote talks to a frame analysis server and turns its answers
// into presence readings and focus warnings.
package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-proctor/internal/httpc"
	"github.com/teslashibe/go-proctor/pkg/detection"
	"github.com/teslashibe/go-proctor/pkg/presence"
)

// FramePath is the analysis endpoint relative to the server URL
const FramePath = "/frame"

// Client posts frames to a remote analysis server
type Client struct {
	baseURL   string
	sessionID string
	http      *http.Client
	frames    detection.FrameSource
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the shared HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithSessionID tags every request with a session id
func WithSessionID(id string) Option {
	return func(cl *Client) { cl.sessionID = id }
}

// WithFrames sets the frame source used by FaceCount
func WithFrames(f detection.FrameSource) Option {
	return func(cl *Client) { cl.frames = f }
}

// New creates a client for the server at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrNoURL
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		sessionID: "anon",
		http:      httpc.Client,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type frameRequest struct {
	Image     string `json:"image"`
	SessionID string `json:"session_id"`
}

// frameResponse mirrors detection.Report with an optional face count
type frameResponse struct {
	Timestamp string           `json:"timestamp"`
	FaceCount *int             `json:"face_count"`
	Faces     []detection.Face `json:"faces"`
	Alert     string           `json:"alert"`
	Error     string           `json:"error"`
}

// Analyze sends one JPEG frame and returns the server's report
func (c *Client) Analyze(ctx context.Context, jpeg []byte) (detection.Report, error) {
	req := frameRequest{
		Image:     "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg),
		SessionID: c.sessionID,
	}

	resp, err := httpc.PostJSON(ctx, c.http, c.baseURL+FramePath, req)
	if err != nil {
		return detection.Report{}, fmt.Errorf("remote: analyze: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return detection.Report{}, fmt.Errorf("remote: read response: %w", err)
	}

	var fr frameResponse
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &fr) == nil && fr.Error != "" {
			msg = fr.Error
		}
		return detection.Report{}, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, &fr); err != nil {
		return detection.Report{}, fmt.Errorf("remote: decode response: %w", err)
	}

	return fr.report(), nil
}

func (fr frameResponse) report() detection.Report {
	r := detection.Report{Faces: fr.Faces, Alert: fr.Alert}
	if r.Faces == nil {
		r.Faces = []detection.Face{}
	}
	if t, err := time.Parse(time.RFC3339Nano, fr.Timestamp); err == nil {
		r.Timestamp = t
	}
	switch {
	case fr.FaceCount != nil:
		r.FaceCount = *fr.FaceCount
	case fr.Alert == detection.AlertMultiplePersons:
		r.FaceCount = max(2, len(fr.Faces))
	default:
		r.FaceCount = len(fr.Faces)
	}
	return r
}

// FaceCount implements presence.Source using the latest frame
func (c *Client) FaceCount(ctx context.Context) (int, error) {
	if c.frames == nil {
		return 0, presence.ErrUnavailable
	}
	jpeg, _, ok := c.frames.LatestFrame()
	if !ok {
		return 0, presence.ErrUnavailable
	}
	r, err := c.Analyze(ctx, jpeg)
	if err != nil {
		return 0, err
	}
	return r.FaceCount, nil
}
