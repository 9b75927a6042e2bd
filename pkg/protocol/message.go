// Package protocol defines the WebSocket message types exchanged between a
// proctored browser session and the server.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Server messages
	TypeGaze      MessageType = "gaze"      // Gaze sample
	TypeFaces     MessageType = "faces"     // Client-side face count
	TypeFrame     MessageType = "frame"     // Camera frame for server-side detection
	TypeCalibrate MessageType = "calibrate" // Begin or restart calibration
	TypeConfirm   MessageType = "confirm"   // Calibration point clicked
	TypeMute      MessageType = "mute"      // Set or toggle mute

	// Server → Client messages
	TypeAlert        MessageType = "alert"         // Show alert banner
	TypeAlertClear   MessageType = "alert_clear"   // Hide alert banner
	TypeCue          MessageType = "cue"           // Play audio cue
	TypeStatus       MessageType = "status"        // Status text and indicators
	TypeViolation    MessageType = "violation"     // Violation recorded
	TypeTarget       MessageType = "target"        // Show calibration target
	TypeTargetsClear MessageType = "targets_clear" // Remove calibration targets
	TypeCalibration  MessageType = "calibration"   // Calibration progress
	TypeMuteState    MessageType = "mute_state"    // Current mute state
	TypeError        MessageType = "error"         // Rejected message

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, ErrMissingType
	}
	return &msg, nil
}

// =============================================================================
// Client → Server Message Types
// =============================================================================

// GazeData is one gaze estimate in viewport pixels
type GazeData struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	ViewportW float64   `json:"viewport_w"`
	ViewportH float64   `json:"viewport_h"`
	Zone      *ZoneData `json:"zone,omitempty"` // Question area; omitted when not laid out
}

// ZoneData is the question area rectangle in viewport pixels
type ZoneData struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// FacesData carries a face count measured by the client
type FacesData struct {
	Count int `json:"count"`
}

// FrameData carries a camera frame for server-side face counting
type FrameData struct {
	Image string `json:"image"` // base64 JPEG or data URL
}

// CalibrateData requests calibration. Restart bypasses the control gate.
type CalibrateData struct {
	Restart bool `json:"restart,omitempty"`
}

// ConfirmData reports a click on a calibration target
type ConfirmData struct {
	Index int `json:"index"`
}

// MuteData sets the mute state, or toggles it when Muted is absent
type MuteData struct {
	Muted *bool `json:"muted,omitempty"`
}

// =============================================================================
// Server → Client Message Types
// =============================================================================

// AlertData is the visible alert banner
type AlertData struct {
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	ExpiresAt int64  `json:"expires_at"` // Unix milliseconds
}

// CueData asks the client to play a short tone
type CueData struct {
	Name   string  `json:"name"`
	Volume float64 `json:"volume"`
}

// StatusData is the status text plus readiness indicators
type StatusData struct {
	Text       string          `json:"text"`
	Indicators map[string]bool `json:"indicators"`
}

// ViolationData describes a recorded violation
type ViolationData struct {
	Kind        string    `json:"type"`
	Description string    `json:"description"`
	Rank        string    `json:"rank"`
	Timestamp   time.Time `json:"timestamp"`
	SessionID   string    `json:"session_id,omitempty"`
}

// TargetData is a calibration target in viewport fractions
type TargetData struct {
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// CalibrationData reports calibration progress
type CalibrationData struct {
	State          string `json:"state"`
	Index          int    `json:"index"`
	Total          int    `json:"total"`
	ControlEnabled bool   `json:"control_enabled"`
}

// MuteStateData reports the mute state
type MuteStateData struct {
	Muted bool `json:"muted"`
}

// ErrorData explains why an inbound message was rejected
type ErrorData struct {
	Message string `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
