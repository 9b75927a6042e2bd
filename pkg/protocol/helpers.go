package protocol

import "time"

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewGazeMessage creates a gaze sample message
func NewGazeMessage(x, y, viewportW, viewportH float64, zone *ZoneData) (*Message, error) {
	return NewMessage(TypeGaze, GazeData{X: x, Y: y, ViewportW: viewportW, ViewportH: viewportH, Zone: zone})
}

// NewFacesMessage creates a face count message
func NewFacesMessage(count int) (*Message, error) {
	return NewMessage(TypeFaces, FacesData{Count: count})
}

// NewConfirmMessage creates a calibration confirmation message
func NewConfirmMessage(index int) (*Message, error) {
	return NewMessage(TypeConfirm, ConfirmData{Index: index})
}

// NewAlertMessage creates an alert banner message
func NewAlertMessage(message, severity string, expiresAt time.Time) (*Message, error) {
	return NewMessage(TypeAlert, AlertData{
		Message:   message,
		Severity:  severity,
		ExpiresAt: expiresAt.UnixMilli(),
	})
}

// NewCueMessage creates an audio cue message
func NewCueMessage(name string, volume float64) (*Message, error) {
	return NewMessage(TypeCue, CueData{Name: name, Volume: volume})
}

// NewStatusMessage creates a status message
func NewStatusMessage(text string, indicators map[string]bool) (*Message, error) {
	return NewMessage(TypeStatus, StatusData{Text: text, Indicators: indicators})
}

// NewTargetMessage creates a calibration target message
func NewTargetMessage(index int, x, y float64) (*Message, error) {
	return NewMessage(TypeTarget, TargetData{Index: index, X: x, Y: y})
}

// NewMuteStateMessage creates a mute state message
func NewMuteStateMessage(muted bool) (*Message, error) {
	return NewMessage(TypeMuteState, MuteStateData{Muted: muted})
}

// NewErrorMessage creates an error message
func NewErrorMessage(err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: err.Error()})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

func parse[T any](m *Message) (*T, error) {
	var data T
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetGazeData extracts a gaze sample from a message
func (m *Message) GetGazeData() (*GazeData, error) { return parse[GazeData](m) }

// GetFacesData extracts a face count from a message
func (m *Message) GetFacesData() (*FacesData, error) { return parse[FacesData](m) }

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) { return parse[FrameData](m) }

// GetCalibrateData extracts a calibration request from a message
func (m *Message) GetCalibrateData() (*CalibrateData, error) { return parse[CalibrateData](m) }

// GetConfirmData extracts a calibration confirmation from a message
func (m *Message) GetConfirmData() (*ConfirmData, error) { return parse[ConfirmData](m) }

// GetMuteData extracts a mute request from a message
func (m *Message) GetMuteData() (*MuteData, error) { return parse[MuteData](m) }

// GetAlertData extracts an alert from a message
func (m *Message) GetAlertData() (*AlertData, error) { return parse[AlertData](m) }

// GetStatusData extracts status from a message
func (m *Message) GetStatusData() (*StatusData, error) { return parse[StatusData](m) }

// GetViolationData extracts a violation from a message
func (m *Message) GetViolationData() (*ViolationData, error) { return parse[ViolationData](m) }

// GetTargetData extracts a calibration target from a message
func (m *Message) GetTargetData() (*TargetData, error) { return parse[TargetData](m) }

// GetCalibrationData extracts calibration progress from a message
func (m *Message) GetCalibrationData() (*CalibrationData, error) { return parse[CalibrationData](m) }

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) { return parse[PingData](m) }

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) { return parse[PongData](m) }
