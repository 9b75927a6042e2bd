package session

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-proctor/pkg/detection"
	"github.com/teslashibe/go-proctor/pkg/gaze"
	"github.com/teslashibe/go-proctor/pkg/protocol"
)

// Handle applies one inbound client message. The returned message, if
// any, is a direct reply for the sender only.
func (s *Session) Handle(msg *protocol.Message) (*protocol.Message, error) {
	switch msg.Type {
	case protocol.TypeGaze:
		d, err := msg.GetGazeData()
		if err != nil {
			return nil, fmt.Errorf("session: gaze: %w", err)
		}
		var zone *gaze.Rect
		if d.Zone != nil {
			zone = &gaze.Rect{Left: d.Zone.Left, Top: d.Zone.Top, Right: d.Zone.Right, Bottom: d.Zone.Bottom}
		}
		return nil, s.SubmitGaze(d.X, d.Y, d.ViewportW, d.ViewportH, zone)

	case protocol.TypeFaces:
		d, err := msg.GetFacesData()
		if err != nil {
			return nil, fmt.Errorf("session: faces: %w", err)
		}
		return nil, s.ReportFaces(d.Count)

	case protocol.TypeFrame:
		d, err := msg.GetFrameData()
		if err != nil {
			return nil, fmt.Errorf("session: frame: %w", err)
		}
		jpeg, err := detection.DecodeImage(d.Image)
		if err != nil {
			return nil, fmt.Errorf("session: frame: %w", err)
		}
		return nil, s.SubmitFrame(jpeg)

	case protocol.TypeCalibrate:
		d, err := msg.GetCalibrateData()
		if err != nil {
			return nil, fmt.Errorf("session: calibrate: %w", err)
		}
		if d.Restart {
			return nil, s.RestartCalibration()
		}
		return nil, s.RequestCalibration()

	case protocol.TypeConfirm:
		d, err := msg.GetConfirmData()
		if err != nil {
			return nil, fmt.Errorf("session: confirm: %w", err)
		}
		return nil, s.ConfirmPoint(d.Index)

	case protocol.TypeMute:
		d, err := msg.GetMuteData()
		if err != nil {
			return nil, fmt.Errorf("session: mute: %w", err)
		}
		if d.Muted == nil {
			return nil, s.ToggleMute()
		}
		return nil, s.SetMuted(*d.Muted)

	case protocol.TypePing:
		d, err := msg.GetPingData()
		if err != nil {
			return nil, fmt.Errorf("session: ping: %w", err)
		}
		pingTS := d.Timestamp
		if pingTS == 0 {
			pingTS = msg.Timestamp
		}
		return protocol.NewPongMessage(d.ID, pingTS, time.Now().UnixMilli())
	}

	return nil, fmt.Errorf("%w: %q", protocol.ErrUnknownType, msg.Type)
}
