package detection

import (
	"encoding/base64"
	"strings"
	"time"
)

// Face status values reported per detected face
const (
	StatusOnScreen  = "on_screen"
	StatusLookLeft  = "look_left"
	StatusLookRight = "look_right"
)

// Frame-level alerts
const (
	AlertNoFace          = "no_face"
	AlertMultiplePersons = "multiple_persons"
)

// Gaze score bounds outside of which a face counts as looking away
const (
	LookLeftBelow  = 0.2
	LookRightAbove = 0.8
)

// Face is the per-face entry of a frame report.
//
// BBox is x, y, w, h as fractions of the frame, not pixels, so it does not
// depend on the client's capture resolution. Iris positions are not
// reported; YuNet gives eye centers only, and those feed GazeScore.
type Face struct {
	BBox      [4]float64 `json:"bbox"` // x, y, w, h normalized
	GazeScore float64    `json:"gaze_score"`
	Status    string     `json:"status"`
}

// Report is the result of analyzing a single frame
type Report struct {
	Timestamp time.Time `json:"timestamp"`
	FaceCount int       `json:"face_count"`
	Faces     []Face    `json:"faces"`
	Alert     string    `json:"alert,omitempty"`
}

// OffScreen reports whether the primary face is looking away.
func (r Report) OffScreen() bool {
	return len(r.Faces) > 0 && r.Faces[0].Status != StatusOnScreen
}

// GazeScore places the nose tip between the two eyes, horizontally.
// 0 is at the eye on the image's left, 1 at the other. Returns 0.5
// when landmarks are missing or the eyes overlap.
func GazeScore(d Detection) float64 {
	if !d.HasLandmarks {
		return 0.5
	}
	left, right := d.Landmarks[RightEye].X, d.Landmarks[LeftEye].X
	if left > right {
		left, right = right, left
	}
	width := right - left
	if width <= 0 {
		return 0.5
	}
	return (d.Landmarks[NoseTip].X - left) / width
}

// StatusFor maps a gaze score to a face status
func StatusFor(score float64) string {
	switch {
	case score < LookLeftBelow:
		return StatusLookLeft
	case score > LookRightAbove:
		return StatusLookRight
	default:
		return StatusOnScreen
	}
}

// BuildReport turns raw detections into a frame report. The primary face
// (see SelectBest) is listed first.
func BuildReport(dets []Detection, at time.Time) Report {
	r := Report{Timestamp: at, FaceCount: len(dets), Faces: []Face{}}

	if len(dets) == 0 {
		r.Alert = AlertNoFace
		return r
	}

	best := SelectBest(dets)
	r.Faces = append(r.Faces, faceOf(*best))
	for i := range dets {
		if &dets[i] == best {
			continue
		}
		r.Faces = append(r.Faces, faceOf(dets[i]))
	}

	if len(dets) > 1 {
		r.Alert = AlertMultiplePersons
	}
	return r
}

func faceOf(d Detection) Face {
	score := GazeScore(d)
	return Face{
		BBox:      [4]float64{d.X, d.Y, d.W, d.H},
		GazeScore: score,
		Status:    StatusFor(score),
	}
}

// Analyze runs the detector over a JPEG frame and builds its report
func Analyze(det Detector, jpeg []byte, at time.Time) (Report, error) {
	if det == nil {
		return Report{}, ErrNoDetector
	}
	if len(jpeg) == 0 {
		return Report{}, ErrNoImage
	}
	dets, err := det.Detect(jpeg)
	if err != nil {
		return Report{}, err
	}
	return BuildReport(dets, at), nil
}

// DecodeImage accepts raw base64 or a data URL ("data:image/jpeg;base64,...")
func DecodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrNoImage
	}
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexByte(s, ','); i >= 0 {
			s = s[i+1:]
		}
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, ErrNoImage
	}
	return b, nil
}
