package detection

import "errors"

// Sentinel errors for common conditions.
var (
	// ErrModelNotFound is returned when the ONNX model file is missing.
	ErrModelNotFound = errors.New("detection: model file not found")

	// ErrEmptyImage is returned when a frame decodes to nothing.
	ErrEmptyImage = errors.New("detection: empty image")

	// ErrNoImage is returned when a request carries no image payload.
	ErrNoImage = errors.New("detection: no image")

	// ErrNoDetector is returned when analysis is requested without a detector.
	ErrNoDetector = errors.New("detection: detector not configured")
)
