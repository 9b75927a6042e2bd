package session

import "errors"

var (
	// ErrNotFound is returned for unknown session ids.
	ErrNotFound = errors.New("session: not found")

	// ErrClosed is returned when posting to a session whose loop has stopped.
	ErrClosed = errors.New("session: closed")

	// ErrInvalidGaze is returned for a gaze sample without a usable
	// viewport or with non-finite coordinates.
	ErrInvalidGaze = errors.New("session: invalid gaze sample")

	// ErrUnknownPreset is returned for an unrecognised config preset name.
	ErrUnknownPreset = errors.New("session: unknown preset")
)
