package protocol

import "errors"

var (
	// ErrMissingType is returned for messages without a type field.
	ErrMissingType = errors.New("protocol: missing message type")

	// ErrUnknownType is returned for message types the receiver does not handle.
	ErrUnknownType = errors.New("protocol: unknown message type")
)
