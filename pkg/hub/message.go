// Package hub fans messages out to a set of websocket clients through a
// single goroutine that owns the client set.
package hub

// MessageType indicates the websocket frame type
type MessageType int

const (
	JSONMessage   MessageType = iota // Text frame
	BinaryMessage                    // Binary frame
)

// Message represents a message to be broadcast to clients
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}
