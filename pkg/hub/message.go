// Package hub fans camera frames and status events out to websocket viewers.
package hub

// MessageType selects the websocket frame type.
type MessageType int

const (
	// JSONMessage carries an encoded status event
	JSONMessage MessageType = iota
	// BinaryMessage carries one JPEG frame
	BinaryMessage
)

// Message is one broadcast payload.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps a JPEG frame.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
