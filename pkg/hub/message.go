// Package hub fans dashboard updates out to websocket clients. One goroutine
// owns the client set; slow clients are dropped rather than waited on.
package hub

import "encoding/json"

// MessageType indicates the websocket message format.
type MessageType int

const (
	// JSONMessage is a JSON-encoded text frame.
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data such as a JPEG frame.
	BinaryMessage
)

// Message is one frame broadcast to every client.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps binary data.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// Envelope is the JSON shape of typed dashboard events.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// EncodeEvent builds a JSON message {"type":..., "data":...}.
func EncodeEvent(eventType string, data any) (Message, error) {
	b, err := json.Marshal(Envelope{Type: eventType, Data: data})
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(b), nil
}
