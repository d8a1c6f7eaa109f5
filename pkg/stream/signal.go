package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrNoProducer is returned when the signalling server lists no
	// matching producer.
	ErrNoProducer = errors.New("stream: producer not found")

	// ErrNoTrack is returned when the session never delivers an audio track.
	ErrNoTrack = errors.New("stream: no audio track")
)

// Signalling message types.
const (
	msgWelcome        = "welcome"
	msgList           = "list"
	msgStartSession   = "startSession"
	msgSessionStarted = "sessionStarted"
	msgPeer           = "peer"
	msgEndSession     = "endSession"
)

type sdpPayload struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

type icePayload struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
}

type producer struct {
	ID   string            `json:"id"`
	Meta map[string]string `json:"meta"`
}

// signalMessage covers every message on the signalling socket.
type signalMessage struct {
	Type      string      `json:"type"`
	PeerID    string      `json:"peerId,omitempty"`
	SessionID string      `json:"sessionId,omitempty"`
	Producers []producer  `json:"producers,omitempty"`
	SDP       *sdpPayload `json:"sdp,omitempty"`
	ICE       *icePayload `json:"ice,omitempty"`
}

// signaller wraps the signalling websocket. Writes are serialized; reads
// belong to one goroutine.
type signaller struct {
	conn    *websocket.Conn
	mu      sync.Mutex
	timeout time.Duration
}

func dialSignaller(ctx context.Context, url string, timeout time.Duration) (*signaller, error) {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("stream: signalling connect: %w", err)
	}
	return &signaller{conn: conn, timeout: timeout}, nil
}

func (s *signaller) send(msg signalMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

// expect reads one message with a deadline and checks its type.
func (s *signaller) expect(typ string) (signalMessage, error) {
	s.conn.SetReadDeadline(time.Now().Add(s.timeout))
	defer s.conn.SetReadDeadline(time.Time{})

	msg, err := s.read()
	if err != nil {
		return msg, err
	}
	if msg.Type != typ {
		return msg, fmt.Errorf("stream: expected %s, got %q", typ, msg.Type)
	}
	return msg, nil
}

func (s *signaller) read() (signalMessage, error) {
	var msg signalMessage
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("stream: bad signalling message: %w", err)
	}
	return msg, nil
}

// handshake waits for the welcome and resolves the producer to call.
func (s *signaller) handshake(name string) (peerID, producerID string, err error) {
	welcome, err := s.expect(msgWelcome)
	if err != nil {
		return "", "", err
	}

	if err := s.send(signalMessage{Type: msgList}); err != nil {
		return "", "", err
	}
	list, err := s.expect(msgList)
	if err != nil {
		return "", "", err
	}

	id, ok := pickProducer(list.Producers, name)
	if !ok {
		return "", "", fmt.Errorf("%w: %q among %d producers", ErrNoProducer, name, len(list.Producers))
	}
	return welcome.PeerID, id, nil
}

func (s *signaller) close() error {
	s.mu.Lock()
	s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.mu.Unlock()
	return s.conn.Close()
}

func pickProducer(producers []producer, name string) (string, bool) {
	for _, p := range producers {
		if name == "" || p.Meta["name"] == name {
			return p.ID, true
		}
	}
	return "", false
}
