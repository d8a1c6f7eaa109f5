package speech

import "sync"

// Mock implements Recognizer for testing. Emit pushes utterances to the
// consumer.
type Mock struct {
	// SendAudioFunc is called when SendAudio is invoked.
	SendAudioFunc func(pcm []byte) error

	ch     chan Utterance
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

// NewMock creates a mock recognizer.
func NewMock() *Mock {
	return &Mock{ch: make(chan Utterance, 16)}
}

// SendAudio records a copy of pcm.
func (m *Mock) SendAudio(pcm []byte) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.sent = append(m.sent, append([]byte(nil), pcm...))
	m.mu.Unlock()
	if m.SendAudioFunc != nil {
		return m.SendAudioFunc(pcm)
	}
	return nil
}

// Utterances implements Recognizer.
func (m *Mock) Utterances() <-chan Utterance {
	return m.ch
}

// Emit delivers an utterance.
func (m *Mock) Emit(u Utterance) {
	m.ch <- u
}

// Sent returns the recorded windows.
func (m *Mock) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.sent...)
}

// Close closes the utterance channel.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.ch)
	}
	return nil
}
