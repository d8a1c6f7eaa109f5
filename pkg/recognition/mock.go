package recognition

import (
	"context"
	"sync"
)

// Mock implements Service for testing.
type Mock struct {
	// RecognizeFunc is called when Recognize is invoked.
	RecognizeFunc func(ctx context.Context, jpeg []byte) ([]FaceResult, error)

	mu    sync.Mutex
	calls int
}

// NewMock returns a mock that reports a single neutral face.
func NewMock() *Mock {
	return &Mock{
		RecognizeFunc: func(ctx context.Context, jpeg []byte) ([]FaceResult, error) {
			return []FaceResult{{
				Rect:   Rect{Left: 100, Top: 100, Width: 80, Height: 80},
				Scores: []Score{{Label: "neutral", Score: 0.9}},
			}}, nil
		},
	}
}

// Recognize calls RecognizeFunc and counts the call.
func (m *Mock) Recognize(ctx context.Context, jpeg []byte) ([]FaceResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, jpeg)
	}
	return nil, WrapError("mock", ErrEmptyResponse)
}

// Calls returns how many times Recognize was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
