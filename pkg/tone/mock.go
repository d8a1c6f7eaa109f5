package tone

import (
	"context"
	"sync"
)

// MockAnalyzer implements Analyzer for testing.
type MockAnalyzer struct {
	// AnalyzeFunc is called when Analyze is invoked.
	AnalyzeFunc func(ctx context.Context, text string) ([]Tone, error)

	mu    sync.Mutex
	texts []string
}

// NewMockAnalyzer returns a mock that always reports joy.
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{
		AnalyzeFunc: func(ctx context.Context, text string) ([]Tone, error) {
			return []Tone{{Name: "Joy", Score: 0.8}}, nil
		},
	}
}

// Analyze records text and calls AnalyzeFunc.
func (m *MockAnalyzer) Analyze(ctx context.Context, text string) ([]Tone, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, text)
	}
	return nil, nil
}

// Texts returns every analyzed text in order.
func (m *MockAnalyzer) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}
