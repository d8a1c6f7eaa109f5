package overlay

import (
	"sync"

	"github.com/teslashibe/go-emotify/pkg/sensor"
)

// RecordingRenderer is a Renderer that keeps what it was asked to draw.
type RecordingRenderer struct {
	// RenderFunc, when set, is called after recording.
	RenderFunc func(frame sensor.ColorFrame, cmds []DrawCommand) error

	mu     sync.Mutex
	frames []sensor.ColorFrame
	cmds   [][]DrawCommand
}

// Render implements Renderer.
func (r *RecordingRenderer) Render(frame sensor.ColorFrame, cmds []DrawCommand) error {
	r.mu.Lock()
	r.frames = append(r.frames, frame)
	r.cmds = append(r.cmds, append([]DrawCommand(nil), cmds...))
	r.mu.Unlock()
	if r.RenderFunc != nil {
		return r.RenderFunc(frame, cmds)
	}
	return nil
}

// Count returns the number of rendered frames.
func (r *RecordingRenderer) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Last returns the most recent frame and its commands.
func (r *RecordingRenderer) Last() (sensor.ColorFrame, []DrawCommand, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return sensor.ColorFrame{}, nil, false
	}
	n := len(r.frames) - 1
	return r.frames[n], r.cmds[n], true
}

// Multi fans a frame out to several renderers. Every renderer is called;
// the first error is returned.
type Multi []Renderer

// Render implements Renderer.
func (m Multi) Render(frame sensor.ColorFrame, cmds []DrawCommand) error {
	var first error
	for _, r := range m {
		if err := r.Render(frame, cmds); err != nil && first == nil {
			first = err
		}
	}
	return first
}
