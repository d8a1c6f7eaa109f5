// Package appstate holds the snapshot of the running app that the overlay
// loop publishes and the dashboard serves.
package appstate

import (
	"time"

	"github.com/teslashibe/go-emotify/pkg/overlay"
	"github.com/teslashibe/go-emotify/pkg/recognition"
	"github.com/teslashibe/go-emotify/pkg/sensor"
	"github.com/teslashibe/go-emotify/pkg/tone"
)

// State is the dashboard view of the running app.
type State struct {
	Status        sensor.Status       `json:"status"`
	StatusText    string              `json:"status_text"`
	Provider      string              `json:"provider"`
	Heads         int                 `json:"heads"`
	Placements    []overlay.Placement `json:"placements"`
	BatchID       string              `json:"batch_id,omitempty"`
	BatchFaces    int                 `json:"batch_faces"`
	BatchAt       time.Time           `json:"batch_at,omitempty"`
	LastUtterance string              `json:"last_utterance,omitempty"`
	LastBadgeID   string              `json:"last_badge_id,omitempty"`
	Recognition   recognition.Stats   `json:"recognition"`
	Tone          tone.Stats          `json:"tone"`
	FrameSeq      uint64              `json:"frame_seq"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// Publisher receives state updates. update runs under the publisher's lock
// and must not block.
type Publisher interface {
	UpdateState(update func(*State))
}

// Initial returns the state before any sensor has reported.
func Initial() State {
	return State{Status: sensor.StatusNoSensor, StatusText: sensor.StatusNoSensor.Text()}
}
