package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/teslashibe/go-emotify/pkg/appstate"
	"github.com/teslashibe/go-emotify/pkg/emotions"
	"github.com/teslashibe/go-emotify/pkg/overlay"
	"github.com/teslashibe/go-emotify/pkg/sensor"
	"github.com/teslashibe/go-emotify/pkg/tone"
)

func get(t *testing.T, s *Server, path string) *http.Response {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, path, nil))
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func TestStatusEndpoint(t *testing.T) {
	s := NewServer(Config{})
	s.UpdateState(func(st *appstate.State) {
		st.Status = sensor.StatusRunning
		st.Heads = 2
		st.Provider = "emotion"
	})

	resp := get(t, s, "/api/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var st appstate.State
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Status != sensor.StatusRunning || st.StatusText != "Running" || st.Heads != 2 {
		t.Errorf("state = %+v", st)
	}
}

func TestInitialStatusIsNoSensor(t *testing.T) {
	s := NewServer(Config{})
	if st := s.State(); st.Status != sensor.StatusNoSensor {
		t.Errorf("initial status = %s", st.Status)
	}
}

func TestBadgeEndpoint(t *testing.T) {
	var badge *tone.Badge
	s := NewServer(Config{Badge: func() *tone.Badge { return badge }})

	if resp := get(t, s, "/api/badge"); resp.StatusCode != http.StatusNoContent {
		t.Errorf("no badge: status = %d", resp.StatusCode)
	}

	badge = &tone.Badge{ID: "b1", Moods: []emotions.Emotion{emotions.Fear}, CreatedAt: time.Now()}
	resp := get(t, s, "/api/badge")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got struct {
		ID    string   `json:"id"`
		Moods []string `json:"moods"`
	}
	json.NewDecoder(resp.Body).Decode(&got)
	if got.ID != "b1" || len(got.Moods) != 1 || got.Moods[0] != "fear" {
		t.Errorf("badge = %+v", got)
	}
}

func TestRenderUpdatesOverlayAndFrame(t *testing.T) {
	s := NewServer(Config{})

	if resp := get(t, s, "/api/frame.jpg"); resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("frame before render: status = %d", resp.StatusCode)
	}

	frame := sensor.ColorFrame{Seq: 9, Width: 640, Height: 480, JPEG: []byte{0xff, 0xd8, 0xff}}
	cmds := []overlay.DrawCommand{{Icon: "sadness", Dst: overlay.Rect{X: 1, Y: 2, W: 3, H: 4}}}
	if err := s.Render(frame, cmds); err != nil {
		t.Fatalf("Render: %v", err)
	}

	resp := get(t, s, "/api/overlay")
	var ov Overlay
	json.NewDecoder(resp.Body).Decode(&ov)
	if ov.Seq != 9 || ov.Width != 640 || len(ov.Commands) != 1 || ov.Commands[0].Icon != "sadness" {
		t.Errorf("overlay = %+v", ov)
	}

	resp = get(t, s, "/api/frame.jpg")
	body, _ := io.ReadAll(resp.Body)
	if resp.Header.Get("Content-Type") != "image/jpeg" || len(body) != 3 {
		t.Errorf("frame = %q %v", resp.Header.Get("Content-Type"), body)
	}
}

func TestIconsEndpoint(t *testing.T) {
	s := NewServer(Config{})
	resp := get(t, s, "/api/icons")
	var icons []emotions.Icon
	json.NewDecoder(resp.Body).Decode(&icons)
	if len(icons) != len(emotions.All())+1 {
		t.Errorf("got %d icons", len(icons))
	}
}

func TestWebsocketRequiresUpgrade(t *testing.T) {
	s := NewServer(Config{})
	if resp := get(t, s, "/ws/status"); resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status = %d, want 426", resp.StatusCode)
	}
}
