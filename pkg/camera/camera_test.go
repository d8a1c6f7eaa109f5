package camera

import (
	"os"
	"testing"

	"github.com/teslashibe/go-emotify/pkg/sensor"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("default config invalid: %v", errs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		bad    int
	}{
		{"valid", func(c *Config) {}, 0},
		{"no device", func(c *Config) { c.Device = "" }, 1},
		{"tiny width", func(c *Config) { c.Width = 10 }, 1},
		{"zero framerate", func(c *Config) { c.Framerate = 0 }, 1},
		{"quality too high", func(c *Config) { c.Quality = 101 }, 1},
		{"flat fov", func(c *Config) { c.HFOV = 180 }, 1},
		{"no buffer", func(c *Config) { c.BufferFrames = 0 }, 1},
		{"several", func(c *Config) { c.Width = 0; c.Height = 0 }, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			errs := cfg.Validate()
			if len(errs) != tt.bad {
				t.Errorf("Validate() = %v, want %d problems", errs, tt.bad)
			}
			if (cfg.Err() != nil) != (tt.bad > 0) {
				t.Errorf("Err() = %v", cfg.Err())
			}
		})
	}
}

func TestDeviceArg(t *testing.T) {
	tests := []struct {
		device string
		want   interface{}
	}{
		{"0", 0},
		{"2", 2},
		{"/dev/video0", "/dev/video0"},
		{"rtsp://cam.local/stream", "rtsp://cam.local/stream"},
	}
	for _, tt := range tests {
		cfg := Config{Device: tt.device}
		if got := cfg.deviceArg(); got != tt.want {
			t.Errorf("deviceArg(%q) = %v, want %v", tt.device, got, tt.want)
		}
	}
}

func TestPresets(t *testing.T) {
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %q missing", name)
		}
		if errs := cfg.Validate(); len(errs) != 0 {
			t.Errorf("preset %q invalid: %v", name, errs)
		}
	}
	if GetPreset("8k") != nil {
		t.Error("unknown preset should be nil")
	}
	if vga := GetPreset(PresetVGA); vga.Width != 640 || vga.Height != 480 {
		t.Errorf("vga = %dx%d", vga.Width, vga.Height)
	}
}

func TestOfferDropsOldest(t *testing.T) {
	ch := make(chan int, 2)
	for i := 1; i <= 5; i++ {
		offer(ch, i)
	}
	if a, b := <-ch, <-ch; a != 4 || b != 5 {
		t.Errorf("queue = [%d %d], want [4 5]", a, b)
	}
}

// TestCaptureDevice needs a real camera: EMOTIFY_TEST_CAMERA=0 go test ./pkg/camera
func TestCaptureDevice(t *testing.T) {
	device := os.Getenv("EMOTIFY_TEST_CAMERA")
	if device == "" {
		t.Skip("EMOTIFY_TEST_CAMERA not set")
	}

	cfg := VGAConfig()
	cfg.Device = device
	src, err := Open(cfg, nil, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	src.Start(t.Context())
	if st := <-src.StatusChanges(); st != sensor.StatusRunning {
		t.Errorf("first status = %s", st)
	}
	frame := <-src.Frames()
	if len(frame.JPEG) == 0 || frame.Width == 0 {
		t.Errorf("empty frame: %+v", frame)
	}
}
