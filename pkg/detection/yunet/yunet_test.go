package yunet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/teslashibe/go-emotify/pkg/detection"
)

var _ detection.Detector = (*Detector)(nil)

func TestNewInvalidPath(t *testing.T) {
	cfg := detection.DefaultConfig()
	cfg.ModelPath = filepath.Join(t.TempDir(), "missing.onnx")

	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestDetectBadJPEG(t *testing.T) {
	modelPath := os.Getenv("YUNET_MODEL")
	if modelPath == "" {
		t.Skip("YUNET_MODEL not set, skipping")
	}

	cfg := detection.DefaultConfig()
	cfg.ModelPath = modelPath
	d, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	if _, err := d.Detect([]byte("not a jpeg")); err == nil {
		t.Error("expected decode error")
	}
}
