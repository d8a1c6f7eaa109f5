// Package yunet detects faces with OpenCV's FaceDetectorYN. It is the only
// detection backend that needs cgo.
package yunet

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-emotify/internal/log"
	"github.com/teslashibe/go-emotify/pkg/detection"
)

// Detector uses OpenCV's FaceDetectorYN for face detection.
type Detector struct {
	detector gocv.FaceDetectorYN
	config   detection.Config
	logger   *slog.Logger
	mu       sync.Mutex // Protects inference
}

// New creates a YuNet face detector from an ONNX model on disk.
func New(cfg detection.Config, logger *slog.Logger) (*Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ConfidenceThresh),
		float32(cfg.NMSThresh),
		5000,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &Detector{
		detector: detector,
		config:   cfg,
		logger:   log.Or(logger, "detection.yunet"),
	}, nil
}

// Detect finds faces in the JPEG image.
func (d *Detector) Detect(jpeg []byte) ([]detection.Detection, error) {
	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}
	return d.DetectMat(img), nil
}

// DetectMat runs detection on an already decoded frame.
func (d *Detector) DetectMat(img gocv.Mat) []detection.Detection {
	d.mu.Lock()
	defer d.mu.Unlock()

	imgW := float64(img.Cols())
	imgH := float64(img.Rows())

	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(img, &faces)

	// Each row: x, y, w, h, five landmark pairs, score.
	detections := make([]detection.Detection, 0, faces.Rows())
	for r := 0; r < faces.Rows(); r++ {
		detections = append(detections, detection.Detection{
			X:          float64(faces.GetFloatAt(r, 0)) / imgW,
			Y:          float64(faces.GetFloatAt(r, 1)) / imgH,
			W:          float64(faces.GetFloatAt(r, 2)) / imgW,
			H:          float64(faces.GetFloatAt(r, 3)) / imgH,
			Confidence: float64(faces.GetFloatAt(r, 14)),
		})
	}

	if len(detections) > 0 {
		d.logger.Debug("faces detected", "count", len(detections))
	}
	return detections
}

// Close releases the detector resources.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
