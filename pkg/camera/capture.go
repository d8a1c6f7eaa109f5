package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-emotify/internal/log"
	"github.com/teslashibe/go-emotify/pkg/body"
	"github.com/teslashibe/go-emotify/pkg/detection"
	"github.com/teslashibe/go-emotify/pkg/sensor"
)

// unavailableAfter is how many consecutive failed reads mark the camera
// unavailable.
const unavailableAfter = 10

// matDetector is implemented by detectors that can skip the JPEG round trip.
type matDetector interface {
	DetectMat(img gocv.Mat) []detection.Detection
}

// Source captures frames from an OpenCV video device. With a detector it
// also emits face-derived body frames.
type Source struct {
	cfg      Config
	cap      *gocv.VideoCapture
	detector detection.Detector
	cam      body.Pinhole
	logger   *slog.Logger

	frames chan sensor.ColorFrame
	bodies chan body.Frame
	status chan sensor.Status

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Open opens the device. detector may be nil.
func Open(cfg Config, detector detection.Detector, logger *slog.Logger) (*Source, error) {
	if err := cfg.Err(); err != nil {
		return nil, err
	}

	vc, err := gocv.OpenVideoCapture(cfg.deviceArg())
	if err != nil {
		return nil, fmt.Errorf("camera: open %s: %w", cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera: device %s not available", cfg.Device)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	return &Source{
		cfg:      cfg,
		cap:      vc,
		detector: detector,
		cam:      body.FromFOV(cfg.Width, cfg.Height, cfg.HFOV),
		logger:   log.Or(logger, "camera"),
		frames:   make(chan sensor.ColorFrame, cfg.BufferFrames),
		bodies:   make(chan body.Frame, cfg.BufferFrames),
		status:   make(chan sensor.Status, 4),
		done:     make(chan struct{}),
	}, nil
}

// Projector returns the projector matching face-derived body frames.
func (s *Source) Projector() body.Projector {
	return s.cam
}

// Frames returns encoded color frames.
func (s *Source) Frames() <-chan sensor.ColorFrame { return s.frames }

// Bodies returns face-derived body frames. It stays silent without a
// detector.
func (s *Source) Bodies() <-chan body.Frame { return s.bodies }

// StatusChanges reports availability transitions.
func (s *Source) StatusChanges() <-chan sensor.Status { return s.status }

// Start begins capturing on its own goroutine.
func (s *Source) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
}

// Close stops capture and releases the device.
func (s *Source) Close() error {
	var err error
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
		err = s.cap.Close()
	})
	return err
}

func (s *Source) loop(ctx context.Context) {
	defer close(s.done)

	img := gocv.NewMat()
	defer img.Close()

	interval := time.Second / time.Duration(s.cfg.Framerate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seq uint64
	failures := 0
	current := sensor.Status("")

	setStatus := func(st sensor.Status) {
		if st == current {
			return
		}
		current = st
		s.logger.Info("camera status", "status", st)
		offer(s.status, st)
	}
	setStatus(sensor.StatusRunning)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if ok := s.cap.Read(&img); !ok || img.Empty() {
			failures++
			if failures >= unavailableAfter {
				setStatus(sensor.StatusUnavailable)
			}
			continue
		}
		failures = 0
		setStatus(sensor.StatusRunning)

		now := time.Now()
		buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{int(gocv.IMWriteJpegQuality), s.cfg.Quality})
		if err != nil {
			s.logger.Warn("jpeg encode failed", "error", err)
			continue
		}
		jpeg := append([]byte(nil), buf.GetBytes()...)
		buf.Close()

		seq++
		offer(s.frames, sensor.ColorFrame{
			Seq:        seq,
			Width:      img.Cols(),
			Height:     img.Rows(),
			JPEG:       jpeg,
			CapturedAt: now,
		})

		if s.detector != nil {
			offer(s.bodies, s.detectBodies(img, jpeg, now))
		}
	}
}

func (s *Source) detectBodies(img gocv.Mat, jpeg []byte, at time.Time) body.Frame {
	var dets []detection.Detection
	if md, ok := s.detector.(matDetector); ok {
		dets = md.DetectMat(img)
	} else {
		var err error
		if dets, err = s.detector.Detect(jpeg); err != nil {
			s.logger.Debug("face detection failed", "error", err)
		}
	}
	dets = detection.Filter(dets, 0)
	return body.FromDetections(dets, img.Cols(), img.Rows(), s.cam, at)
}

// offer sends v, replacing the oldest queued value when ch is full. Only
// one goroutine may send on ch.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
