package camera

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-emotify/internal/log"
	"github.com/teslashibe/go-emotify/pkg/emotions"
	"github.com/teslashibe/go-emotify/pkg/overlay"
	"github.com/teslashibe/go-emotify/pkg/sensor"
)

// iconColors tints the fallback boxes drawn when an icon image is missing.
var iconColors = map[string]color.RGBA{
	"anger":              {R: 220, G: 40, B: 40},
	"contempt":           {R: 150, G: 90, B: 200},
	"sadness":            {R: 60, G: 100, B: 220},
	"neutral":            {R: 200, G: 200, B: 200},
	"happiness":          {R: 250, G: 210, B: 40},
	"fear":               {R: 80, G: 200, B: 120},
	emotions.BalloonIcon: {R: 255, G: 255, B: 255},
}

// Window draws overlay commands onto decoded frames and shows them in an
// OpenCV window. The window is created on the first Render, so it must be
// rendered from a single goroutine.
type Window struct {
	title   string
	iconDir string
	icons   *emotions.IconSet
	logger  *slog.Logger

	win    *gocv.Window
	images map[string]gocv.Mat
	closed bool
	mu     sync.Mutex
}

// NewWindow creates a renderer. Icon images are loaded from iconDir using
// each icon's file name; missing images fall back to labelled boxes.
func NewWindow(title, iconDir string, icons *emotions.IconSet, logger *slog.Logger) *Window {
	if icons == nil {
		icons = emotions.MustEmbedded()
	}
	return &Window{
		title:   title,
		iconDir: iconDir,
		icons:   icons,
		logger:  log.Or(logger, "camera.window"),
		images:  make(map[string]gocv.Mat),
	}
}

// Render implements overlay.Renderer.
func (w *Window) Render(frame sensor.ColorFrame, cmds []overlay.DrawCommand) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}

	img, err := gocv.IMDecode(frame.JPEG, gocv.IMReadColor)
	if err != nil {
		return fmt.Errorf("camera: decode frame %d: %w", frame.Seq, err)
	}
	defer img.Close()
	if img.Empty() {
		return fmt.Errorf("camera: empty frame %d", frame.Seq)
	}

	for _, c := range cmds {
		w.draw(&img, c)
	}

	if w.win == nil {
		w.win = gocv.NewWindow(w.title)
	}
	w.win.IMShow(img)
	w.win.WaitKey(1)
	return nil
}

// Close destroys the window and releases loaded icons.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	for name, m := range w.images {
		m.Close()
		delete(w.images, name)
	}
	if w.win != nil {
		return w.win.Close()
	}
	return nil
}

func (w *Window) draw(img *gocv.Mat, c overlay.DrawCommand) {
	dst := image.Rect(int(c.Dst.X), int(c.Dst.Y), int(c.Dst.X+c.Dst.W), int(c.Dst.Y+c.Dst.H))
	bounds := image.Rect(0, 0, img.Cols(), img.Rows())
	visible := dst.Intersect(bounds)
	if visible.Empty() {
		return
	}

	if icon, ok := w.iconImage(c.Icon); ok && visible == dst {
		scaled := gocv.NewMat()
		defer scaled.Close()
		gocv.Resize(icon, &scaled, image.Pt(dst.Dx(), dst.Dy()), 0, 0, gocv.InterpolationLinear)

		roi := img.Region(dst)
		defer roi.Close()
		scaled.CopyTo(&roi)
		return
	}

	// Partially visible or no image: outline and label.
	col := iconColors[c.Icon]
	gocv.Rectangle(img, visible, col, 3)
	gocv.PutText(img, c.Icon, image.Pt(visible.Min.X+4, visible.Min.Y+24),
		gocv.FontHersheySimplex, 0.8, col, 2)
}

func (w *Window) iconImage(name string) (gocv.Mat, bool) {
	if m, ok := w.images[name]; ok {
		return m, !m.Empty()
	}
	if w.iconDir == "" {
		return gocv.Mat{}, false
	}

	icon, err := w.icons.Get(name)
	if err != nil {
		return gocv.Mat{}, false
	}
	m := gocv.IMRead(filepath.Join(w.iconDir, icon.File), gocv.IMReadColor)
	if m.Empty() {
		w.logger.Warn("icon image missing", "icon", name, "dir", w.iconDir)
	}
	w.images[name] = m
	return m, !m.Empty()
}
