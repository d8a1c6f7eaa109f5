// Package web serves the live overlay dashboard: JSON status endpoints plus
// websocket feeds of camera frames, overlay commands and status changes.
package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-emotify/internal/log"
	"github.com/teslashibe/go-emotify/pkg/appstate"
	"github.com/teslashibe/go-emotify/pkg/emotions"
	"github.com/teslashibe/go-emotify/pkg/hub"
	"github.com/teslashibe/go-emotify/pkg/overlay"
	"github.com/teslashibe/go-emotify/pkg/sensor"
	"github.com/teslashibe/go-emotify/pkg/tone"
)

// Overlay is the last frame's draw commands.
type Overlay struct {
	Seq      uint64                `json:"seq"`
	Width    int                   `json:"width"`
	Height   int                   `json:"height"`
	Commands []overlay.DrawCommand `json:"commands"`
}

// Config configures the dashboard.
type Config struct {
	// Addr is the listen address, e.g. ":8181".
	Addr string

	// StaticDir is served at / when set.
	StaticDir string

	// Icons is listed at /api/icons.
	Icons *emotions.IconSet

	// Badge returns the live badge, or nil.
	Badge func() *tone.Badge

	Logger *slog.Logger
}

// Server is the dashboard server. It implements overlay.Renderer so it can
// sit beside a local window renderer.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	state   appstate.State
	stateMu sync.RWMutex

	frameMu sync.RWMutex
	jpeg    []byte
	overlay Overlay

	// ctx scopes websocket clients to the server lifetime.
	ctx    context.Context
	cancel context.CancelFunc

	statusHub  *hub.Hub
	cameraHub  *hub.Hub
	overlayHub *hub.Hub
}

// NewServer creates the dashboard. Call Start to serve.
func NewServer(cfg Config) *Server {
	if cfg.Icons == nil {
		cfg.Icons = emotions.MustEmbedded()
	}
	logger := log.Or(cfg.Logger, "web")

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		state:      appstate.Initial(),
		statusHub:  hub.New("status", logger),
		cameraHub:  hub.New("camera", logger),
		overlayHub: hub.New("overlay", logger),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	app := fiber.New(fiber.Config{
		AppName:               "emotify dashboard",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/overlay", s.handleOverlay)
	api.Get("/badge", s.handleBadge)
	api.Get("/icons", s.handleIcons)
	api.Get("/frame.jpg", s.handleFrame)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))
	app.Get("/ws/overlay", websocket.New(s.handleOverlayWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs and serves until Shutdown.
func (s *Server) Start() error {
	go s.statusHub.Run(s.ctx)
	go s.cameraHub.Run(s.ctx)
	go s.overlayHub.Run(s.ctx)

	s.logger.Info("dashboard listening", "addr", s.cfg.Addr)
	return s.app.Listen(s.cfg.Addr)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("dashboard stopped", "error", err)
		}
	}()
}

// Shutdown stops the hubs and the listener.
func (s *Server) Shutdown() error {
	s.cancel()
	return s.app.Shutdown()
}

// UpdateState applies update and broadcasts the result.
func (s *Server) UpdateState(update func(*appstate.State)) {
	s.stateMu.Lock()
	update(&s.state)
	s.state.StatusText = s.state.Status.Text()
	s.state.UpdatedAt = time.Now()
	st := s.state
	s.stateMu.Unlock()

	if err := s.statusHub.BroadcastEvent("state", st); err != nil {
		s.logger.Warn("encode state", "error", err)
	}
}

// State returns a copy of the current state.
func (s *Server) State() appstate.State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Render implements overlay.Renderer: the JPEG goes to camera clients and
// the commands to overlay clients.
func (s *Server) Render(frame sensor.ColorFrame, cmds []overlay.DrawCommand) error {
	ov := Overlay{
		Seq:      frame.Seq,
		Width:    frame.Width,
		Height:   frame.Height,
		Commands: cmds,
	}

	s.frameMu.Lock()
	s.jpeg = frame.JPEG
	s.overlay = ov
	s.frameMu.Unlock()

	if len(frame.JPEG) > 0 {
		s.cameraHub.BroadcastBinary(frame.JPEG)
	}
	return s.overlayHub.BroadcastEvent("overlay", ov)
}
