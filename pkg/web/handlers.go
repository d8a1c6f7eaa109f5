package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-emotify/pkg/hub"
)

// handleStatus returns the current state.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.State())
}

// handleOverlay returns the last frame's draw commands.
func (s *Server) handleOverlay(c *fiber.Ctx) error {
	s.frameMu.RLock()
	ov := s.overlay
	s.frameMu.RUnlock()
	return c.JSON(ov)
}

// handleBadge returns the live tone badge, or 204 when none is showing.
func (s *Server) handleBadge(c *fiber.Ctx) error {
	if s.cfg.Badge == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	b := s.cfg.Badge()
	if b == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(b)
}

// handleIcons lists the icon manifest.
func (s *Server) handleIcons(c *fiber.Ctx) error {
	return c.JSON(s.cfg.Icons.List())
}

// handleFrame returns the last JPEG frame.
func (s *Server) handleFrame(c *fiber.Ctx) error {
	s.frameMu.RLock()
	jpeg := s.jpeg
	s.frameMu.RUnlock()

	if len(jpeg) == 0 {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no frame yet",
		})
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(jpeg)
}

// handleStatusWS greets with the current state, then streams updates.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	greeting, err := hub.EncodeEvent("state", s.State())
	if err != nil {
		c.Close()
		return
	}
	hub.NewClient(s.statusHub, c).Serve(s.ctx, greeting)
}

// handleCameraWS streams JPEG frames.
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Serve(s.ctx)
}

// handleOverlayWS greets with the last overlay, then streams updates.
func (s *Server) handleOverlayWS(c *websocket.Conn) {
	s.frameMu.RLock()
	ov := s.overlay
	s.frameMu.RUnlock()

	greeting, err := hub.EncodeEvent("overlay", ov)
	if err != nil {
		c.Close()
		return
	}
	hub.NewClient(s.overlayHub, c).Serve(s.ctx, greeting)
}
