package handler

import (
	"errors"

	"discovery-client/internal/pkg/logger"
	"discovery-client/internal/service"
	internalWS "discovery-client/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SessionStreamHandler upgrades to a websocket that carries every snapshot
// of one session, starting with the current one.
type SessionStreamHandler struct {
	sessions service.ISessionService
	hub      *internalWS.Hub
	logger   logger.ILogger
}

func NewSessionStreamHandler(sessions service.ISessionService, hub *internalWS.Hub, log logger.ILogger) *SessionStreamHandler {
	return &SessionStreamHandler{
		sessions: sessions,
		hub:      hub,
		logger:   log,
	}
}

func (h *SessionStreamHandler) ServeWs(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	if _, err := h.sessions.Snapshot(c.UserContext(), sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return err
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("SessionStream", "Starting WebSocket stream", map[string]interface{}{"session_id": sessionID})
			internalWS.ServeWs(h.hub, conn, sessionID)
			h.logger.Info("SessionStream", "WebSocket stream ended", map[string]interface{}{"session_id": sessionID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *SessionStreamHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/sessions/:id/ws", h.ServeWs)
}
