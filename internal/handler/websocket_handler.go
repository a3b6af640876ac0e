package handler

import (
	"context"
	"net/http"

	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/scholarx/scholarx-backend/internal/websocket"
)

// TokenValidator resolves an ID token to the caller's profile ID
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (profileID int64, err error)
}

// WebSocketHandler upgrades authenticated requests into profile event streams
type WebSocketHandler struct {
	hub       *websocket.Hub
	validator TokenValidator
	origins   map[string]struct{}
	upgrader  ws.Upgrader
}

// NewWebSocketHandler accepts browser connections from allowedOrigins only.
// A "*" entry allows any origin.
func NewWebSocketHandler(hub *websocket.Hub, validator TokenValidator, allowedOrigins []string) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:       hub,
		validator: validator,
		origins:   make(map[string]struct{}, len(allowedOrigins)),
	}
	for _, o := range allowedOrigins {
		h.origins[o] = struct{}{}
	}
	h.upgrader = ws.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024, CheckOrigin: h.checkOrigin}
	return h
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Non-browser clients send no Origin
		return true
	}
	_, wildcard := h.origins["*"]
	_, listed := h.origins[origin]
	if wildcard || listed {
		return true
	}
	log.Warn().Str("origin", origin).Msg("WebSocket origin rejected")
	return false
}

// HandleWS streams profile.created and profile.updated events for the caller
// at GET /ws. Browsers cannot set headers on the upgrade request, so the ID
// token arrives in the token query parameter.
func (h *WebSocketHandler) HandleWS(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return NewUnauthorizedError(c, "Missing token query parameter")
	}

	profileID, err := h.validator.ValidateToken(c.Request().Context(), token)
	if err != nil {
		log.Debug().Err(err).Msg("WebSocket token rejected")
		return NewUnauthorizedError(c, "Invalid or expired token")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the error response
		log.Debug().Err(err).Int64("profile_id", profileID).Msg("WebSocket upgrade failed")
		return nil
	}

	client := websocket.NewClient(conn, profileID, h.hub)
	client.Run()
	log.Info().Int64("profile_id", profileID).Str("client_id", client.ID()).Msg("WebSocket client connected")
	return nil
}
