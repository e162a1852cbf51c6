package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // transport/CORS policy is out of scope; the caller's reverse proxy owns origin checks.
	},
}

// handleSubscribe upgrades a GET /api/v1/sessions/:sessionId/stream request
// into the party session's websocket feed (spec.md §4.9), registering the
// connection with internal/broadcaster.Hub — the session-keyed pub/sub
// C9 already builds — rather than reimplementing a client set here.
// Grounded on the teacher's internal/api/websocket.go Subscribe handler:
// upgrade, register, then a read-only loop purely to detect disconnects.
func (h *APIHandler) handleSubscribe(c *gin.Context) {
	sessionID := c.Param("sessionId")
	playerID := c.Query("playerId")
	if playerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "playerId query parameter required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("failed to upgrade websocket: %v", err)
		return
	}

	if err := h.party.HandleConnect(c.Request.Context(), sessionID, playerID); err != nil {
		log.Printf("connect bookkeeping session=%s player=%s: %v", sessionID, playerID, err)
	}
	h.hub.Connect(sessionID, playerID, conn)

	go func() {
		defer h.hub.Disconnect(sessionID, playerID)
		defer func() {
			if err := h.party.HandleDisconnect(context.Background(), sessionID, playerID); err != nil {
				log.Printf("disconnect bookkeeping session=%s player=%s: %v", sessionID, playerID, err)
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error session=%s player=%s: %v", sessionID, playerID, err)
				}
				return
			}
		}
	}()
}
