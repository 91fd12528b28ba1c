package handlers

import (
	"net/http"

	"petsync/internal/push"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Upgrader for HTTP -> WebSocket. Transport security and origin policy are
// handled outside this service.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConnect upgrades the request and hands the connection to the push hub.
// The hub sends the connect snapshot during registration; the session's read
// pump feeds inbound frames into the sync core.
func (h *Handler) wsConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	push.NewSession(h.hub, conn, h.services.Sync, h.log).Start()
}
