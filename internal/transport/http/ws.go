package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ServeWS upgrades the request and hands the connection to the notification hub.
// Clients only listen; anything they send is discarded.
func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	h.hub.Serve(conn)
}
