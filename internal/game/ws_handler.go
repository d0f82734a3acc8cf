package game

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			// Same-host browsers are always welcome.
			if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
				return true
			}
			return false
		},
	}
}

// ServeWS upgrades an HTTP request to a WebSocket connection and hands it to
// the game handler.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}

	h.logger.Info().Str("remote", r.RemoteAddr).Msg("websocket connection established")
	h.HandleConnection(conn)
}
