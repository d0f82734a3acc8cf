package server

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/rankparty/rankparty/internal/config"
	"github.com/rankparty/rankparty/internal/game"
	httperrors "github.com/rankparty/rankparty/pkg/http/errors"
)

// NewHTTPServer wires base routes (health, metrics, websocket, QR join codes)
// for the API service.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, registry *game.Registry, gameWSHandler http.HandlerFunc) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	// WebSocket endpoint
	if gameWSHandler != nil {
		mux.HandleFunc("/ws", gameWSHandler)
	} else {
		mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "WebSocket handler not yet integrated", http.StatusNotImplemented)
		})
	}

	mux.HandleFunc("GET /rooms/{code}/qr", qrHandler(cfg, logger, registry))

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}

// qrHandler renders a PNG QR code pointing at the public join URL for a room,
// so phones can scan their way in instead of typing the code.
func qrHandler(cfg *config.App, logger zerolog.Logger, registry *game.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.PathValue("code")
		if code == "" {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeMissingField, "Missing room code")
			return
		}

		if _, ok := registry.Get(code); !ok {
			httperrors.RespondNotFound(w, httperrors.ErrCodeRoomNotFound, "Room not found")
			return
		}

		joinURL := fmt.Sprintf("%s/join/%s", cfg.PublicURL, code)

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(joinURL, qrcode.Medium, qrSize)
		if err != nil {
			logger.Error().Err(err).Str("room_code", code).Msg("qr generation failed")
			httperrors.RespondInternalError(w, "QR generation failed")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	}
}
