package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/imjasonh/fusionchess/internal/config"
	"github.com/imjasonh/fusionchess/internal/lobby"
	"github.com/imjasonh/fusionchess/internal/wsapi"
	sshproxy "github.com/imjasonh/ssh-proxy"
)

func newMux(cfg config.Config, manager *lobby.Manager, logger *log.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, map[string]any{
			"status":      "healthy",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"activeRooms": manager.Stats().ActiveRooms,
		})
	})
	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		stats := manager.Stats()
		writeJSON(w, logger, map[string]any{
			"message":     "Fusion chess server is running",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"mode":        cfg.Mode,
			"activeRooms": stats.ActiveRooms,
			"queued":      stats.Queued,
			"rooms":       stats.Rooms,
		})
	})
	mux.Handle("/ws", wsapi.NewHandler(manager, logger, cfg.AllowOrigin))
	mux.HandleFunc("/ssh", sshproxy.ProxyWebSocketToSSH(cfg.SSHAddr(), websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return cfg.AllowOrigin == "" || origin == "" || origin == cfg.AllowOrigin
		},
	}))
	return mux
}

func writeJSON(w http.ResponseWriter, logger *log.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("writing response", "err", err)
	}
}
