package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Dosada05/matchmaking-system/live"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict origins once the frontend domain is fixed.
		return true
	},
}

type WebSocketHandler struct {
	hub    *live.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *live.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// ServeQueue subscribes the connection to live state of one queue.
func (h *WebSocketHandler) ServeQueue(w http.ResponseWriter, r *http.Request) {
	tenantID, err := strconv.Atoi(chi.URLParam(r, "tenantID"))
	if err != nil || tenantID <= 0 {
		http.Error(w, "invalid tenant id", http.StatusBadRequest)
		return
	}
	queueName := chi.URLParam(r, "queueName")
	if queueName == "" {
		http.Error(w, "missing queue name", http.StatusBadRequest)
		return
	}

	h.serve(w, r, live.QueueRoom(tenantID, queueName))
}

// ServeMatch subscribes the connection to one match's event stream.
func (h *WebSocketHandler) ServeMatch(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "matchUID")
	if uid == "" {
		http.Error(w, "missing match uid", http.StatusBadRequest)
		return
	}

	h.serve(w, r, live.MatchRoom(uid))
}

func (h *WebSocketHandler) serve(w http.ResponseWriter, r *http.Request, room string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Error("websocket upgrade failed",
			slog.String("room", room),
			slog.Any("error", err))
		return
	}

	client := &live.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: room,
	}
	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
