package hub

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/AnYiFan117/chat-room/internal/signal"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Browser clients may join from any webapp origin; the room model has
	// no origin-based trust to protect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWs returns the handler that upgrades signaling websocket requests
// and hands the connection to the hub.
func ServeWs(h *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "err", err)
			return
		}

		client := &Client{
			hub:  h,
			conn: conn,
			Send: make(chan *signal.Message, 256),
		}
		h.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}

// ListenAndServe runs the rendezvous server with /ws and /health endpoints
// until the listener fails.
func ListenAndServe(addr string) error {
	h := New()
	go h.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("signaling server is healthy"))
	})
	mux.HandleFunc("/ws", ServeWs(h))

	slog.Info("signaling server listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}
