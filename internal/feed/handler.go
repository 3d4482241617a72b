// internal/feed/handler.go

package feed

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the feed only carries public posts
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and subscribes the connection to the feed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "feed upgrade failed", "error", err)
		return
	}

	client := newClient(h, conn)
	select {
	case h.register <- client:
		client.start()
	case <-h.ctx.Done():
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
	}
}

func RegisterRoutes(router *mux.Router, hub *Hub) {
	router.HandleFunc("/api/v1/feed/ws", hub.ServeWS).Methods("GET")
}
