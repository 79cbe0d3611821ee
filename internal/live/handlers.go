// internal/live/handlers.go

package live

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/weekender/weekender-bot/internal/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// admin tools connect from anywhere; the bearer token is the gate
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// Stream upgrades an authenticated admin request to a websocket of mailing events
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	var adminTgID int64
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		adminTgID = claims.TgID
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.hub.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(h.hub, conn, adminTgID)
	select {
	case h.hub.register <- client:
		client.start()
	case <-h.hub.done:
		conn.Close()
	}
}

func RegisterRoutes(router *mux.Router, handler *Handler, requireAdmin mux.MiddlewareFunc) {
	admin := router.PathPrefix("/api/v1/admin/live").Subrouter()
	admin.Use(requireAdmin)

	admin.HandleFunc("", handler.Stream).Methods("GET")
}
