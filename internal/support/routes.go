// internal/support/routes.go

package support

import (
	"github.com/gorilla/mux"
)

func RegisterRoutes(router *mux.Router, handler *Handler, requireAdmin mux.MiddlewareFunc) {
	admin := router.PathPrefix("/api/v1/admin/support").Subrouter()
	admin.Use(requireAdmin)

	admin.HandleFunc("/tickets", handler.GetTickets).Methods("GET")
	admin.HandleFunc("/tickets/{id:[0-9]+}", handler.GetTicket).Methods("GET")
	admin.HandleFunc("/tickets/{id:[0-9]+}/close", handler.CloseTicket).Methods("POST")
}
