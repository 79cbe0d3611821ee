// internal/events/routes.go

package events

import (
	"github.com/gorilla/mux"
)

func RegisterRoutes(router *mux.Router, handler *Handler, requireAdmin mux.MiddlewareFunc) {
	admin := router.PathPrefix("/api/v1/admin/events").Subrouter()
	admin.Use(requireAdmin)

	admin.HandleFunc("", handler.GetEvents).Methods("GET")
	admin.HandleFunc("", handler.CreateEvent).Methods("POST")
	admin.HandleFunc("/{id:[0-9]+}", handler.GetEvent).Methods("GET")
	admin.HandleFunc("/{id:[0-9]+}", handler.DeleteEvent).Methods("DELETE")
}
