package dating

import (
	"github.com/gorilla/mux"
)

func RegisterRoutes(router *mux.Router, handler *Handler, requireAdmin mux.MiddlewareFunc) {
	admin := router.PathPrefix("/api/v1/admin/reactions").Subrouter()
	admin.Use(requireAdmin)

	admin.HandleFunc("/{tg_id:[0-9]+}", handler.GetReactions).Methods("GET")
	admin.HandleFunc("/reconcile", handler.Reconcile).Methods("POST")
}
