// internal/notification/routes.go

package notification

import (
	"github.com/gorilla/mux"
)

func RegisterRoutes(router *mux.Router, handler *Handler, requireAdmin mux.MiddlewareFunc) {
	admin := router.PathPrefix("/api/v1/admin/mailings").Subrouter()
	admin.Use(requireAdmin)

	admin.HandleFunc("", handler.GetMailings).Methods("GET")
	admin.HandleFunc("/preview", handler.PreviewSegment).Methods("POST")
}
