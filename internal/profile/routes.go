// internal/profile/routes.go

package profile

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers admin profile lookups
func RegisterRoutes(router *mux.Router, handler *Handler, requireAdmin mux.MiddlewareFunc) {
	admin := router.PathPrefix("/api/v1/admin").Subrouter()
	admin.Use(requireAdmin)

	admin.HandleFunc("/users/search", handler.FindByUsername).Methods("GET")
	admin.HandleFunc("/users/{tg_id:[0-9]+}", handler.GetUserProfile).Methods("GET")
	admin.HandleFunc("/options/{category}", handler.ListOptions).Methods("GET")
}
