// internal/auth/routes.go

package auth

import (
	"github.com/gorilla/mux"
)

func RegisterRoutes(router *mux.Router, handler *Handler, requireAdmin mux.MiddlewareFunc) {
	admin := router.PathPrefix("/api/v1/admin").Subrouter()
	admin.Use(requireAdmin)

	admin.HandleFunc("/me", handler.Me).Methods("GET")
	admin.HandleFunc("/logout", handler.Logout).Methods("POST")
	admin.HandleFunc("/admins", handler.ListAdmins).Methods("GET")
	admin.HandleFunc("/admins/{tg_id:[0-9]+}", handler.SetAdmin).Methods("PUT")
}
