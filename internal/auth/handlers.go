// internal/auth/handlers.go

package auth

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/weekender/weekender-bot/internal/common/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Me returns the caller's token claims
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	utils.RespondWithData(w, http.StatusOK, map[string]interface{}{
		"tg_id":      claims.TgID,
		"username":   claims.Username,
		"role":       claims.Role,
		"expires_at": claims.ExpiresAt,
	})
}

// Logout revokes the token used for this request
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := h.service.RevokeToken(r.Context(), claims); err != nil {
		if errors.Is(err, ErrRevocationUnavailable) {
			utils.RespondWithError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to revoke token")
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Token revoked")
}

func (h *Handler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.service.Admins(r.Context())
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list admins")
		return
	}
	utils.RespondWithData(w, http.StatusOK, admins)
}

// SetAdmin promotes or demotes the user in the path
func (h *Handler) SetAdmin(w http.ResponseWriter, r *http.Request) {
	tgID, err := strconv.ParseInt(mux.Vars(r)["tg_id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req GrantRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.SetAdmin(r.Context(), tgID, *req.IsAdmin); err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, ErrBootstrapAdmin):
			utils.RespondWithError(w, http.StatusConflict, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update admin")
		}
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Admin updated")
}
