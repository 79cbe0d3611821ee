// internal/profile/handlers.go

package profile

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/weekender/weekender-bot/internal/common/utils"
)

// Handler serves read-only profile endpoints for admins
type Handler struct {
	service Service
}

// NewHandler creates a new profile handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetUserProfile returns the profile of the user with the given Telegram id
func (h *Handler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	tgID, err := strconv.ParseInt(mux.Vars(r)["tg_id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), tgID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrProfileNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	utils.RespondWithData(w, http.StatusOK, profile)
}

// FindByUsername looks a profile up by @username
func (h *Handler) FindByUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "username is required")
		return
	}

	profile, err := h.service.FindByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrProfileNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Profile not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to find profile")
		return
	}

	utils.RespondWithData(w, http.StatusOK, profile)
}

// ListOptions returns the option catalogue of one category
func (h *Handler) ListOptions(w http.ResponseWriter, r *http.Request) {
	category, err := ParseCategory(mux.Vars(r)["category"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown category")
		return
	}

	options, err := h.service.Options(r.Context(), category)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list options")
		return
	}

	utils.RespondWithData(w, http.StatusOK, options)
}
