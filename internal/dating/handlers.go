package dating

import (
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

// GetReactions lists reactions sent or received by a user
func (h *Handler) GetReactions(w http.ResponseWriter, r *http.Request) {
	tgID, err := strconv.ParseInt(mux.Vars(r)["tg_id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	reactions, err := h.service.Reactions(r.Context(), tgID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get reactions")
		return
	}

	utils.RespondWithData(w, http.StatusOK, reactions)
}

// Reconcile recomputes like counters on demand
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ReconcileLikes(r.Context()); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to reconcile likes")
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Like counters reconciled")
}
