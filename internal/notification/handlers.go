// internal/notification/handlers.go

package notification

import (
	"net/http"
	"strconv"

	"github.com/weekender/weekender-bot/internal/common/utils"
)

// Handler exposes mailing history and segment previews to admins
type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetMailings lists recent mailings, newest first
func (h *Handler) GetMailings(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.service.History(r.Context(), limit)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get mailings")
		return
	}

	utils.RespondWithData(w, http.StatusOK, records)
}

// PreviewSegment counts the users a segment would reach
func (h *Handler) PreviewSegment(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	count, err := h.service.CountRecipients(r.Context(), &req.Segment)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to count recipients")
		return
	}

	utils.RespondWithData(w, http.StatusOK, PreviewResponse{
		Recipients: count,
		Summary:    req.Segment.Describe(),
	})
}
