// internal/support/handlers.go

package support

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

// GetTickets lists open tickets
func (h *Handler) GetTickets(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	tickets, err := h.service.ActiveTickets(r.Context(), limit)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get tickets")
		return
	}

	utils.RespondWithData(w, http.StatusOK, tickets)
}

// GetTicket returns one ticket with its messages
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid ticket ID")
		return
	}

	ticket, err := h.service.Ticket(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			utils.RespondWithError(w, http.StatusNotFound, "Ticket not found")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get ticket")
		return
	}

	utils.RespondWithData(w, http.StatusOK, ticket)
}

// CloseTicket closes an open ticket
func (h *Handler) CloseTicket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid ticket ID")
		return
	}

	if _, err := h.service.Close(r.Context(), id); err != nil {
		if errors.Is(err, ErrTicketClosed) {
			utils.RespondWithError(w, http.StatusConflict, err.Error())
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to close ticket")
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Ticket closed")
}
