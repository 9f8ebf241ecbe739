package http

import (
	"net/http"

	"care-inventory-backend/internal/domain"
)

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	events, err := h.eventSvc.List(r.Context(), domain.EventFilter{
		Type:   domain.EventType(q.Get("type")),
		LoanID: q.Get("loan_id"),
		UserID: q.Get("user_id"),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handler) VerifyEventChain(w http.ResponseWriter, r *http.Request) {
	report, err := h.eventSvc.VerifyChain(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
