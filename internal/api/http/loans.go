package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"care-inventory-backend/internal/domain"
	"care-inventory-backend/internal/service"
)

type returnLoanRequest struct {
	Condition *string `json:"condition"`
	Notes     *string `json:"notes"`
}

type cancelReturnRequest struct {
	Reason *string `json:"reason"`
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.ErrInvalidInput
	}
	return n, nil
}

func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	loans, err := h.loanSvc.ListLoans(r.Context(), domain.LoanFilter{
		Status: domain.LoanStatus(q.Get("status")),
		UserID: q.Get("user_id"),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req service.CreateLoanInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	loan, err := h.loanSvc.CreateLoan(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.loanSvc.GetLoan(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (h *Handler) ReturnLoan(w http.ResponseWriter, r *http.Request) {
	var req returnLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	loan, err := h.loanSvc.ReturnLoan(r.Context(), mux.Vars(r)["id"], req.Condition, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (h *Handler) CancelReturn(w http.ResponseWriter, r *http.Request) {
	var req cancelReturnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	loan, err := h.loanSvc.CancelReturn(r.Context(), mux.Vars(r)["id"], req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (h *Handler) SweepOverdue(w http.ResponseWriter, r *http.Request) {
	n, err := h.loanSvc.SweepOverdue(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"marked": n})
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboardSvc.GetStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
