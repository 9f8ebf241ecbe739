package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"care-inventory-backend/internal/service"
)

type stockRequest struct {
	TotalStock int32 `json:"total_stock"`
}

type quantityRequest struct {
	Quantity int32 `json:"quantity"`
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemSvc.SearchItems(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req service.CreateItemInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	item, err := h.itemSvc.CreateItem(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.itemSvc.GetItem(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) SetTotalStock(w http.ResponseWriter, r *http.Request) {
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	item, err := h.itemSvc.SetTotalStock(r.Context(), mux.Vars(r)["id"], req.TotalStock)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) ReserveItem(w http.ResponseWriter, r *http.Request) {
	req := quantityRequest{Quantity: 1}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	item, err := h.itemSvc.Reserve(r.Context(), mux.Vars(r)["id"], req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) ReleaseItem(w http.ResponseWriter, r *http.Request) {
	req := quantityRequest{Quantity: 1}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	item, err := h.itemSvc.Release(r.Context(), mux.Vars(r)["id"], req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) AddDefaultItems(w http.ResponseWriter, r *http.Request) {
	created, err := h.itemSvc.AddDefaultItems(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) DefaultCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.itemSvc.DefaultCatalog())
}
