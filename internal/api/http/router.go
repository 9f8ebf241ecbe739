package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"care-inventory-backend/internal/security"
	"care-inventory-backend/internal/service"
)

const (
	apiPrefix  = "/api/v1"
	healthPath = "/healthz"
)

// Handler serves the inventory REST API.
type Handler struct {
	itemSvc      service.ItemService
	userSvc      service.UserService
	loanSvc      service.LoanService
	dashboardSvc service.DashboardService
	eventSvc     service.EventService
}

func NewHandler(
	itemSvc service.ItemService,
	userSvc service.UserService,
	loanSvc service.LoanService,
	dashboardSvc service.DashboardService,
	eventSvc service.EventService,
) *Handler {
	return &Handler{
		itemSvc:      itemSvc,
		userSvc:      userSvc,
		loanSvc:      loanSvc,
		dashboardSvc: dashboardSvc,
		eventSvc:     eventSvc,
	}
}

// NewRouter registers every route. tm may be nil to disable authentication.
func NewRouter(h *Handler, tm security.TokenManager) *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware, authMiddleware(tm))

	router.HandleFunc(healthPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := router.PathPrefix(apiPrefix).Subrouter()

	api.HandleFunc("/items", h.ListItems).Methods(http.MethodGet)
	api.HandleFunc("/items", h.CreateItem).Methods(http.MethodPost)
	api.HandleFunc("/items/defaults", h.AddDefaultItems).Methods(http.MethodPost)
	api.HandleFunc("/items/catalog", h.DefaultCatalog).Methods(http.MethodGet)
	api.HandleFunc("/items/{id}", h.GetItem).Methods(http.MethodGet)
	api.HandleFunc("/items/{id}/stock", h.SetTotalStock).Methods(http.MethodPut)
	api.HandleFunc("/items/{id}/reserve", h.ReserveItem).Methods(http.MethodPost)
	api.HandleFunc("/items/{id}/release", h.ReleaseItem).Methods(http.MethodPost)

	api.HandleFunc("/users", h.ListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users", h.CreateUser).Methods(http.MethodPost)
	api.HandleFunc("/users/{id}", h.GetUser).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", h.UpdateUser).Methods(http.MethodPatch)
	api.HandleFunc("/users/{id}", h.DeleteUser).Methods(http.MethodDelete)

	api.HandleFunc("/loans", h.ListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans", h.CreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/sweep-overdue", h.SweepOverdue).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}", h.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{id}/return", h.ReturnLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/cancel-return", h.CancelReturn).Methods(http.MethodPost)

	api.HandleFunc("/dashboard", h.GetDashboard).Methods(http.MethodGet)

	api.HandleFunc("/events", h.ListEvents).Methods(http.MethodGet)
	api.HandleFunc("/events/verify", h.VerifyEventChain).Methods(http.MethodGet)

	return router
}
