package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"smartstock/m/domain"
	"smartstock/m/internal/alerts"
	"smartstock/m/internal/billing"
	"smartstock/m/internal/ledger"
	"smartstock/m/internal/prediction"
	"smartstock/m/internal/servererrors"
)

// AlertSender delivers reorder alert emails. Satisfied by mailer.Mailer.
type AlertSender interface {
	SendReorderAlert(ctx context.Context, to string, alerts []domain.ReorderAlert) error
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	ledger      *ledger.Ledger
	billing     *billing.Store
	predictions *prediction.Client
	mailer      AlertSender
	alertEmail  string
}

// New constructs a Handler. alertEmail is the default recipient for reorder
// emails when the request does not name one.
func New(l *ledger.Ledger, b *billing.Store, p *prediction.Client, m AlertSender, alertEmail string) *Handler {
	return &Handler{ledger: l, billing: b, predictions: p, mailer: m, alertEmail: alertEmail}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"}, // Change "*" to a list of allowed domains (e.g., ["http://localhost:3000"])
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", h.banner)
	r.Get("/health", h.health)

	r.Route("/api/items", func(r chi.Router) {
		r.Get("/", h.listItems)
		r.Post("/", h.createItem)
		r.Get("/barcode/{code}", h.itemByBarcode)
		r.Get("/{id}", h.getItem)
		r.Patch("/{id}", h.updateItem)
		r.Delete("/{id}", h.deleteItem)
		r.Put("/{id}/receive", h.receiveStock)
		r.Put("/{id}/sell", h.sellStock)
	})

	r.Route("/api/customers", func(r chi.Router) {
		r.Get("/", h.listCustomers)
		r.Post("/", h.createCustomer)
		r.Get("/{id}", h.getCustomer)
		r.Put("/{id}", h.updateCustomer)
		r.Delete("/{id}", h.deleteCustomer)
	})

	r.Route("/api/bills", func(r chi.Router) {
		r.Get("/", h.listBills)
		r.Post("/", h.createBill)
		r.Get("/{id}", h.getBill)
	})

	r.Route("/api/ai", func(r chi.Router) {
		r.Get("/predictions/{productId}", h.productPredictions)
		r.Get("/predictions", h.allPredictions)
		r.Get("/reorder-alerts", h.reorderAlerts)
		r.Post("/send-reorder-email", h.sendReorderEmail)
		r.Get("/health", h.aiHealth)
	})

	return r
}

func (h *Handler) banner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Smart Inventory & Billing System API"))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Item handlers

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.ledger.ListItems(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var params ledger.CreateItemParams
	if err := decodeJSON(r, &params); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.ledger.CreateItem(r.Context(), params)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.ledger.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) itemByBarcode(w http.ResponseWriter, r *http.Request) {
	item, err := h.ledger.GetItemByBarcode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	var upd ledger.ItemUpdate
	if err := decodeJSON(r, &upd); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.ledger.UpdateItem(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Deleted Item"})
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

func (h *Handler) receiveStock(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.ledger.Receive(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (h *Handler) sellStock(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.ledger.Sell(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// Customer handlers

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.billing.ListCustomers(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, customers)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var params billing.CustomerParams
	if err := decodeJSON(r, &params); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	customer, err := h.billing.CreateCustomer(r.Context(), params)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, customer)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.billing.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, customer)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	var upd billing.CustomerUpdate
	if err := decodeJSON(r, &upd); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	customer, err := h.billing.UpdateCustomer(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, customer)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.billing.DeleteCustomer(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Deleted Customer"})
}

// Bill handlers

func (h *Handler) listBills(w http.ResponseWriter, r *http.Request) {
	bills, err := h.billing.ListBills(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bills)
}

func (h *Handler) createBill(w http.ResponseWriter, r *http.Request) {
	var params billing.CreateBillParams
	if err := decodeJSON(r, &params); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	bill, err := h.billing.CreateBill(r.Context(), params)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, bill)
}

func (h *Handler) getBill(w http.ResponseWriter, r *http.Request) {
	bill, err := h.billing.GetBill(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bill)
}

// AI route handlers. These keep the success/error envelope of the original
// API: {success, ...} on success, {success:false, error, message} on failure.

func (h *Handler) productPredictions(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	productID := chi.URLParam(r, "productId")

	forecast, err := h.predictions.ProductForecast(r.Context(), productID, days)
	if err != nil {
		respondServiceError(w, "AI prediction service unavailable", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"productId":     forecast.ProductID,
		"predictions":   forecast.Predictions,
		"avgPrediction": forecast.AvgPrediction,
		"confidence":    forecast.Confidence,
		"method":        forecast.Method,
	})
}

func (h *Handler) allPredictions(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	batch, err := h.predictions.AllForecasts(r.Context(), days)
	if err != nil {
		respondServiceError(w, "AI prediction service unavailable", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"days":          batch.Days,
		"predictions":   batch.Predictions,
		"totalProducts": batch.TotalProducts,
	})
}

func (h *Handler) reorderAlerts(w http.ResponseWriter, r *http.Request) {
	items, err := h.ledger.ListItems(r.Context())
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Unable to generate reorder alerts",
			"message": err.Error(),
			"alerts":  []domain.ReorderAlert{},
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"alerts":  alerts.Derive(items),
	})
}

type reorderEmailRequest struct {
	Alerts []domain.ReorderAlert `json:"alerts"`
	Email  string                `json:"email"`
}

func (h *Handler) sendReorderEmail(w http.ResponseWriter, r *http.Request) {
	var req reorderEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}
	if len(req.Alerts) == 0 {
		respondJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "No alerts provided"})
		return
	}
	to := req.Email
	if to == "" {
		to = h.alertEmail
	}
	if err := h.mailer.SendReorderAlert(r.Context(), to, req.Alerts); err != nil {
		respondServiceError(w, "Failed to send email", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"message":         "Reorder alert email sent to " + to,
		"alertsProcessed": len(req.Alerts),
	})
}

func (h *Handler) aiHealth(w http.ResponseWriter, r *http.Request) {
	status, err := h.predictions.Health(r.Context())
	if err != nil {
		// Reachability report, not a failure of this API.
		respondJSON(w, http.StatusOK, map[string]any{
			"success":   false,
			"aiService": "unavailable",
			"error":     err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"aiService": status,
	})
}

// Helpers

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondDomainError maps the error taxonomy to HTTP statuses.
func respondDomainError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func respondServiceError(w http.ResponseWriter, label string, err error) {
	respondJSON(w, http.StatusInternalServerError, map[string]any{
		"success": false,
		"error":   label,
		"message": err.Error(),
	})
}

func statusFor(err error) int {
	var validation *servererrors.ValidationError
	var notFound *servererrors.NotFoundError
	var insufficient *servererrors.InsufficientStockError
	var external *servererrors.ExternalServiceError

	switch {
	case errors.As(err, &validation), errors.As(err, &insufficient):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &external):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
