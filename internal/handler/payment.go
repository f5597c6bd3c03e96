package handler

import (
	"net/http"

	"github.com/contractdesk/backend/internal/domain"
	"github.com/contractdesk/backend/internal/service"
	"github.com/go-chi/chi/v5"
)

// PaymentHandler handles payment and billing endpoints.
type PaymentHandler struct {
	billing *service.BillingService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(billing *service.BillingService) *PaymentHandler {
	return &PaymentHandler{billing: billing}
}

// CompletePayment handles POST /api/payments/complete.
func (h *PaymentHandler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	var req domain.CompletePaymentRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, err)
		return
	}

	session, err := h.billing.CompletePayment(r.Context(), &req)
	if err != nil {
		Error(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"checkoutSession": session,
	})
}

// GetCustomer handles GET /api/billing/customers/{id}.
func (h *PaymentHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.billing.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, customer)
}

// ListSubscriptions handles GET /api/billing/subscriptions. The optional
// ?customer= parameter filters by customer id.
func (h *PaymentHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.billing.ListSubscriptions(r.Context(), r.URL.Query().Get("customer"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, subs)
}

// ListTransactions handles GET /api/billing/transactions. The optional
// ?customer= parameter keeps only transactions whose charge resolves to that
// customer.
func (h *PaymentHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.billing.ListTransactions(r.Context(), r.URL.Query().Get("customer"))
	if err != nil {
		Error(w, err)
		return
	}
	JSON(w, http.StatusOK, transactions)
}
