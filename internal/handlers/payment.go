package handlers

import (
	"net/http"

	"github.com/devwebtn/facturation/internal/httpx"
	"github.com/devwebtn/facturation/internal/payments"
	"github.com/devwebtn/facturation/internal/services"
)

// PaymentHandler exposes intent creation and reconciliation.
type PaymentHandler struct {
	Svc *services.PaymentService
}

func NewPaymentHandler(svc *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{Svc: svc}
}

// CreateIntent: POST /api/payment/{factureID}/intent
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	invoiceID, err := urlID(r, "factureID")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var req struct {
		Provider string `json:"provider" validate:"required,oneof=card wallet"`
	}
	if err := decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	result, err := h.Svc.CreateIntent(r.Context(), ident, invoiceID, payments.Kind(req.Provider))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

// Confirm: POST /api/payment/{paymentID}/confirm
// The client calls this after completing the provider flow; the server
// asks the provider directly and never trusts the client's claim.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	paymentID, err := urlID(r, "paymentID")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	payment, err := h.Svc.Reconcile(r.Context(), ident, paymentID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

// Capture: POST /api/payment/{paymentID}/capture
// Wallet orders need an explicit capture step after client approval.
func (h *PaymentHandler) Capture(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	paymentID, err := urlID(r, "paymentID")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	payment, err := h.Svc.Capture(r.Context(), ident, paymentID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

// List: GET /api/payment/facture/{factureID}
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	invoiceID, err := urlID(r, "factureID")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	list, err := h.Svc.List(r.Context(), ident, invoiceID)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}
