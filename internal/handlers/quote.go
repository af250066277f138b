package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/devwebtn/facturation/internal/httpx"
	"github.com/devwebtn/facturation/internal/services"
)

// QuoteHandler exposes the devis lifecycle endpoints.
type QuoteHandler struct {
	Svc *services.QuoteService
}

func NewQuoteHandler(svc *services.QuoteService) *QuoteHandler {
	return &QuoteHandler{Svc: svc}
}

type productDetailReq struct {
	SiteType     string `json:"site_type" validate:"required"`
	Features     string `json:"features"`
	CustomDesign bool   `json:"custom_design"`
	SEO          bool   `json:"seo"`
	OtherDetails string `json:"other_details"`
}

// Submit: POST /api/client/devis
func (h *QuoteHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req struct {
		Description string           `json:"description" validate:"required"`
		Details     string           `json:"details"`
		Amount      decimal.Decimal  `json:"amount" validate:"required"`
		Detail      productDetailReq `json:"product_detail" validate:"required"`
	}
	if err := decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	quote, err := h.Svc.Submit(r.Context(), ident, services.SubmitQuoteInput{
		Description: req.Description,
		Details:     req.Details,
		Amount:      req.Amount,
		Detail: services.ProductDetailInput{
			SiteType:     req.Detail.SiteType,
			Features:     req.Detail.Features,
			CustomDesign: req.Detail.CustomDesign,
			SEO:          req.Detail.SEO,
			OtherDetails: req.Detail.OtherDetails,
		},
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quote)
}

// List: GET /api/devis (admin sees all, clients their own)
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	quotes, err := h.Svc.List(r.Context(), ident)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotes)
}

// Get: GET /api/devis/{id}
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	id, err := urlID(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	quote, err := h.Svc.Get(r.Context(), ident, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

// Approve: POST /api/devis/{id}/approve (admin)
func (h *QuoteHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	id, err := urlID(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	quote, err := h.Svc.Approve(r.Context(), ident, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

// Reject: POST /api/devis/{id}/reject (admin, with counter-offer)
func (h *QuoteHandler) Reject(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	id, err := urlID(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var req struct {
		CounterOffer   string           `json:"counter_offer" validate:"required"`
		ProposedAmount *decimal.Decimal `json:"proposed_amount"`
		SpecDocument   []byte           `json:"spec_document"` // base64 in JSON
	}
	if err := decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	quote, err := h.Svc.RejectWithCounterOffer(r.Context(), ident, id, req.CounterOffer, req.ProposedAmount, req.SpecDocument)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

// CounterOfferResponse: POST /api/client/devis/{id}/counter-offer-response
func (h *QuoteHandler) CounterOfferResponse(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	id, err := urlID(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	var req struct {
		Action               string           `json:"action" validate:"required,oneof=accept reject modify"`
		ModifiedCounterOffer string           `json:"modified_counter_offer"`
		ProposedAmount       *decimal.Decimal `json:"proposed_amount"`
	}
	if err := decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	quote, err := h.Svc.RespondToCounterOffer(r.Context(), ident, id, req.Action, req.ModifiedCounterOffer, req.ProposedAmount)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

// SpecificationPDF: GET /api/devis/{id}/specification-pdf
func (h *QuoteHandler) SpecificationPDF(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	id, err := urlID(r, "id")
	if err != nil {
		httpx.Error(w, err)
		return
	}
	doc, err := h.Svc.SpecificationPDF(r.Context(), ident, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=cahier_des_charges.pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
