package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/devwebtn/facturation/internal/httpx"
	"github.com/devwebtn/facturation/internal/services"
)

// Scanned uploads are bounded; anything bigger is not an invoice photo.
const maxScanBytes = 10 << 20

// InvoiceHandler exposes facture endpoints.
type InvoiceHandler struct {
	Svc *services.InvoiceService
}

func NewInvoiceHandler(svc *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{Svc: svc}
}

type lineItemReq struct {
	Designation string          `json:"designation" validate:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity" validate:"min=0"`
}

func lineItemInputs(items []lineItemReq) []services.LineItemInput {
	out := make([]services.LineItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, services.LineItemInput{
			Designation: it.Designation,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
		})
	}
	return out
}

// List: GET /api/factures
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	invoices, err := h.Svc.List(r.Context(), ident)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoices)
}

// Get: GET /api/factures/{id}
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	invoice, err := h.Svc.Get(r.Context(), ident, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

// Create: POST /api/factures (admin, manual invoice)
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	var req struct {
		ClientID uint            `json:"client_id" validate:"required"`
		Amount   decimal.Decimal `json:"amount" validate:"required"`
		Items    []lineItemReq   `json:"items"`
	}
	if err := decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	invoice, err := h.Svc.Create(r.Context(), ident, services.CreateInvoiceInput{
		ClientID: req.ClientID,
		Amount:   req.Amount,
		Items:    lineItemInputs(req.Items),
	})
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

// ReplaceLineItems: PUT /api/factures/{id}/items (admin)
func (h *InvoiceHandler) ReplaceLineItems(w http.ResponseWriter, r *http.Request) {
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
		Items []lineItemReq `json:"items" validate:"required"`
	}
	if err := decode(r, &req); err != nil {
		httpx.Error(w, err)
		return
	}
	invoice, err := h.Svc.ReplaceLineItems(r.Context(), ident, id, lineItemInputs(req.Items))
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

// IngestScan: POST /api/facture/ocr (admin, multipart upload)
func (h *InvoiceHandler) IngestScan(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(r)
	if !ok {
		unauthorized(w)
		return
	}
	if err := r.ParseMultipartForm(maxScanBytes); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "fichier manquant ou trop volumineux", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "aucune image ou PDF fourni", nil)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxScanBytes))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "lecture du fichier impossible", nil)
		return
	}

	var clientID uint
	if v := r.FormValue("client_id"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "client_id invalide", nil)
			return
		}
		clientID = uint(n)
	}

	invoice, err := h.Svc.IngestScan(r.Context(), ident, clientID, header.Filename, data)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

// PDF: GET /api/factures/{id}/pdf
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
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
	doc, err := h.Svc.RenderPDF(r.Context(), ident, id)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=facture_%d.pdf", id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
