package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/devwebtn/facturation/internal/core"
	"github.com/devwebtn/facturation/internal/docstore"
	"github.com/devwebtn/facturation/internal/models"
	"github.com/devwebtn/facturation/internal/ocr"
	"github.com/devwebtn/facturation/internal/pdf"
)

// Invoices fall due 30 days after creation; the overdue sweep acts on
// this, never the request path.
const invoiceDueDays = 30

const invoiceNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewInvoiceNumber builds the F<quoteID:04d>-<3-char suffix> number.
// Quote-less invoices pass zero and get the F0000 prefix.
func NewInvoiceNumber(quoteID uint) string {
	suffix := make([]byte, 3)
	random := make([]byte, 3)
	if _, err := rand.Read(random); err != nil {
		// Timestamp fallback keeps numbers unique enough if the entropy
		// source ever fails.
		return fmt.Sprintf("F%04d-%03d", quoteID, time.Now().UnixNano()%1000)
	}
	for i, b := range random {
		suffix[i] = invoiceNumberAlphabet[int(b)%len(invoiceNumberAlphabet)]
	}
	return fmt.Sprintf("F%04d-%s", quoteID, suffix)
}

const invoiceNumberAttempts = 5

// Both drivers name the violated constraint, so a random-suffix
// collision is told apart from other create failures.
func isDuplicateInvoiceNumber(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "invoice_number") &&
		(strings.Contains(msg, "UNIQUE") || strings.Contains(msg, "duplicate"))
}

// createWithFreshNumber inserts the invoice, regenerating its number on a
// unique-index collision. The suffix space is small enough that quote-less
// F0000 numbers do collide eventually.
func createWithFreshNumber(tx *gorm.DB, invoice *models.Invoice) error {
	var quoteID uint
	if invoice.QuoteID != nil {
		quoteID = *invoice.QuoteID
	}
	var err error
	for i := 0; i < invoiceNumberAttempts; i++ {
		err = tx.Create(invoice).Error
		if err == nil || !isDuplicateInvoiceNumber(err) {
			return err
		}
		invoice.ID = 0
		invoice.InvoiceNumber = NewInvoiceNumber(quoteID)
	}
	return err
}

// ensureInvoiceForQuote synthesizes the invoice for an approved quote,
// with exactly one line item covering the full amount. The existence
// check runs inside the caller's transaction and the unique index on
// invoices.quote_id backs it, so concurrent approvals cannot create two.
func ensureInvoiceForQuote(tx *gorm.DB, quote *models.Quote) (*models.Invoice, error) {
	var count int64
	if err := tx.Model(&models.Invoice{}).Where("quote_id = ?", quote.ID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}
	invoice := models.Invoice{
		ClientID:      quote.ClientID,
		QuoteID:       &quote.ID,
		InvoiceNumber: NewInvoiceNumber(quote.ID),
		Amount:        quote.Amount,
		Status:        models.InvoiceStatusUnpaid,
		DueDate:       time.Now().AddDate(0, 0, invoiceDueDays),
		LineItems: []models.LineItem{{
			Designation: quote.Description,
			UnitPrice:   quote.Amount,
			Quantity:    1,
		}},
	}
	if err := createWithFreshNumber(tx, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// InvoiceService owns invoice reads, manual creation, line-item
// replacement, OCR ingestion, PDF rendering and the overdue sweep.
type InvoiceService struct {
	db        *gorm.DB
	log       *logrus.Logger
	audit     AuditSink
	docs      docstore.Store
	extractor ocr.TextExtractor
	renderer  *pdf.Renderer
}

func NewInvoiceService(db *gorm.DB, log *logrus.Logger, audit AuditSink, docs docstore.Store, extractor ocr.TextExtractor, renderer *pdf.Renderer) *InvoiceService {
	return &InvoiceService{db: db, log: log, audit: audit, docs: docs, extractor: extractor, renderer: renderer}
}

// Get loads an invoice with lines and payments. Clients see own only; the
// not-found answer deliberately does not reveal other clients' invoices.
func (s *InvoiceService) Get(ctx context.Context, identity core.Identity, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.db.WithContext(ctx).Preload("LineItems").Preload("Payments").Preload("Client").First(&invoice, id).Error; err != nil {
		return nil, core.NotFound("facture")
	}
	if !identity.IsAdmin() && !identity.Owns(invoice.ClientID) {
		return nil, core.NotFound("facture")
	}
	return &invoice, nil
}

func (s *InvoiceService) List(ctx context.Context, identity core.Identity) ([]models.Invoice, error) {
	q := s.db.WithContext(ctx).Preload("LineItems").Preload("Payments").Order("id desc")
	if !identity.IsAdmin() {
		q = q.Where("client_id = ?", identity.ClientID)
	}
	var invoices []models.Invoice
	if err := q.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

type LineItemInput struct {
	Designation string
	UnitPrice   decimal.Decimal
	Quantity    int
}

func validateLineItems(items []LineItemInput) error {
	for i, it := range items {
		if strings.TrimSpace(it.Designation) == "" {
			return core.Validation("ligne de facture invalide", map[string]string{
				fmt.Sprintf("items[%d].designation", i): "requis",
			})
		}
		if it.UnitPrice.IsNegative() {
			return core.Validation("ligne de facture invalide", map[string]string{
				fmt.Sprintf("items[%d].unit_price", i): "doit être positif ou nul",
			})
		}
		if it.Quantity < 0 {
			return core.Validation("ligne de facture invalide", map[string]string{
				fmt.Sprintf("items[%d].quantity", i): "doit être positif ou nul",
			})
		}
	}
	return nil
}

type CreateInvoiceInput struct {
	ClientID uint
	Amount   decimal.Decimal
	Items    []LineItemInput
}

// Create makes a manual (quote-less) invoice.
func (s *InvoiceService) Create(ctx context.Context, identity core.Identity, in CreateInvoiceInput) (*models.Invoice, error) {
	if !identity.IsAdmin() {
		return nil, core.Forbidden("réservé à l'administrateur")
	}
	if !in.Amount.IsPositive() {
		return nil, core.Validation("facture invalide", map[string]string{"amount": "le montant doit être positif"})
	}
	if err := validateLineItems(in.Items); err != nil {
		return nil, err
	}
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, in.ClientID).Error; err != nil {
		return nil, core.NotFound("client")
	}
	invoice := models.Invoice{
		ClientID:      client.ID,
		InvoiceNumber: NewInvoiceNumber(0),
		Amount:        in.Amount.Round(2),
		Status:        models.InvoiceStatusUnpaid,
		DueDate:       time.Now().AddDate(0, 0, invoiceDueDays),
	}
	for _, it := range in.Items {
		invoice.LineItems = append(invoice.LineItems, models.LineItem{
			Designation: it.Designation,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
		})
	}
	if err := createWithFreshNumber(s.db.WithContext(ctx), &invoice); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, client.ID, "Facture "+invoice.InvoiceNumber+" créée")
	return s.Get(ctx, identity, invoice.ID)
}

// ReplaceLineItems swaps the invoice's lines for the new set, all or
// nothing. A failure mid-replacement rolls the previous lines back rather
// than leaving the invoice empty.
func (s *InvoiceService) ReplaceLineItems(ctx context.Context, identity core.Identity, invoiceID uint, items []LineItemInput) (*models.Invoice, error) {
	if !identity.IsAdmin() {
		return nil, core.Forbidden("réservé à l'administrateur")
	}
	if err := validateLineItems(items); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.First(&invoice, invoiceID).Error; err != nil {
			return core.NotFound("facture")
		}
		if err := tx.Where("invoice_id = ?", invoiceID).Delete(&models.LineItem{}).Error; err != nil {
			return err
		}
		for _, it := range items {
			line := models.LineItem{
				InvoiceID:   invoiceID,
				Designation: it.Designation,
				UnitPrice:   it.UnitPrice,
				Quantity:    it.Quantity,
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, identity, invoiceID)
}

// IngestScan stores a scanned document, extracts its text through the OCR
// collaborator and creates an invoice from the recognized fields.
func (s *InvoiceService) IngestScan(ctx context.Context, identity core.Identity, clientID uint, filename string, data []byte) (*models.Invoice, error) {
	if !identity.IsAdmin() {
		return nil, core.Forbidden("réservé à l'administrateur")
	}
	if len(data) == 0 {
		return nil, core.Validation("aucune image ou PDF fourni", nil)
	}

	var client models.Client
	if clientID != 0 {
		if err := s.db.WithContext(ctx).First(&client, clientID).Error; err != nil {
			return nil, core.NotFound("client")
		}
	} else {
		// Legacy behavior: attach to the first registered client.
		if err := s.db.WithContext(ctx).Order("id").First(&client).Error; err != nil {
			return nil, core.Validation("aucun client dans la base", nil)
		}
	}

	text, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, core.Validation("aucun texte détecté dans le fichier", nil)
	}
	parsed := ocr.Parse(text)

	ref, err := s.docs.Save(ctx, fmt.Sprintf("scan_%d_%s", time.Now().Unix(), filename), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	invoice := models.Invoice{
		ClientID:      client.ID,
		InvoiceNumber: parsed.InvoiceNumber,
		Amount:        parsed.Amount,
		Status:        parsed.Status,
		DueDate:       time.Now().AddDate(0, 0, invoiceDueDays),
		ImageRef:      &ref,
	}
	if err := s.db.WithContext(ctx).Create(&invoice).Error; err != nil {
		return nil, err
	}
	s.audit.Record(ctx, client.ID, "Facture "+invoice.InvoiceNumber+" importée par OCR")
	return s.Get(ctx, identity, invoice.ID)
}

// RenderPDF produces the printable facture.
func (s *InvoiceService) RenderPDF(ctx context.Context, identity core.Identity, invoiceID uint) ([]byte, error) {
	invoice, err := s.Get(ctx, identity, invoiceID)
	if err != nil {
		return nil, err
	}
	return s.renderer.Invoice(invoice)
}

// MarkOverdue flips unpaid invoices past their due date to overdue. Runs
// from the sweep binary on a schedule; nothing in the request path calls
// it.
func (s *InvoiceService) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("status = ? AND due_date < ?", models.InvoiceStatusUnpaid, now).
		Update("status", models.InvoiceStatusOverdue)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.log.WithField("count", res.RowsAffected).Info("invoices marked overdue")
	}
	return res.RowsAffected, nil
}
