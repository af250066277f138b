package ocr

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/devwebtn/facturation/internal/models"
)

// Field patterns for scanned invoices. The number format matches what the
// invoice generator emits; the amount is a TND-suffixed figure; the status
// words are the French labels printed on the documents.
var (
	invoiceNumberRe = regexp.MustCompile(`F\d{4}-[A-Z0-9]{3}`)
	amountRe        = regexp.MustCompile(`(\d+(?:[.,]\d{2})?)\s*TND`)
	statusRe        = regexp.MustCompile(`(?i)(Payée|Impayée|En retard)`)
)

// ParsedInvoice is the best-effort field extraction from scanned text.
// Fields keep their defaults when no pattern matches.
type ParsedInvoice struct {
	InvoiceNumber string
	Amount        decimal.Decimal
	Status        string
}

// Parse scans extracted text for an invoice number, a TND amount and a
// status label. Defaults: F0000, zero amount, unpaid.
func Parse(text string) ParsedInvoice {
	parsed := ParsedInvoice{
		InvoiceNumber: "F0000",
		Amount:        decimal.Zero,
		Status:        models.InvoiceStatusUnpaid,
	}
	if m := invoiceNumberRe.FindString(text); m != "" {
		parsed.InvoiceNumber = m
	}
	if m := amountRe.FindStringSubmatch(text); m != nil {
		raw := strings.ReplaceAll(m[1], ",", ".")
		if amount, err := decimal.NewFromString(raw); err == nil {
			parsed.Amount = amount
		}
	}
	if m := statusRe.FindString(text); m != "" {
		switch strings.ToLower(m) {
		case "payée":
			parsed.Status = models.InvoiceStatusPaid
		case "en retard":
			parsed.Status = models.InvoiceStatusOverdue
		default:
			parsed.Status = models.InvoiceStatusUnpaid
		}
	}
	return parsed
}
