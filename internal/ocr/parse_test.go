package ocr

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/devwebtn/facturation/internal/models"
)

func TestParseFullDocument(t *testing.T) {
	text := "Ste Bonjour\nFacture N° F0012-A7K\nMontant total: 450.00 TND\nStatut: Impayée"
	parsed := Parse(text)

	if parsed.InvoiceNumber != "F0012-A7K" {
		t.Fatalf("number = %q", parsed.InvoiceNumber)
	}
	if !parsed.Amount.Equal(decimal.RequireFromString("450.00")) {
		t.Fatalf("amount = %s", parsed.Amount)
	}
	if parsed.Status != models.InvoiceStatusUnpaid {
		t.Fatalf("status = %s", parsed.Status)
	}
}

func TestParseCommaDecimalAndPaidStatus(t *testing.T) {
	parsed := Parse("Total 325,50 TND - PAYÉE")
	if !parsed.Amount.Equal(decimal.RequireFromString("325.50")) {
		t.Fatalf("amount = %s", parsed.Amount)
	}
	if parsed.Status != models.InvoiceStatusPaid {
		t.Fatalf("status = %s", parsed.Status)
	}
}

func TestParseOverdueLabel(t *testing.T) {
	parsed := Parse("Statut: En retard")
	if parsed.Status != models.InvoiceStatusOverdue {
		t.Fatalf("status = %s", parsed.Status)
	}
}

func TestParseDefaults(t *testing.T) {
	parsed := Parse("rien d'utile ici")
	if parsed.InvoiceNumber != "F0000" {
		t.Fatalf("number = %q, want the F0000 default", parsed.InvoiceNumber)
	}
	if !parsed.Amount.IsZero() {
		t.Fatalf("amount = %s, want zero", parsed.Amount)
	}
	if parsed.Status != models.InvoiceStatusUnpaid {
		t.Fatalf("status = %s, want unpaid default", parsed.Status)
	}
}

func TestParseIgnoresMalformedNumber(t *testing.T) {
	parsed := Parse("Facture F12-AB Montant 10 TND")
	if parsed.InvoiceNumber != "F0000" {
		t.Fatalf("malformed number must not match, got %q", parsed.InvoiceNumber)
	}
	if !parsed.Amount.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("amount = %s", parsed.Amount)
	}
}
