package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/devwebtn/facturation/internal/core"
	"github.com/devwebtn/facturation/internal/locks"
	"github.com/devwebtn/facturation/internal/models"
	"github.com/devwebtn/facturation/internal/notify"
	"github.com/devwebtn/facturation/internal/payments"
)

// Per-payment reconciliation lock TTL. Long enough to cover a slow
// provider status call, short enough that a crashed worker does not
// block the payment for long.
const reconcileLockTTL = 30 * time.Second

// PaymentService creates provider intents and reconciles their outcome
// onto the invoice. Only Reconcile ever marks an invoice paid.
type PaymentService struct {
	db        *gorm.DB
	log       *logrus.Logger
	providers map[payments.Kind]payments.Provider
	locker    locks.Locker
	notifier  notify.Notifier
	audit     AuditSink
}

func NewPaymentService(db *gorm.DB, log *logrus.Logger, providers map[payments.Kind]payments.Provider, locker locks.Locker, notifier notify.Notifier, audit AuditSink) *PaymentService {
	return &PaymentService{db: db, log: log, providers: providers, locker: locker, notifier: notifier, audit: audit}
}

// IntentResult is what the client needs to complete the payment on its
// side, plus the local payment row tracking it.
type IntentResult struct {
	Payment     *models.Payment `json:"payment"`
	ClientToken string          `json:"client_token"`
}

// CreateIntent opens a provider transaction for the invoice's full
// amount. The local payment row is written only after the provider call
// succeeds, so a provider failure leaves no trace to reconcile.
func (s *PaymentService) CreateIntent(ctx context.Context, identity core.Identity, invoiceID uint, kind payments.Kind) (*IntentResult, error) {
	provider, ok := s.providers[kind]
	if !ok {
		return nil, core.Validation("moyen de paiement inconnu", map[string]string{"provider": string(kind)})
	}

	var invoice models.Invoice
	if err := s.db.WithContext(ctx).First(&invoice, invoiceID).Error; err != nil {
		return nil, core.NotFound("facture")
	}
	if !identity.IsAdmin() && !identity.Owns(invoice.ClientID) {
		return nil, core.NotFound("facture")
	}
	if invoice.Status == models.InvoiceStatusPaid {
		return nil, core.Conflict("cette facture est déjà payée")
	}
	if invoice.Status != models.InvoiceStatusUnpaid {
		return nil, core.Conflict("cette facture n'est pas payable")
	}

	amount, currency := payments.Convert(invoice.Amount, kind)
	intent, err := provider.CreateIntent(ctx, payments.IntentRequest{
		Amount:   amount,
		Currency: currency,
		Metadata: map[string]string{
			"invoice_number": invoice.InvoiceNumber,
			"invoice_id":     fmt.Sprintf("%d", invoice.ID),
		},
	})
	if err != nil {
		return nil, err
	}

	payment := models.Payment{
		InvoiceID:          invoice.ID,
		Provider:           string(kind),
		ProviderRef:        &intent.Ref,
		BaseAmount:         invoice.Amount.Round(2),
		BaseCurrency:       "TND",
		SettledAmount:      amount,
		SettlementCurrency: currency,
		Status:             intent.Status,
		Metadata: models.JSONMap{
			"invoice_number": invoice.InvoiceNumber,
		},
	}
	if intent.RiskLevel != "" {
		payment.RiskLevel = &intent.RiskLevel
	}
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	if err := s.db.WithContext(ctx).Create(&payment).Error; err != nil {
		return nil, err
	}

	s.audit.Record(ctx, invoice.ClientID, fmt.Sprintf("Paiement initié (%s) pour la facture %s", kind, invoice.InvoiceNumber))
	return &IntentResult{Payment: &payment, ClientToken: intent.ClientToken}, nil
}

// Reconcile refreshes a payment from its provider and, when the provider
// reports the money moved, marks the invoice paid. Serialized per payment
// so concurrent confirmations observe each other's writes: the paid
// notification fires exactly once, on the run that saw the invoice flip
// from unpaid to paid.
func (s *PaymentService) Reconcile(ctx context.Context, identity core.Identity, paymentID uint) (*models.Payment, error) {
	var payment models.Payment
	var becamePaid bool
	var invoice models.Invoice
	// The entire read-check-write sequence runs under the per-payment
	// lock so two confirmations for the same payment observe each
	// other's writes.
	err := s.locker.WithLock(ctx, fmt.Sprintf("payment:%d", paymentID), reconcileLockTTL, func(ctx context.Context) error {
		if err := s.db.WithContext(ctx).Preload("Invoice").First(&payment, paymentID).Error; err != nil {
			return core.NotFound("paiement")
		}
		if !identity.IsAdmin() && !identity.Owns(payment.Invoice.ClientID) {
			return core.NotFound("paiement")
		}
		if payment.ProviderRef == nil {
			return core.Conflict("paiement sans référence fournisseur")
		}
		provider, ok := s.providers[payments.Kind(payment.Provider)]
		if !ok {
			return core.External("fournisseur de paiement indisponible", nil)
		}
		status, err := provider.GetStatus(ctx, *payment.ProviderRef)
		if err != nil {
			return err
		}
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			payment.Status = status.Status
			updates := map[string]any{"status": status.Status}
			if status.RiskLevel != "" {
				payment.RiskLevel = &status.RiskLevel
				updates["risk_level"] = status.RiskLevel
			}
			if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(updates).Error; err != nil {
				return err
			}
			if err := tx.First(&invoice, payment.InvoiceID).Error; err != nil {
				return err
			}
			if payments.IsSettled(status.Status) && invoice.Status != models.InvoiceStatusPaid {
				invoice.Status = models.InvoiceStatusPaid
				if err := tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).Update("status", models.InvoiceStatusPaid).Error; err != nil {
					return err
				}
				becamePaid = true
			}
			return nil
		})
	})
	if err == locks.ErrNotObtained {
		return nil, core.Conflict("paiement en cours de traitement")
	} else if err != nil {
		return nil, err
	}

	if becamePaid {
		s.audit.Record(ctx, invoice.ClientID, "Facture "+invoice.InvoiceNumber+" payée")
		var client models.Client
		if err := s.db.WithContext(ctx).First(&client, invoice.ClientID).Error; err == nil {
			recipient := client.Email
			if client.Phone != "" {
				recipient = client.CountryCode + client.Phone
			}
			if err := s.notifier.Notify(ctx, recipient, "Votre facture "+invoice.InvoiceNumber+" a été payée. Merci."); err != nil {
				s.log.WithError(err).WithField("invoice_id", invoice.ID).Warn("notification failed")
			}
		}
	}
	return &payment, nil
}

// ReconcileByRef resolves a provider reference (webhook callbacks carry
// those, not local ids) and runs the usual reconciliation.
func (s *PaymentService) ReconcileByRef(ctx context.Context, identity core.Identity, providerRef string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).Where("provider_ref = ?", providerRef).First(&payment).Error; err != nil {
		return nil, core.NotFound("paiement")
	}
	return s.Reconcile(ctx, identity, payment.ID)
}

// Capture finalizes a wallet order the client approved, then reconciles.
func (s *PaymentService) Capture(ctx context.Context, identity core.Identity, paymentID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).Preload("Invoice").First(&payment, paymentID).Error; err != nil {
		return nil, core.NotFound("paiement")
	}
	if !identity.IsAdmin() && !identity.Owns(payment.Invoice.ClientID) {
		return nil, core.NotFound("paiement")
	}
	if payment.ProviderRef == nil {
		return nil, core.Conflict("paiement sans référence fournisseur")
	}
	provider, ok := s.providers[payments.Kind(payment.Provider)]
	if !ok {
		return nil, core.External("fournisseur de paiement indisponible", nil)
	}
	if _, err := provider.Capture(ctx, *payment.ProviderRef); err != nil {
		return nil, err
	}
	return s.Reconcile(ctx, identity, payment.ID)
}

// List returns an invoice's payments, newest first.
func (s *PaymentService) List(ctx context.Context, identity core.Identity, invoiceID uint) ([]models.Payment, error) {
	var invoice models.Invoice
	if err := s.db.WithContext(ctx).First(&invoice, invoiceID).Error; err != nil {
		return nil, core.NotFound("facture")
	}
	if !identity.IsAdmin() && !identity.Owns(invoice.ClientID) {
		return nil, core.NotFound("facture")
	}
	var list []models.Payment
	if err := s.db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Order("id desc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
