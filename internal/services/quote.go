package services

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/devwebtn/facturation/internal/core"
	"github.com/devwebtn/facturation/internal/docstore"
	"github.com/devwebtn/facturation/internal/models"
	"github.com/devwebtn/facturation/internal/notify"
	"github.com/devwebtn/facturation/internal/pdf"
)

// Counter-offer actions.
const (
	ActionAccept = "accept"
	ActionReject = "reject"
	ActionModify = "modify"
)

// A negotiation may loop back to the admin at most this many times before
// it has to settle.
const maxNegotiationRounds = 5

// Legacy counter-offers carry their amount in prose ("Nouveau montant:
// 350 TND"). Structured ProposedAmount takes precedence; this pattern is
// the fallback for text-only offers.
var counterAmountRe = regexp.MustCompile(`(\d+(?:[.,]\d{2})?)\s*TND`)

// QuoteService drives the devis lifecycle: submission, admin review,
// counter-offer negotiation and invoice synthesis.
type QuoteService struct {
	db       *gorm.DB
	log      *logrus.Logger
	notifier notify.Notifier
	docs     docstore.Store
	renderer *pdf.Renderer
	audit    AuditSink
}

func NewQuoteService(db *gorm.DB, log *logrus.Logger, notifier notify.Notifier, docs docstore.Store, renderer *pdf.Renderer, audit AuditSink) *QuoteService {
	return &QuoteService{db: db, log: log, notifier: notifier, docs: docs, renderer: renderer, audit: audit}
}

type ProductDetailInput struct {
	SiteType     string
	Features     string
	CustomDesign bool
	SEO          bool
	OtherDetails string
}

type SubmitQuoteInput struct {
	Description string
	Details     string
	Amount      decimal.Decimal
	Detail      ProductDetailInput
}

// Submit creates a pending quote with its product detail in one
// transaction: a detail validation failure leaves no orphan quote behind.
func (s *QuoteService) Submit(ctx context.Context, identity core.Identity, in SubmitQuoteInput) (*models.Quote, error) {
	if !identity.IsClient() {
		return nil, core.Forbidden("seuls les clients peuvent créer un devis")
	}
	description := strings.TrimSpace(in.Description)
	fields := map[string]string{}
	if description == "" {
		fields["description"] = "la description ne peut pas être vide"
	}
	if !in.Amount.IsPositive() {
		fields["amount"] = "le montant doit être un nombre positif"
	}
	if len(fields) > 0 {
		return nil, core.Validation("devis invalide", fields)
	}

	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, identity.ClientID).Error; err != nil {
		return nil, core.NotFound("client")
	}

	quote := models.Quote{
		ClientID:           client.ID,
		Description:        description,
		Details:            in.Details,
		Amount:             in.Amount.Round(2),
		Status:             models.QuoteStatusPending,
		CounterOfferStatus: models.CounterOfferNone,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&quote).Error; err != nil {
			return err
		}
		if !models.ValidSiteType(in.Detail.SiteType) {
			// Rolls the freshly created quote back with it.
			return core.Validation("détail produit invalide", map[string]string{
				"site_type": "le type de site doit être l'un de : vitrine, ecommerce, blog, portfolio, autre",
			})
		}
		detail := models.ProductDetail{
			QuoteID:      quote.ID,
			SiteType:     in.Detail.SiteType,
			Features:     in.Detail.Features,
			CustomDesign: in.Detail.CustomDesign,
			SEO:          in.Detail.SEO,
			OtherDetails: in.Detail.OtherDetails,
		}
		return tx.Create(&detail).Error
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, client.ID, "Demande de devis soumise - "+description)
	return s.Get(ctx, identity, quote.ID)
}

// Get loads a quote with its detail. Clients only see their own.
func (s *QuoteService) Get(ctx context.Context, identity core.Identity, id uint) (*models.Quote, error) {
	var quote models.Quote
	if err := s.db.WithContext(ctx).Preload("ProductDetail").Preload("Client").First(&quote, id).Error; err != nil {
		return nil, core.NotFound("devis")
	}
	if !identity.IsAdmin() && !identity.Owns(quote.ClientID) {
		// Do not leak existence to other clients.
		return nil, core.NotFound("devis")
	}
	return &quote, nil
}

// List returns all quotes for admins, own quotes for clients.
func (s *QuoteService) List(ctx context.Context, identity core.Identity) ([]models.Quote, error) {
	q := s.db.WithContext(ctx).Preload("ProductDetail").Preload("Client").Order("id desc")
	if !identity.IsAdmin() {
		q = q.Where("client_id = ?", identity.ClientID)
	}
	var quotes []models.Quote
	if err := q.Find(&quotes).Error; err != nil {
		return nil, err
	}
	return quotes, nil
}

// Approve sets the quote approved and synthesizes its invoice unless one
// already exists. Safe to call twice: the invoice existence check (backed
// by the unique index on invoices.quote_id) runs inside the same
// transaction as the creation.
func (s *QuoteService) Approve(ctx context.Context, identity core.Identity, quoteID uint) (*models.Quote, error) {
	if !identity.IsAdmin() {
		return nil, core.Forbidden("réservé à l'administrateur")
	}
	var quote models.Quote
	bypassedCounterOffer := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Client").First(&quote, quoteID).Error; err != nil {
			return core.NotFound("devis")
		}
		bypassedCounterOffer = quote.Status == models.QuoteStatusRejected && quote.CounterOfferStatus == models.CounterOfferPending
		quote.Status = models.QuoteStatusApproved
		if err := tx.Save(&quote).Error; err != nil {
			return err
		}
		_, err := ensureInvoiceForQuote(tx, &quote)
		return err
	})
	if err != nil {
		return nil, err
	}

	action := fmt.Sprintf("Devis #%d approuvé", quote.ID)
	if bypassedCounterOffer {
		action += " (contre-proposition en attente ignorée)"
	}
	s.audit.Record(ctx, quote.ClientID, action)
	s.notifyBestEffort(ctx, &quote.Client, fmt.Sprintf("Votre devis #%d a été approuvé. Une facture a été générée.", quote.ID))
	return s.Get(ctx, identity, quote.ID)
}

// RejectWithCounterOffer puts the quote into the negotiation sub-state.
// When no specification document is supplied, a default one summarizing
// the quote and the counter-offer is rendered and attached.
func (s *QuoteService) RejectWithCounterOffer(ctx context.Context, identity core.Identity, quoteID uint, counterOffer string, proposedAmount *decimal.Decimal, specDoc []byte) (*models.Quote, error) {
	if !identity.IsAdmin() {
		return nil, core.Forbidden("réservé à l'administrateur")
	}
	counterOffer = strings.TrimSpace(counterOffer)
	if counterOffer == "" {
		return nil, core.Validation("contre-proposition invalide", map[string]string{
			"counter_offer": "le texte de la contre-proposition est requis",
		})
	}
	quote, err := s.Get(ctx, identity, quoteID)
	if err != nil {
		return nil, err
	}

	specName := fmt.Sprintf("devis_%d_spec.pdf", quote.ID)
	if specDoc == nil {
		specDoc, err = s.renderer.Specification(quote, counterOffer)
		if err != nil {
			return nil, err
		}
	}
	ref, err := s.docs.Save(ctx, specName, bytes.NewReader(specDoc))
	if err != nil {
		return nil, err
	}

	quote.Status = models.QuoteStatusRejected
	quote.CounterOffer = &counterOffer
	quote.CounterOfferStatus = models.CounterOfferPending
	quote.ProposedAmount = proposedAmount
	quote.SpecDocumentRef = &ref
	if err := s.db.WithContext(ctx).Save(quote).Error; err != nil {
		return nil, err
	}

	s.audit.Record(ctx, quote.ClientID, fmt.Sprintf("Devis #%d rejeté avec contre-proposition", quote.ID))
	s.notifyBestEffort(ctx, &quote.Client, fmt.Sprintf("Votre devis #%d a reçu une contre-proposition: %s", quote.ID, counterOffer))
	return quote, nil
}

// RespondToCounterOffer handles the client side of the negotiation. Only
// the owning client may respond, and only while the counter-offer is
// pending.
func (s *QuoteService) RespondToCounterOffer(ctx context.Context, identity core.Identity, quoteID uint, action, modifiedText string, proposedAmount *decimal.Decimal) (*models.Quote, error) {
	var quote models.Quote
	if err := s.db.WithContext(ctx).Preload("Client").First(&quote, quoteID).Error; err != nil {
		return nil, core.NotFound("devis")
	}
	if !identity.Owns(quote.ClientID) {
		return nil, core.Forbidden("seul le client propriétaire peut répondre")
	}
	if quote.CounterOfferStatus != models.CounterOfferPending {
		return nil, core.Conflict("aucune contre-proposition en attente pour ce devis")
	}

	var auditAction string
	switch action {
	case ActionModify:
		modifiedText = strings.TrimSpace(modifiedText)
		if modifiedText == "" {
			return nil, core.Validation("réponse invalide", map[string]string{
				"modified_counter_offer": "le texte modifié est requis",
			})
		}
		if quote.NegotiationRounds >= maxNegotiationRounds {
			return nil, core.Conflict("nombre maximal d'allers-retours de négociation atteint")
		}
		quote.CounterOffer = &modifiedText
		quote.ProposedAmount = proposedAmount
		quote.NegotiationRounds++
		// Stays pending: the ball goes back to the admin.
		if err := s.db.WithContext(ctx).Save(&quote).Error; err != nil {
			return nil, err
		}
		auditAction = fmt.Sprintf("Contre-proposition du devis #%d modifiée par le client", quote.ID)

	case ActionReject:
		quote.CounterOfferStatus = models.CounterOfferRejected
		if err := s.db.WithContext(ctx).Save(&quote).Error; err != nil {
			return nil, err
		}
		auditAction = fmt.Sprintf("Contre-proposition du devis #%d rejetée par le client", quote.ID)

	case ActionAccept:
		if proposedAmount == nil {
			proposedAmount = quote.ProposedAmount
		}
		newAmount, ok := s.counterOfferAmount(&quote, proposedAmount)
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			quote.CounterOfferStatus = models.CounterOfferAccepted
			quote.Status = models.QuoteStatusApproved
			if ok {
				quote.Amount = newAmount
			}
			if err := tx.Save(&quote).Error; err != nil {
				return err
			}
			_, err := ensureInvoiceForQuote(tx, &quote)
			return err
		})
		if err != nil {
			return nil, err
		}
		auditAction = fmt.Sprintf("Contre-proposition du devis #%d acceptée, facture générée", quote.ID)

	default:
		return nil, core.Validation("réponse invalide", map[string]string{
			"action": "l'action doit être accept, reject ou modify",
		})
	}

	s.audit.Record(ctx, quote.ClientID, auditAction)
	s.notifyBestEffort(ctx, &quote.Client, fmt.Sprintf("Réponse enregistrée pour le devis #%d: %s", quote.ID, action))
	return s.Get(ctx, identity, quote.ID)
}

// SpecificationPDF streams the attached cahier des charges.
func (s *QuoteService) SpecificationPDF(ctx context.Context, identity core.Identity, quoteID uint) ([]byte, error) {
	quote, err := s.Get(ctx, identity, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.SpecDocumentRef == nil {
		return nil, core.NotFound("cahier des charges")
	}
	rc, err := s.docs.Open(ctx, *quote.SpecDocumentRef)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, core.External("lecture du document", err)
	}
	return buf.Bytes(), nil
}

// counterOfferAmount resolves the amount an accepted counter-offer should
// settle at. Structured amount first; otherwise a best-effort parse of the
// free text. No match keeps the original amount, loudly.
func (s *QuoteService) counterOfferAmount(quote *models.Quote, proposed *decimal.Decimal) (decimal.Decimal, bool) {
	if proposed != nil {
		return proposed.Round(2), true
	}
	if quote.CounterOffer != nil {
		if m := counterAmountRe.FindStringSubmatch(*quote.CounterOffer); m != nil {
			raw := strings.ReplaceAll(m[1], ",", ".")
			if amount, err := decimal.NewFromString(raw); err == nil {
				return amount.Round(2), true
			}
		}
	}
	s.log.WithField("quote_id", quote.ID).Warn("counter-offer accepted without extractable amount, keeping original")
	return quote.Amount, false
}

func (s *QuoteService) notifyBestEffort(ctx context.Context, client *models.Client, message string) {
	recipient := client.Email
	if client.Phone != "" {
		recipient = client.CountryCode + client.Phone
	}
	if err := s.notifier.Notify(ctx, recipient, message); err != nil {
		s.log.WithError(err).WithField("client_id", client.ID).Warn("notification failed")
	}
}
