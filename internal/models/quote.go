package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote (devis) statuses.
const (
	QuoteStatusPending  = "pending"
	QuoteStatusApproved = "approved"
	QuoteStatusRejected = "rejected"
)

// Counter-offer sub-statuses. Meaningful only while the quote is rejected
// with a non-empty counter-offer.
const (
	CounterOfferNone     = "none"
	CounterOfferPending  = "pending"
	CounterOfferAccepted = "accepted"
	CounterOfferRejected = "rejected"
)

// Quote is a client's service request awaiting admin decision.
type Quote struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ClientID    uint            `gorm:"not null;index" json:"client_id"`
	Client      Client          `gorm:"foreignKey:ClientID" json:"client"`
	Description string          `gorm:"not null" json:"description"`
	Details     string          `json:"details"`
	Amount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Status      string          `gorm:"not null;default:'pending';index" json:"status"`

	// Negotiation sub-state. ProposedAmount is the structured counter-offer
	// amount; when set it takes precedence over any amount embedded in the
	// free-text CounterOffer.
	CounterOffer       *string          `json:"counter_offer"`
	CounterOfferStatus string           `gorm:"not null;default:'none'" json:"counter_offer_status"`
	ProposedAmount     *decimal.Decimal `gorm:"type:decimal(10,2)" json:"proposed_amount"`
	NegotiationRounds  int              `gorm:"not null;default:0" json:"negotiation_rounds"`

	SpecDocumentRef *string `json:"spec_document_ref"`

	ProductDetail *ProductDetail `gorm:"foreignKey:QuoteID" json:"product_detail"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Site types for ProductDetail.
const (
	SiteTypeVitrine   = "vitrine"
	SiteTypeEcommerce = "ecommerce"
	SiteTypeBlog      = "blog"
	SiteTypePortfolio = "portfolio"
	SiteTypeAutre     = "autre"
)

// ValidSiteType reports whether t is one of the known site types.
func ValidSiteType(t string) bool {
	switch t {
	case SiteTypeVitrine, SiteTypeEcommerce, SiteTypeBlog, SiteTypePortfolio, SiteTypeAutre:
		return true
	}
	return false
}

// ProductDetail carries the structured requirements attached to a quote.
// Created atomically with its quote; a quote submitted through the public
// path never exists without one.
type ProductDetail struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	QuoteID      uint      `gorm:"not null;uniqueIndex" json:"quote_id"`
	SiteType     string    `gorm:"not null" json:"site_type"`
	Features     string    `json:"features"`
	CustomDesign bool      `gorm:"not null;default:false" json:"custom_design"`
	SEO          bool      `gorm:"not null;default:false" json:"seo"`
	OtherDetails string    `json:"other_details"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
