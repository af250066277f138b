package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Payment providers. The provider tag distinguishes the card (payment
// intent) flow from the wallet (order/capture) flow instead of overloading
// a single identifier column.
const (
	ProviderCard   = "card"
	ProviderWallet = "wallet"
)

// Initial status before the first reconciliation; settled statuses are
// provider-defined and recognized by payments.IsSettled.
const (
	PaymentStatusPending = "pending"
)

// JSONMap stores arbitrary provider metadata as a JSON column.
type JSONMap map[string]string

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(src any) error {
	if src == nil {
		*m = JSONMap{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	}
	return errors.New("jsonmap: unsupported scan source")
}

// Payment is one provider transaction against an invoice. Created when an
// intent/order is opened, mutated exactly once more by reconciliation,
// never deleted. Both the base amount and the amount actually sent to the
// provider are persisted so reconciliation can see what was charged.
type Payment struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	InvoiceID uint    `gorm:"not null;index" json:"invoice_id"`
	Invoice   Invoice `gorm:"foreignKey:InvoiceID" json:"-"`

	Provider    string  `gorm:"not null" json:"provider"`
	ProviderRef *string `gorm:"uniqueIndex" json:"provider_ref"` // intent id (card) or order id (wallet)

	BaseAmount         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"base_amount"`
	BaseCurrency       string          `gorm:"not null;default:'TND'" json:"base_currency"`
	SettledAmount      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"settled_amount"`
	SettlementCurrency string          `gorm:"not null" json:"settlement_currency"`

	Status    string  `gorm:"not null;default:'pending'" json:"status"` // provider-defined free text
	RiskLevel *string `json:"risk_level"`
	Metadata  JSONMap `gorm:"type:text" json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
