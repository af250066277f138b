package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice (facture) statuses. Only the reconciliation engine moves an
// invoice to paid; the overdue transition runs in the sweep binary, never
// inline.
const (
	InvoiceStatusUnpaid  = "unpaid"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusOverdue = "overdue"
)

// Invoice belongs to one client and optionally references the quote it was
// generated from. Deleting a quote must not cascade to its invoice, hence
// the nullable reference. The unique index on QuoteID backs the
// at-most-one-invoice-per-quote invariant.
type Invoice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ClientID      uint            `gorm:"not null;index" json:"client_id"`
	Client        Client          `gorm:"foreignKey:ClientID" json:"client"`
	QuoteID       *uint           `gorm:"uniqueIndex" json:"quote_id"`
	InvoiceNumber string          `gorm:"uniqueIndex;not null" json:"invoice_number"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Status        string          `gorm:"not null;default:'unpaid';index" json:"status"`
	DueDate       time.Time       `json:"due_date"`
	ImageRef      *string         `json:"image_ref"`

	LineItems []LineItem `gorm:"foreignKey:InvoiceID" json:"line_items"`
	Payments  []Payment  `gorm:"foreignKey:InvoiceID" json:"payments"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineItem (ligne de facture). Total is derived and stored; it is always
// recomputed from UnitPrice and Quantity at write time and never accepted
// from callers.
type LineItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	InvoiceID   uint            `gorm:"not null;index" json:"invoice_id"`
	Designation string          `gorm:"not null" json:"designation"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Total       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BeforeSave recomputes the stored total. Covers both create and update so
// the invariant holds no matter which write path touched the row.
func (l *LineItem) BeforeSave(_ *gorm.DB) error {
	l.Total = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
	return nil
}
