package models

import "time"

// Client entity. Identity fields are immutable after registration; only the
// password hash changes through the reset/change flow.
type Client struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null;index" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone        string    `gorm:"not null" json:"phone"`
	CountryCode  string    `gorm:"not null;default:'+216'" json:"country_code"`
	PasswordHash string    `gorm:"not null" json:"-"` // bcrypt, jamais en clair
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Quotes   []Quote        `gorm:"foreignKey:ClientID" json:"-"`
	Invoices []Invoice      `gorm:"foreignKey:ClientID" json:"-"`
	History  []HistoryEntry `gorm:"foreignKey:ClientID" json:"-"`
}
