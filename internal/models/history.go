package models

import "time"

// HistoryEntry (historique) is the append-only audit trail. Rows are never
// updated or deleted.
type HistoryEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClientID  uint      `gorm:"not null;index" json:"client_id"`
	Action    string    `gorm:"not null" json:"action"`
	CreatedAt time.Time `json:"created_at"`
}
