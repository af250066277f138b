package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/devwebtn/facturation/internal/core"
	"github.com/devwebtn/facturation/internal/models"
)

// AuditSink records one history line per successful core transition. It is
// called after the transition's own commit and must never block or undo
// it; failures are surfaced in the log instead of being dropped silently.
type AuditSink interface {
	Record(ctx context.Context, clientID uint, action string)
}

// HistorySink is the GORM-backed audit sink writing HistoryEntry rows.
type HistorySink struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewHistorySink(db *gorm.DB, log *logrus.Logger) *HistorySink {
	return &HistorySink{db: db, log: log}
}

func (s *HistorySink) Record(ctx context.Context, clientID uint, action string) {
	entry := models.HistoryEntry{ClientID: clientID, Action: action}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"client_id": clientID,
			"action":    action,
		}).Error("history write failed")
	}
}

// List returns a client's history. Admins may read any client's trail,
// clients only their own.
func (s *HistorySink) List(ctx context.Context, identity core.Identity, clientID uint) ([]models.HistoryEntry, error) {
	if !identity.IsAdmin() && !identity.Owns(clientID) {
		return nil, core.Forbidden("accès refusé")
	}
	var entries []models.HistoryEntry
	if err := s.db.WithContext(ctx).Where("client_id = ?", clientID).Order("id desc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
