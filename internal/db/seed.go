package db

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/devwebtn/facturation/internal/models"
)

// seed inserts development fixtures. Gated behind DB_SEED; never runs in
// production paths.
func seed(conn *gorm.DB, log *logrus.Logger) {
	var count int64
	conn.Model(&models.Client{}).Count(&count)
	if count > 0 {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		log.WithError(err).Warn("seed: hash password")
		return
	}
	client := models.Client{
		Name:         "Client Démo",
		Email:        "demo@example.tn",
		Phone:        "20123456",
		CountryCode:  "+216",
		PasswordHash: string(hash),
	}
	if err := conn.Create(&client).Error; err != nil {
		log.WithError(err).Warn("seed: create client")
		return
	}
	quote := models.Quote{
		ClientID:    client.ID,
		Description: "Site vitrine",
		Amount:      decimal.NewFromInt(500),
		Status:      models.QuoteStatusPending,
		ProductDetail: &models.ProductDetail{
			SiteType: models.SiteTypeVitrine,
			Features: "accueil, contact, galerie",
		},
	}
	if err := conn.Create(&quote).Error; err != nil {
		log.WithError(err).Warn("seed: create quote")
	}
}
