package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"

	"github.com/devwebtn/facturation/internal/config"
	"github.com/devwebtn/facturation/internal/db"
	"github.com/devwebtn/facturation/internal/docstore"
	"github.com/devwebtn/facturation/internal/ocr"
	"github.com/devwebtn/facturation/internal/pdf"
	"github.com/devwebtn/facturation/internal/services"
)

// Marks unpaid invoices past their due date as overdue. Run from cron;
// the request path never performs this transition.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := config.NewLogger(cfg.Env)

	conn, err := db.ConnectAndMigrate(cfg.DatabaseDSN, log)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}

	docs, err := docstore.NewDisk(cfg.DocsDir)
	if err != nil {
		log.WithError(err).Fatal("document store init failed")
	}

	history := services.NewHistorySink(conn, log)
	svc := services.NewInvoiceService(conn, log, history, docs, ocr.NewTesseract(), pdf.NewRenderer())

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	count, err := svc.MarkOverdue(ctx, time.Now())
	if err != nil {
		log.WithError(err).Fatal("overdue sweep failed")
	}
	log.WithField("count", count).Info("overdue sweep finished")
}
