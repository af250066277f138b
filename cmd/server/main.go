package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/devwebtn/facturation/internal/config"
	"github.com/devwebtn/facturation/internal/db"
	"github.com/devwebtn/facturation/internal/docstore"
	"github.com/devwebtn/facturation/internal/locks"
	"github.com/devwebtn/facturation/internal/notify"
	"github.com/devwebtn/facturation/internal/ocr"
	"github.com/devwebtn/facturation/internal/payments"
	"github.com/devwebtn/facturation/internal/server"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()
	_ = godotenv.Load()
	cfg := config.Load()
	log := config.NewLogger(cfg.Env)

	conn, err := db.ConnectAndMigrate(cfg.DatabaseDSN, log)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	if *migrateOnlyFlag {
		log.Info("migrations completed; exiting as requested")
		return
	}

	ctx := context.Background()

	var docs docstore.Store
	if cfg.GCSBucket != "" {
		docs, err = docstore.NewGCS(ctx, cfg.GCSBucket)
	} else {
		docs, err = docstore.NewDisk(cfg.DocsDir)
	}
	if err != nil {
		log.WithError(err).Fatal("document store init failed")
	}

	var locker locks.Locker = locks.NewLocal()
	if cfg.RedisAddr != "" {
		locker = locks.NewRedis(cfg.RedisAddr)
	}

	providers := map[payments.Kind]payments.Provider{
		payments.KindCard:   payments.NewCardClient(cfg.CardAPIBase, cfg.CardAPIKey),
		payments.KindWallet: payments.NewWalletClient(cfg.WalletAPIBase, cfg.WalletClientID, cfg.WalletSecret),
	}

	handler := server.New(&cfg, conn, log, server.Deps{
		Docs:      docs,
		Extractor: ocr.NewTesseract(),
		Notifier:  notify.NewLogNotifier(log),
		Locker:    locker,
		Providers: providers,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown error")
	}
	log.Info("server stopped")
}
