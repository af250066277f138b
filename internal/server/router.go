package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/devwebtn/facturation/internal/auth"
	"github.com/devwebtn/facturation/internal/config"
	"github.com/devwebtn/facturation/internal/core"
	"github.com/devwebtn/facturation/internal/docstore"
	"github.com/devwebtn/facturation/internal/handlers"
	"github.com/devwebtn/facturation/internal/httpx"
	"github.com/devwebtn/facturation/internal/locks"
	"github.com/devwebtn/facturation/internal/notify"
	"github.com/devwebtn/facturation/internal/ocr"
	"github.com/devwebtn/facturation/internal/payments"
	"github.com/devwebtn/facturation/internal/pdf"
	"github.com/devwebtn/facturation/internal/services"
)

// Deps are the externally-supplied collaborators. main wires real ones;
// tests substitute stubs.
type Deps struct {
	Docs      docstore.Store
	Extractor ocr.TextExtractor
	Notifier  notify.Notifier
	Locker    locks.Locker
	Providers map[payments.Kind]payments.Provider
}

// New constructs the root http.Handler with all routes and middlewares
// applied.
func New(cfg *config.Config, db *gorm.DB, log *logrus.Logger, deps Deps) http.Handler {
	renderer := pdf.NewRenderer()
	history := services.NewHistorySink(db, log)
	clientSvc := services.NewClientService(db, log, cfg, history)
	quoteSvc := services.NewQuoteService(db, log, deps.Notifier, deps.Docs, renderer, history)
	invoiceSvc := services.NewInvoiceService(db, log, history, deps.Docs, deps.Extractor, renderer)
	paymentSvc := services.NewPaymentService(db, log, deps.Providers, deps.Locker, deps.Notifier, history)

	authHandler := handlers.NewAuthHandler(clientSvc, history)
	quoteHandler := handlers.NewQuoteHandler(quoteSvc)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceSvc)
	paymentHandler := handlers.NewPaymentHandler(paymentSvc)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(auth.Middleware(cfg.JWTSecret))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		// Client-facing surface.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/client/profile", authHandler.Profile)
			r.Post("/client/change-password", authHandler.ChangePassword)
			r.Get("/client/{clientID}/history", authHandler.History)

			r.Post("/client/devis", quoteHandler.Submit)
			r.Post("/client/devis/{id}/counter-offer-response", quoteHandler.CounterOfferResponse)

			r.Get("/devis", quoteHandler.List)
			r.Get("/devis/{id}", quoteHandler.Get)
			r.Get("/devis/{id}/specification-pdf", quoteHandler.SpecificationPDF)

			r.Get("/factures", invoiceHandler.List)
			r.Get("/factures/{id}", invoiceHandler.Get)
			r.Get("/factures/{id}/pdf", invoiceHandler.PDF)

			r.Post("/payment/{factureID}/intent", paymentHandler.CreateIntent)
			r.Post("/payment/{paymentID}/confirm", paymentHandler.Confirm)
			r.Post("/payment/{paymentID}/capture", paymentHandler.Capture)
			r.Get("/payment/facture/{factureID}", paymentHandler.List)
		})

		// Admin surface.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(core.RoleAdmin))
			r.Get("/clients", authHandler.ListClients)
			r.Post("/devis/{id}/approve", quoteHandler.Approve)
			r.Post("/devis/{id}/reject", quoteHandler.Reject)
			r.Post("/factures", invoiceHandler.Create)
			r.Put("/factures/{id}/items", invoiceHandler.ReplaceLineItems)
			r.Post("/facture/ocr", invoiceHandler.IngestScan)
		})
	})

	return r
}

// requestLogger emits one structured line per request in the shared
// logrus format.
func requestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"request_id": chimw.GetReqID(r.Context()),
			}).Info("request")
		})
	}
}
