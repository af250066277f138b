package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/devwebtn/facturation/internal/core"
	"github.com/devwebtn/facturation/internal/db"
	"github.com/devwebtn/facturation/internal/models"
	"github.com/devwebtn/facturation/internal/payments"
	"github.com/devwebtn/facturation/internal/pdf"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// unique in-memory DB per test name to avoid leakage via shared cache
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func seedClient(t *testing.T, conn *gorm.DB, email string) models.Client {
	t.Helper()
	client := models.Client{
		Name:         "Client Test",
		Email:        email,
		Phone:        "20123456",
		CountryCode:  "+216",
		PasswordHash: "x",
	}
	if err := conn.Create(&client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return client
}

func adminIdentity() core.Identity { return core.Identity{Role: core.RoleAdmin} }

func clientIdentity(id uint) core.Identity {
	return core.Identity{Role: core.RoleClient, ClientID: id}
}

// captureNotifier records every message instead of sending it.
type captureNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *captureNotifier) Notify(_ context.Context, _, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

// memDocs is an in-memory document store.
type memDocs struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemDocs() *memDocs { return &memDocs{files: map[string][]byte{}} }

func (d *memDocs) Save(_ context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[name] = data
	return name, nil
}

func (d *memDocs) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.files[ref]
	if !ok {
		return nil, core.NotFound("document")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (d *memDocs) Exists(_ context.Context, ref string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.files[ref]
	return ok, nil
}

// fakeProvider scripts provider answers per reference.
type fakeProvider struct {
	mu         sync.Mutex
	nextRef    int
	statuses   map[string]string
	failIntent bool
	calls      int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{statuses: map[string]string{}}
}

func (p *fakeProvider) CreateIntent(_ context.Context, _ payments.IntentRequest) (payments.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failIntent {
		return payments.Intent{}, core.External("create intent", fmt.Errorf("gateway down"))
	}
	p.nextRef++
	ref := fmt.Sprintf("ref_%d", p.nextRef)
	p.statuses[ref] = "requires_payment_method"
	return payments.Intent{Ref: ref, ClientToken: ref + "_secret", Status: "requires_payment_method"}, nil
}

func (p *fakeProvider) GetStatus(_ context.Context, ref string) (payments.Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	status, ok := p.statuses[ref]
	if !ok {
		return payments.Status{}, core.NotFound("transaction")
	}
	return payments.Status{Status: status, RiskLevel: "normal"}, nil
}

func (p *fakeProvider) Capture(_ context.Context, ref string) (payments.Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses[ref] = "COMPLETED"
	return payments.Status{Status: "COMPLETED"}, nil
}

func (p *fakeProvider) settle(ref string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses[ref] = "succeeded"
}

func newTestQuoteService(t *testing.T, conn *gorm.DB) (*QuoteService, *captureNotifier, *memDocs) {
	t.Helper()
	log := testLogger()
	notifier := &captureNotifier{}
	docs := newMemDocs()
	svc := NewQuoteService(conn, log, notifier, docs, pdf.NewRenderer(), NewHistorySink(conn, log))
	return svc, notifier, docs
}

func submitQuote(t *testing.T, svc *QuoteService, clientID uint, amount string) *models.Quote {
	t.Helper()
	quote, err := svc.Submit(context.Background(), clientIdentity(clientID), SubmitQuoteInput{
		Description: "Site vitrine",
		Details:     "Trois pages et un formulaire de contact",
		Amount:      mustDecimal(t, amount),
		Detail:      ProductDetailInput{SiteType: models.SiteTypeVitrine, Features: "contact"},
	})
	if err != nil {
		t.Fatalf("submit quote: %v", err)
	}
	return quote
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}
