package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/devwebtn/facturation/internal/config"
	"github.com/devwebtn/facturation/internal/core"
	"github.com/devwebtn/facturation/internal/db"
	"github.com/devwebtn/facturation/internal/locks"
	"github.com/devwebtn/facturation/internal/models"
	"github.com/devwebtn/facturation/internal/payments"
)

// In-memory collaborators for the HTTP-level tests.

type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (s *memStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = data
	return name, nil
}

func (s *memStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[ref]
	if !ok {
		return nil, core.NotFound("document")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStore) Exists(_ context.Context, ref string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[ref]
	return ok, nil
}

type stubExtractor struct{ text string }

func (e *stubExtractor) Extract(context.Context, []byte) (string, error) { return e.text, nil }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string) error { return nil }

type scriptedProvider struct {
	mu       sync.Mutex
	nextRef  int
	statuses map[string]string
}

func (p *scriptedProvider) CreateIntent(context.Context, payments.IntentRequest) (payments.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextRef++
	ref := fmt.Sprintf("srv_ref_%d", p.nextRef)
	p.statuses[ref] = "pending"
	return payments.Intent{Ref: ref, ClientToken: ref + "_tok", Status: "pending"}, nil
}

func (p *scriptedProvider) GetStatus(_ context.Context, ref string) (payments.Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return payments.Status{Status: p.statuses[ref]}, nil
}

func (p *scriptedProvider) Capture(_ context.Context, ref string) (payments.Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses[ref] = "succeeded"
	return payments.Status{Status: "succeeded"}, nil
}

func (p *scriptedProvider) settleAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ref := range p.statuses {
		p.statuses[ref] = "succeeded"
	}
}

type testServer struct {
	handler  http.Handler
	provider *scriptedProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{
		JWTSecret:     "testsecret",
		AdminEmail:    "admin@test.tn",
		AdminPassword: "adminpass",
	}
	provider := &scriptedProvider{statuses: map[string]string{}}
	handler := New(cfg, conn, log, Deps{
		Docs:      &memStore{files: map[string][]byte{}},
		Extractor: &stubExtractor{text: "Facture F0099-ZZZ 120.00 TND Impayée"},
		Notifier:  nopNotifier{},
		Locker:    locks.NewLocal(),
		Providers: map[payments.Kind]payments.Provider{
			payments.KindCard:   provider,
			payments.KindWallet: provider,
		},
	})
	return &testServer{handler: handler, provider: provider}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func (s *testServer) registerAndLogin(t *testing.T, email string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/register", "", map[string]any{
		"name":     "Client Test",
		"email":    email,
		"phone":    "20123456",
		"password": "motdepasse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	return s.login(t, email, "motdepasse")
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	result := decodeBody[map[string]any](t, rec)
	token, _ := result["token"].(string)
	if token == "" {
		t.Fatalf("no token in login response: %s", rec.Body.String())
	}
	return token
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/health", "/healthz"} {
		rec := s.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: %d", path, rec.Code)
		}
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/devis", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous list: %d, want 401", rec.Code)
	}
	clientToken := s.registerAndLogin(t, "c@test.tn")
	rec = s.do(t, http.MethodPost, "/api/devis/1/approve", clientToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("client on admin route: %d, want 403", rec.Code)
	}
}

func TestQuoteLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	clientToken := s.registerAndLogin(t, "c@test.tn")
	adminToken := s.login(t, "admin@test.tn", "adminpass")

	rec := s.do(t, http.MethodPost, "/api/client/devis", clientToken, map[string]any{
		"description": "Site vitrine",
		"details":     "Trois pages",
		"amount":      "500.00",
		"product_detail": map[string]any{
			"site_type": "vitrine",
			"features":  "contact",
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	quote := decodeBody[models.Quote](t, rec)
	if quote.Status != models.QuoteStatusPending {
		t.Fatalf("status = %s", quote.Status)
	}

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/devis/%d/reject", quote.ID), adminToken, map[string]any{
		"counter_offer":   "Version simplifiée",
		"proposed_amount": "350.00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("reject: %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/devis/%d/specification-pdf", quote.ID), clientToken, nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("spec pdf: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/client/devis/%d/counter-offer-response", quote.ID), clientToken, map[string]any{
		"action": "accept",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: %d %s", rec.Code, rec.Body.String())
	}
	accepted := decodeBody[models.Quote](t, rec)
	if accepted.Status != models.QuoteStatusApproved {
		t.Fatalf("status after accept = %s", accepted.Status)
	}

	rec = s.do(t, http.MethodGet, "/api/factures", clientToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list invoices: %d", rec.Code)
	}
	invoices := decodeBody[[]models.Invoice](t, rec)
	if len(invoices) != 1 {
		t.Fatalf("expected 1 invoice, got %d", len(invoices))
	}
	if invoices[0].Amount.String() != "350" && invoices[0].Amount.String() != "350.00" {
		t.Fatalf("invoice amount = %s", invoices[0].Amount)
	}
}

func TestPaymentFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	clientToken := s.registerAndLogin(t, "c@test.tn")
	adminToken := s.login(t, "admin@test.tn", "adminpass")

	// Admin creates a manual invoice for the client.
	rec := s.do(t, http.MethodGet, "/api/clients", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list clients: %d", rec.Code)
	}
	clients := decodeBody[[]models.Client](t, rec)
	if len(clients) != 1 {
		t.Fatalf("expected 1 client, got %d", len(clients))
	}

	rec = s.do(t, http.MethodPost, "/api/factures", adminToken, map[string]any{
		"client_id": clients[0].ID,
		"amount":    "310.00",
		"items": []map[string]any{
			{"designation": "Maintenance", "unit_price": "310.00", "quantity": 1},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create invoice: %d %s", rec.Code, rec.Body.String())
	}
	invoice := decodeBody[models.Invoice](t, rec)

	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/payment/%d/intent", invoice.ID), clientToken, map[string]string{
		"provider": "wallet",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create intent: %d %s", rec.Code, rec.Body.String())
	}
	intent := decodeBody[map[string]any](t, rec)
	payment := intent["payment"].(map[string]any)
	paymentID := int(payment["id"].(float64))
	if payment["settlement_currency"] != "USD" {
		t.Fatalf("wallet settlement currency = %v", payment["settlement_currency"])
	}

	// Confirming while the provider still reports pending changes nothing.
	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/payment/%d/confirm", paymentID), clientToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm pending: %d %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/factures/%d", invoice.ID), clientToken, nil)
	check := decodeBody[models.Invoice](t, rec)
	if check.Status != models.InvoiceStatusUnpaid {
		t.Fatalf("invoice flipped without settlement: %s", check.Status)
	}

	// Provider settles, confirm again.
	s.provider.settleAll()
	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/payment/%d/confirm", paymentID), clientToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm settled: %d %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/factures/%d", invoice.ID), clientToken, nil)
	check = decodeBody[models.Invoice](t, rec)
	if check.Status != models.InvoiceStatusPaid {
		t.Fatalf("invoice status = %s, want paid", check.Status)
	}

	// A second intent on the paid invoice conflicts.
	rec = s.do(t, http.MethodPost, fmt.Sprintf("/api/payment/%d/intent", invoice.ID), clientToken, map[string]string{
		"provider": "card",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("intent on paid invoice: %d, want 409", rec.Code)
	}
}

func TestHistoryOverHTTP(t *testing.T) {
	s := newTestServer(t)
	clientToken := s.registerAndLogin(t, "c@test.tn")
	adminToken := s.login(t, "admin@test.tn", "adminpass")

	rec := s.do(t, http.MethodGet, "/api/clients", adminToken, nil)
	clients := decodeBody[[]models.Client](t, rec)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/client/%d/history", clients[0].ID), clientToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("own history: %d %s", rec.Code, rec.Body.String())
	}
	entries := decodeBody[[]models.HistoryEntry](t, rec)
	if len(entries) == 0 {
		t.Fatalf("expected at least the registration entry")
	}
}
