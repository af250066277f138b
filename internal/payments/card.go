package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/devwebtn/facturation/internal/core"
)

// CardClient talks to a Stripe-style payment-intent API. Constructed and
// injected explicitly; there is no package-level client.
type CardClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewCardClient(baseURL, apiKey string) *CardClient {
	return &CardClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type cardIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	RiskLevel    string `json:"risk_level"`
	Error        *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *CardClient) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(MinorUnits(req.Amount), 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("payment_method_types[]", "card")
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}
	var out cardIntent
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents", strings.NewReader(form.Encode()), &out); err != nil {
		return Intent{}, err
	}
	return Intent{Ref: out.ID, ClientToken: out.ClientSecret, Status: out.Status, RiskLevel: out.RiskLevel}, nil
}

func (c *CardClient) GetStatus(ctx context.Context, ref string) (Status, error) {
	var out cardIntent
	if err := c.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(ref), nil, &out); err != nil {
		return Status{}, err
	}
	return Status{Status: out.Status, RiskLevel: out.RiskLevel}, nil
}

// Capture confirms a manual-capture intent. The default flow captures
// client-side, so this is mostly used by support tooling.
func (c *CardClient) Capture(ctx context.Context, ref string) (Status, error) {
	var out cardIntent
	if err := c.do(ctx, http.MethodPost, "/v1/payment_intents/"+url.PathEscape(ref)+"/capture", nil, &out); err != nil {
		return Status{}, err
	}
	return Status{Status: out.Status, RiskLevel: out.RiskLevel}, nil
}

func (c *CardClient) do(ctx context.Context, method, path string, body *strings.Reader, out *cardIntent) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	}
	if err != nil {
		return core.External("card provider request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return core.External("card provider call", err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.External("card provider response", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return core.NotFound("transaction fournisseur")
	}
	if resp.StatusCode >= 400 {
		msg := resp.Status
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return core.External("card provider", fmt.Errorf("%s", msg))
	}
	return nil
}
