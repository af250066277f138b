package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/devwebtn/facturation/internal/core"
)

// WalletClient talks to a PayPal-style order/capture API. Access tokens
// are fetched with the client-credentials grant and cached until expiry.
type WalletClient struct {
	BaseURL    string
	ClientID   string
	Secret     string
	HTTPClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewWalletClient(baseURL, clientID, secret string) *WalletClient {
	return &WalletClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ClientID:   clientID,
		Secret:     secret,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type walletOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (c *WalletClient) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": map[string]string{
				"currency_code": req.Currency,
				"value":         req.Amount.StringFixed(2),
			},
			"custom_id": req.Metadata["invoice_id"],
		}},
	}
	var out walletOrder
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", payload, &out); err != nil {
		return Intent{}, err
	}
	// The order id doubles as the client-side approval token.
	return Intent{Ref: out.ID, ClientToken: out.ID, Status: out.Status}, nil
}

func (c *WalletClient) GetStatus(ctx context.Context, ref string) (Status, error) {
	var out walletOrder
	if err := c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(ref), nil, &out); err != nil {
		return Status{}, err
	}
	return Status{Status: out.Status}, nil
}

func (c *WalletClient) Capture(ctx context.Context, ref string) (Status, error) {
	var out walletOrder
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(ref)+"/capture", map[string]any{}, &out); err != nil {
		return Status{}, err
	}
	return Status{Status: out.Status}, nil
}

func (c *WalletClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", core.External("wallet provider token request", err)
	}
	req.SetBasicAuth(c.ClientID, c.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", core.External("wallet provider token", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", core.External("wallet provider token", fmt.Errorf("%s", resp.Status))
	}
	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", core.External("wallet provider token response", err)
	}
	c.accessToken = body.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn-60) * time.Second)
	return c.accessToken, nil
}

func (c *WalletClient) do(ctx context.Context, method, path string, payload any, out *walletOrder) error {
	tok, err := c.token(ctx)
	if err != nil {
		return err
	}
	var body *bytes.Reader
	if payload != nil {
		b, merr := json.Marshal(payload)
		if merr != nil {
			return core.External("wallet provider payload", merr)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return core.External("wallet provider request", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return core.External("wallet provider call", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return core.NotFound("transaction fournisseur")
	}
	if resp.StatusCode >= 400 {
		return core.External("wallet provider", fmt.Errorf("%s", resp.Status))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.External("wallet provider response", err)
	}
	return nil
}
