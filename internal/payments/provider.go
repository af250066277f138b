package payments

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind selects a provider integration. Matches the tagged Provider column
// on the Payment row.
type Kind string

const (
	KindCard   Kind = "card"
	KindWallet Kind = "wallet"
)

// IntentRequest is the provider-agnostic order/intent creation input. The
// amount is already converted to the settlement currency.
type IntentRequest struct {
	Amount   decimal.Decimal
	Currency string
	Metadata map[string]string
}

// Intent is the provider-side handle for a created transaction.
type Intent struct {
	Ref         string // provider-assigned id (intent id / order id)
	ClientToken string // client-side completion token (client_secret / approval id)
	Status      string
	RiskLevel   string
}

// Status is a provider's current view of a transaction.
type Status struct {
	Status    string
	RiskLevel string
}

// Provider is the external payment gateway contract. Implementations wrap
// their transport failures in core.ErrExternal so callers can map them to
// a 5xx-equivalent.
type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	GetStatus(ctx context.Context, ref string) (Status, error)
	Capture(ctx context.Context, ref string) (Status, error)
}

// IsSettled reports whether a provider status string means the money
// moved. Card providers report "succeeded", wallet providers "COMPLETED".
func IsSettled(status string) bool {
	switch strings.ToLower(status) {
	case "succeeded", "completed":
		return true
	}
	return false
}
