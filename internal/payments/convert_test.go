package payments

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestConvertWalletDividesByFixedRate(t *testing.T) {
	amount, currency := Convert(decimal.RequireFromString("310.00"), KindWallet)
	if currency != "USD" {
		t.Fatalf("currency = %s, want USD", currency)
	}
	if !amount.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("310 / 3.1 = %s, want 100.00", amount)
	}
}

func TestConvertWalletRoundsToCents(t *testing.T) {
	amount, _ := Convert(decimal.RequireFromString("100.00"), KindWallet)
	if !amount.Equal(decimal.RequireFromString("32.26")) {
		t.Fatalf("100 / 3.1 = %s, want 32.26", amount)
	}
}

func TestConvertCardKeepsBaseCurrency(t *testing.T) {
	amount, currency := Convert(decimal.RequireFromString("250.555"), KindCard)
	if currency != "TND" {
		t.Fatalf("currency = %s, want TND", currency)
	}
	if !amount.Equal(decimal.RequireFromString("250.56")) {
		t.Fatalf("amount = %s, want 250.56", amount)
	}
}

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"310.00", 31000},
		{"0.01", 1},
		{"99.99", 9999},
	}
	for _, c := range cases {
		if got := MinorUnits(decimal.RequireFromString(c.in)); got != c.want {
			t.Fatalf("MinorUnits(%s) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestIsSettled(t *testing.T) {
	for _, s := range []string{"succeeded", "COMPLETED", "Succeeded"} {
		if !IsSettled(s) {
			t.Fatalf("%q should count as settled", s)
		}
	}
	for _, s := range []string{"pending", "requires_payment_method", "CREATED", "failed", ""} {
		if IsSettled(s) {
			t.Fatalf("%q must not count as settled", s)
		}
	}
}
