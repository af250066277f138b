package payments

import "github.com/shopspring/decimal"

// Fixed conversion applied exactly once, at intent creation. Not a live FX
// feed: the wallet provider settles in USD at a fixed divisor, the card
// provider charges the base currency directly.
var walletFXDivisor = decimal.NewFromFloat(3.1)

const (
	baseCurrency       = "TND"
	walletSettlementCy = "USD"
)

// Convert turns a base-currency amount into the amount and currency the
// given provider is charged.
func Convert(base decimal.Decimal, kind Kind) (decimal.Decimal, string) {
	if kind == KindWallet {
		return base.Div(walletFXDivisor).Round(2), walletSettlementCy
	}
	return base.Round(2), baseCurrency
}

// MinorUnits expresses an amount in the integer minor units card gateways
// expect (cents-style, two decimal places).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
