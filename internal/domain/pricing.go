package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AuthoritativePrice is a unit price resolved from the commerce API for one variant.
type AuthoritativePrice struct {
	VariantID string
	Amount    decimal.Decimal
	Currency  string
}

type PriceSource string

const (
	PriceSourceAuthoritative PriceSource = "authoritative"
	PriceSourceFallback      PriceSource = "fallback"
)

// LineResolution records how a single submitted line was priced.
type LineResolution struct {
	VariantID      string          `json:"variant_id"`
	Name           string          `json:"name"`
	Quantity       int             `json:"quantity"`
	SubmittedPrice decimal.Decimal `json:"submitted_price"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Source         PriceSource     `json:"source"`
}

// ReconciledOrder is the server-side view of a checkout, computed once per attempt.
type ReconciledOrder struct {
	Total    decimal.Decimal  `json:"total"`
	Currency string           `json:"currency"`
	Valid    bool             `json:"valid"`
	Lines    []LineResolution `json:"lines"`
}

// FallbackLines counts lines priced from client data.
func (o *ReconciledOrder) FallbackLines() int {
	n := 0
	for _, l := range o.Lines {
		if l.Source == PriceSourceFallback {
			n++
		}
	}
	return n
}

// Zero-decimal currencies as defined by Stripe.
var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "JPY": {}, "KMF": {}, "KRW": {}, "MGA": {},
	"PYG": {}, "RWF": {}, "UGX": {}, "VND": {}, "VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

// MinorUnitExponent returns the number of decimal places the currency is charged in.
func MinorUnitExponent(currency string) int32 {
	if _, ok := zeroDecimalCurrencies[strings.ToUpper(currency)]; ok {
		return 0
	}
	return 2
}

// ToMinorUnits converts a major-unit amount to integer minor units, rounding
// half away from zero. 19.999 USD becomes 2000.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(MinorUnitExponent(currency)).Round(0).IntPart()
}

func FromMinorUnits(amount int64, currency string) decimal.Decimal {
	return decimal.New(amount, -MinorUnitExponent(currency))
}
