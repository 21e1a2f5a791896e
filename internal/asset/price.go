package asset

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// PricePrecision is the fixed-point precision of a Price.
const PricePrecision = 18

// Price is an exchange rate: how many whole units of quote one whole unit of base buys.
// Stored as a fixed-point integer with PricePrecision decimals.
type Price struct {
	rate  *big.Int
	base  *Asset
	quote *Asset
}

// NewPrice creates a price from a decimal rate.
func NewPrice(base, quote *Asset, rate decimal.Decimal) Price {
	if base == nil || quote == nil {
		panic("asset: nil base or quote in price")
	}
	if rate.IsNegative() {
		panic("asset: negative price rate")
	}

	return Price{
		rate:  rate.Shift(PricePrecision).Truncate(0).BigInt(),
		base:  base,
		quote: quote,
	}
}

// PriceFromAmounts derives the rate from a trade of in for out.
func PriceFromAmounts(in, out Amount) (Price, error) {
	if in.Asset() == nil || out.Asset() == nil {
		return Price{}, ErrNilAsset
	}
	if in.IsZero() {
		return Price{}, fmt.Errorf("asset: zero input amount")
	}
	rate := out.ToDecimal().DivRound(in.ToDecimal(), PricePrecision)
	return NewPrice(in.Asset(), out.Asset(), rate), nil
}

// Rate returns the rate as decimal.
func (p Price) Rate() decimal.Decimal {
	if p.rate == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(p.rate, -PricePrecision)
}

// Base returns the asset being priced.
func (p Price) Base() *Asset {
	return p.base
}

// Quote returns the unit of the price.
func (p Price) Quote() *Asset {
	return p.quote
}

// Pair returns "BASE/QUOTE".
func (p Price) Pair() string {
	if p.base == nil || p.quote == nil {
		return "?/?"
	}
	return fmt.Sprintf("%s/%s", p.base.Symbol(), p.quote.Symbol())
}

// IsZero returns true if the price is zero.
func (p Price) IsZero() bool {
	return p.rate == nil || p.rate.Sign() == 0
}

func (p Price) String() string {
	return fmt.Sprintf("%s %s", p.Rate().String(), p.Pair())
}
