package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Spread is the best buy/sell combination among a pair's quotes for one block.
type Spread struct {
	Buy     TokenPriceQuote // lowest price
	Sell    TokenPriceQuote // highest price
	Percent decimal.Decimal // (sell - buy) / buy * 100
}

// BuyPrice returns the buy-side rate.
func (s Spread) BuyPrice() decimal.Decimal { return s.Buy.Rate() }

// SellPrice returns the sell-side rate.
func (s Spread) SellPrice() decimal.Decimal { return s.Sell.Rate() }

// SpreadPercent computes (sell - buy) / buy * 100. A zero buy price yields zero.
func SpreadPercent(buy, sell decimal.Decimal) decimal.Decimal {
	if buy.IsZero() {
		return decimal.Zero
	}
	return sell.Sub(buy).Div(buy).Mul(hundred)
}

// BestSpread picks the minimum price as buy and the maximum as sell. Ties keep
// the first quote seen. Fewer than two quotes, or a buy and sell on the same
// DEX, yields false.
func BestSpread(quotes []TokenPriceQuote) (Spread, bool) {
	if len(quotes) < 2 {
		return Spread{}, false
	}

	buy, sell := 0, 0
	for i := 1; i < len(quotes); i++ {
		rate := quotes[i].Rate()
		if rate.LessThan(quotes[buy].Rate()) {
			buy = i
		}
		if rate.GreaterThan(quotes[sell].Rate()) {
			sell = i
		}
	}

	if buy == sell {
		return Spread{}, false
	}

	b, s := quotes[buy], quotes[sell]
	return Spread{
		Buy:     b,
		Sell:    s,
		Percent: SpreadPercent(b.Rate(), s.Rate()),
	}, true
}
