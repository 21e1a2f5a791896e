package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/internal/asset"
)

func TestSpreadPercent(t *testing.T) {
	tests := []struct {
		name string
		buy  string
		sell string
		want string
	}{
		{name: "one_percent", buy: "1000", sell: "1010", want: "1"},
		{name: "equal_prices", buy: "3400", sell: "3400", want: "0"},
		{name: "zero_buy_no_panic", buy: "0", sell: "3400", want: "0"},
		{name: "ten_percent", buy: "3000", sell: "3300", want: "10"},
		{name: "small_numbers", buy: "0.001", sell: "0.00101", want: "1"},
		{name: "negative", buy: "2000", sell: "1980", want: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SpreadPercent(decimal.RequireFromString(tt.buy), decimal.RequireFromString(tt.sell))
			want := decimal.RequireFromString(tt.want)
			if !got.Round(8).Equal(want) {
				t.Errorf("SpreadPercent = %s, want %s", got, want)
			}
		})
	}
}

// quoteAt builds a WETH->USDC quote for one WETH at the given USDC price.
func quoteAt(dex string, usdc int64) TokenPriceQuote {
	in := asset.NewAmount(asset.WETH, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	out := asset.NewAmount(asset.USDC, new(big.Int).Mul(big.NewInt(usdc), big.NewInt(1_000_000)))
	return NewTokenPriceQuote(dex, in, out, 100)
}

func TestTokenPriceQuote_PriceNormalisesDecimals(t *testing.T) {
	q := quoteAt("uniswap", 3400)

	if got := q.Rate(); !got.Equal(decimal.NewFromInt(3400)) {
		t.Errorf("Rate = %s, want 3400", got)
	}
	if got := q.Price().Pair(); got != "WETH/USDC" {
		t.Errorf("Pair = %s, want WETH/USDC", got)
	}
}

func TestBestSpread(t *testing.T) {
	tests := []struct {
		name     string
		quotes   []TokenPriceQuote
		wantOK   bool
		wantBuy  string
		wantSell string
		wantPct  string
	}{
		{
			name:     "two_dexes",
			quotes:   []TokenPriceQuote{quoteAt("BuyDexA", 1000), quoteAt("SellDexB", 1010)},
			wantOK:   true,
			wantBuy:  "BuyDexA",
			wantSell: "SellDexB",
			wantPct:  "1",
		},
		{
			name:     "min_and_max_of_three",
			quotes:   []TokenPriceQuote{quoteAt("a", 1005), quoteAt("b", 1020), quoteAt("c", 990)},
			wantOK:   true,
			wantBuy:  "c",
			wantSell: "b",
		},
		{
			name:     "ties_keep_first_seen",
			quotes:   []TokenPriceQuote{quoteAt("a", 1000), quoteAt("b", 1000), quoteAt("c", 1010), quoteAt("d", 1010)},
			wantOK:   true,
			wantBuy:  "a",
			wantSell: "c",
		},
		{
			name:   "single_quote",
			quotes: []TokenPriceQuote{quoteAt("a", 1000)},
		},
		{
			name:   "all_equal",
			quotes: []TokenPriceQuote{quoteAt("a", 1000), quoteAt("b", 1000)},
		},
		{
			name: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := BestSpread(tt.quotes)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if s.Buy.DEX != tt.wantBuy {
				t.Errorf("Buy = %s, want %s", s.Buy.DEX, tt.wantBuy)
			}
			if s.Sell.DEX != tt.wantSell {
				t.Errorf("Sell = %s, want %s", s.Sell.DEX, tt.wantSell)
			}
			if !s.SellPrice().GreaterThan(s.BuyPrice()) {
				t.Errorf("sell %s not above buy %s", s.SellPrice(), s.BuyPrice())
			}
			if tt.wantPct != "" && !s.Percent.Equal(decimal.RequireFromString(tt.wantPct)) {
				t.Errorf("Percent = %s, want %s", s.Percent, tt.wantPct)
			}
		})
	}
}
