package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	chainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
)

func fixedFees() *fakeFees {
	return &fakeFees{fd: chainDomain.NewFeeData(gwei(5), nil, nil, time.Now())}
}

func TestDetector_AcceptsOnePercentSpread(t *testing.T) {
	sizer := &fakeSizer{amount: decimal.NewFromInt(5)}
	d := newTestDetector(t, defaultDetectorConfig(), sizer, defaultPrices(), fixedFees())

	quotes := []pricingDomain.TokenPriceQuote{quoteAt(dexA, 1000, 100), quoteAt(dexB, 1010, 100)}
	opp, ok := d.Detect(context.Background(), wethUSDC, quotes, 100)
	require.True(t, ok)

	assert.Equal(t, "BuyDexA", opp.BuyDEX())
	assert.Equal(t, "SellDexB", opp.SellDEX())
	assert.Equal(t, dexA.Router, opp.Route.Buy.Router)
	assert.Equal(t, dexB.Router, opp.Route.Sell.Router)
	assert.True(t, opp.SpreadPercent.Equal(decimal.NewFromInt(1)), "spread %s", opp.SpreadPercent)
	assert.True(t, opp.SellPrice.GreaterThan(opp.BuyPrice))
	assert.True(t, opp.FlashloanAmount.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, uint64(100), opp.BlockNumber)
	assert.Equal(t, "WETH/USDC|BuyDexA|SellDexB|100", opp.Key())

	// gross 5 * 10 * 1, gas 350k * 5 gwei * 1000, fee 5 * 9bps * 1000
	assert.True(t, opp.GrossProfit.Equal(decimal.NewFromInt(50)), "gross %s", opp.GrossProfit)
	assert.True(t, opp.GasCostEstimate.Equal(decimal.RequireFromString("1.75")), "gas %s", opp.GasCostEstimate)
	assert.True(t, opp.FlashloanFee.Equal(decimal.RequireFromString("4.5")), "fee %s", opp.FlashloanFee)
	assert.True(t, opp.NetProfit.Equal(opp.GrossProfit.Sub(opp.GasCostEstimate).Sub(opp.FlashloanFee)))
	assert.True(t, opp.NetProfit.Equal(decimal.RequireFromString("43.75")))
}

func TestDetector_SpreadBelowThreshold(t *testing.T) {
	cfg := defaultDetectorConfig()
	cfg.MinSpreadPercent = decimal.NewFromInt(2)
	d := newTestDetector(t, cfg, &fakeSizer{amount: decimal.NewFromInt(5)}, defaultPrices(), fixedFees())

	quotes := []pricingDomain.TokenPriceQuote{quoteAt(dexA, 1000, 100), quoteAt(dexB, 1010, 100)}
	opp, ok := d.Detect(context.Background(), wethUSDC, quotes, 100)

	assert.False(t, ok)
	assert.Nil(t, opp)
}

func TestDetector_IgnoresFailedDEX(t *testing.T) {
	d := newTestDetector(t, defaultDetectorConfig(), &fakeSizer{amount: decimal.NewFromInt(5)}, defaultPrices(), fixedFees())

	// the third DEX returned no quote and is simply absent
	quotes := []pricingDomain.TokenPriceQuote{quoteAt(dexA, 1000, 100), quoteAt(dexB, 1010, 100)}
	opp, ok := d.Detect(context.Background(), wethUSDC, quotes, 100)

	require.True(t, ok)
	assert.NotEqual(t, dexC.Name, opp.BuyDEX())
	assert.NotEqual(t, dexC.Name, opp.SellDEX())
}

func TestDetector_Rejections(t *testing.T) {
	twoQuotes := []pricingDomain.TokenPriceQuote{quoteAt(dexA, 1000, 100), quoteAt(dexB, 1010, 100)}

	tests := []struct {
		name   string
		cfg    func(*DetectorConfig)
		amount string
		prices fakePrices
		fees   *fakeFees
		quotes []pricingDomain.TokenPriceQuote
	}{
		{name: "single_quote", quotes: twoQuotes[:1]},
		{name: "quote_from_other_block", quotes: []pricingDomain.TokenPriceQuote{quoteAt(dexA, 1000, 100), quoteAt(dexB, 1010, 99)}},
		{name: "equal_prices", quotes: []pricingDomain.TokenPriceQuote{quoteAt(dexA, 1000, 100), quoteAt(dexB, 1000, 100)}},
		{name: "spread_equal_to_threshold", cfg: func(c *DetectorConfig) { c.MinSpreadPercent = decimal.NewFromInt(1) }},
		{name: "unknown_flashloan_token", amount: "0"},
		{name: "below_min_trade", amount: "0.05"},
		{name: "fee_data_error", fees: &fakeFees{err: errors.New("rpc down")}},
		{name: "missing_usd_price", prices: fakePrices{"USDC": decimal.NewFromInt(1)}},
		{name: "net_profit_below_threshold", cfg: func(c *DetectorConfig) { c.MinNetProfitUSD = decimal.NewFromInt(50) }},
		{name: "net_profit_equal_to_threshold", cfg: func(c *DetectorConfig) { c.MinNetProfitUSD = decimal.RequireFromString("43.75") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultDetectorConfig()
			if tt.cfg != nil {
				tt.cfg(&cfg)
			}
			amount := decimal.NewFromInt(5)
			if tt.amount != "" {
				amount = decimal.RequireFromString(tt.amount)
			}
			prices := defaultPrices()
			if tt.prices != nil {
				prices = tt.prices
			}
			fees := fixedFees()
			if tt.fees != nil {
				fees = tt.fees
			}
			quotes := twoQuotes
			if tt.quotes != nil {
				quotes = tt.quotes
			}

			d := newTestDetector(t, cfg, &fakeSizer{amount: amount}, prices, fees)
			_, ok := d.Detect(context.Background(), wethUSDC, quotes, 100)
			assert.False(t, ok)
		})
	}
}

func TestDetector_SizeClampedToMaxTrade(t *testing.T) {
	cfg := defaultDetectorConfig()
	cfg.MaxTradeAmount = decimal.NewFromInt(3)
	notional := decimal.NewFromInt(60)
	cfg.MaxNotional = &notional
	sizer := &fakeSizer{amount: decimal.NewFromInt(40)}

	d := newTestDetector(t, cfg, sizer, defaultPrices(), fixedFees())
	opp, ok := d.Detect(context.Background(), wethUSDC,
		[]pricingDomain.TokenPriceQuote{quoteAt(dexA, 1000, 100), quoteAt(dexB, 1010, 100)}, 100)

	require.True(t, ok)
	assert.True(t, opp.FlashloanAmount.Equal(decimal.NewFromInt(3)))
	require.NotNil(t, sizer.requested)
	assert.True(t, sizer.requested.Equal(notional))
}

func TestDetector_BuyIsMinSellIsMax(t *testing.T) {
	d := newTestDetector(t, defaultDetectorConfig(), &fakeSizer{amount: decimal.NewFromInt(5)}, defaultPrices(), fixedFees())

	quotes := []pricingDomain.TokenPriceQuote{
		quoteAt(dexC, 1005, 100),
		quoteAt(dexB, 1020, 100),
		quoteAt(dexA, 1000, 100),
	}
	opp, ok := d.Detect(context.Background(), wethUSDC, quotes, 100)
	require.True(t, ok)

	assert.Equal(t, dexA.Name, opp.BuyDEX())
	assert.Equal(t, dexB.Name, opp.SellDEX())
	assert.True(t, opp.SpreadPercent.Equal(decimal.NewFromInt(2)))
}

func TestNewDetector_RequiresNative(t *testing.T) {
	_, err := NewDetector(DetectorConfig{}, NewProfitCalculator(1, decimal.Zero), nil, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestRankOpportunities(t *testing.T) {
	mk := func(id string, net int64) *domain.ArbitrageOpportunity {
		return &domain.ArbitrageOpportunity{ID: id, NetProfit: decimal.NewFromInt(net)}
	}
	in := []*domain.ArbitrageOpportunity{mk("low", 10), mk("first", 30), mk("second", 30), mk("mid", 20)}

	got := RankOpportunities(in)

	ids := make([]string, len(got))
	for i, o := range got {
		ids[i] = o.ID
	}
	assert.Equal(t, []string{"first", "second", "mid", "low"}, ids)
	assert.Equal(t, "low", in[0].ID, "input must not be reordered")
}
