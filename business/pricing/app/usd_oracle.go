package app

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/cache"
)

const usdCacheTTL = 5 * time.Minute

// UsdOracleConfig configures a UsdOracle.
type UsdOracleConfig struct {
	ReferenceDEX    domain.DEX
	ReferenceStable *asset.Asset
	Stablecoins     []string                   // symbols pegged at 1 USD
	Overrides       map[string]decimal.Decimal // symbol -> fixed USD price
}

type usdKey struct {
	symbol string
	block  uint64
}

// UsdOracle prices tokens in USD by quoting them into a reference stablecoin.
type UsdOracle struct {
	quotes    *QuoteService
	reference domain.DEX
	refStable *asset.Asset
	stables   map[string]struct{}
	overrides map[string]decimal.Decimal
	cache     *cache.Cache[usdKey, decimal.Decimal]
}

// NewUsdOracle creates a UsdOracle.
func NewUsdOracle(cfg UsdOracleConfig, quotes *QuoteService) *UsdOracle {
	stables := make(map[string]struct{}, len(cfg.Stablecoins))
	for _, s := range cfg.Stablecoins {
		stables[strings.ToUpper(s)] = struct{}{}
	}
	overrides := make(map[string]decimal.Decimal, len(cfg.Overrides))
	for k, v := range cfg.Overrides {
		overrides[strings.ToUpper(k)] = v
	}

	return &UsdOracle{
		quotes:    quotes,
		reference: cfg.ReferenceDEX,
		refStable: cfg.ReferenceStable,
		stables:   stables,
		overrides: overrides,
		cache:     cache.New[usdKey, decimal.Decimal](time.Minute),
	}
}

// PriceUSD returns the USD value of one whole unit of token at blockNumber.
// Overrides win, stablecoins are 1, everything else is a reference quote
// cached per block.
func (o *UsdOracle) PriceUSD(ctx context.Context, token *asset.Asset, blockNumber uint64) (decimal.Decimal, bool) {
	if token == nil {
		return decimal.Zero, false
	}
	symbol := token.Symbol()

	if v, ok := o.overrides[symbol]; ok {
		return v, true
	}
	if _, ok := o.stables[symbol]; ok || token.Class() == asset.ClassStable {
		return decimal.NewFromInt(1), true
	}

	key := usdKey{symbol: symbol, block: blockNumber}
	if v, ok := o.cache.Get(ctx, key); ok {
		return v, true
	}

	one, err := asset.FloorDecimal(token, decimal.NewFromInt(1))
	if err != nil {
		return decimal.Zero, false
	}
	q, ok := o.quotes.Quote(ctx, o.reference, one, o.refStable, blockNumber)
	if !ok {
		return decimal.Zero, false
	}

	price := q.Rate()
	o.cache.Set(ctx, key, price, usdCacheTTL)
	return price, true
}

// Close stops the cache janitor.
func (o *UsdOracle) Close() error {
	o.cache.Close()
	return nil
}
