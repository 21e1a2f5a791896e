// Package pricing implements the pricing bounded context: router quotes across DEXes and USD valuation.
package pricing

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	blockchainDI "github.com/fd1az/flashloan-arb/business/blockchain/di"
	"github.com/fd1az/flashloan-arb/business/pricing/app"
	pricingDI "github.com/fd1az/flashloan-arb/business/pricing/di"
	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/business/pricing/infra/router"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
	"github.com/fd1az/flashloan-arb/internal/ratelimit"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register RateLimiter (private - throttles router calls)
	di.RegisterToken(c, pricingDI.RateLimiter, func(sr di.ServiceRegistry) *ratelimit.Limiter {
		cfg := sr.Get("config").(*config.Config)
		return ratelimit.New(cfg.Pricing.RequestsPerMinute)
	})

	// Register DEXProvider (private - router quotes over the chain client)
	di.RegisterToken(c, pricingDI.DEXProvider, func(sr di.ServiceRegistry) app.DEXProvider {
		log := sr.Get("logger").(logger.LoggerInterface)

		provider, err := router.NewProvider(blockchainDI.GetChainService(sr), log)
		if err != nil {
			panic("failed to create router provider: " + err.Error())
		}
		return provider
	})

	// Register Pairs (public - resolved once against the asset registry)
	di.RegisterToken(c, pricingDI.Pairs, func(sr di.ServiceRegistry) []domain.Pair {
		cfg := sr.Get("config").(*config.Config)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		pairs, err := ResolvePairs(cfg.Pairs, registry, cfg.Ethereum.ChainID)
		if err != nil {
			panic("failed to resolve pairs: " + err.Error())
		}
		return pairs
	})

	// Register QuoteService (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.QuoteService, func(sr di.ServiceRegistry) *app.QuoteService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		svc, err := app.NewQuoteService(app.QuoteServiceConfig{
			DEXes:         ResolveDEXes(cfg.DEXes),
			QuoteAmount:   cfg.Detector.QuoteAmountDecimal(),
			MaxConcurrent: cfg.Pricing.MaxConcurrentQuotes,
		}, pricingDI.GetDEXProvider(sr), pricingDI.GetRateLimiter(sr), log)
		if err != nil {
			panic("failed to create quote service: " + err.Error())
		}
		return svc
	})

	// Register UsdOracle (public - exposed to other modules)
	di.RegisterToken(c, pricingDI.UsdOracle, func(sr di.ServiceRegistry) *app.UsdOracle {
		cfg := sr.Get("config").(*config.Config)
		registry := sr.Get("assetRegistry").(*asset.Registry)
		quotes := pricingDI.GetQuoteService(sr)

		refDEX, ok := quotes.DEX(cfg.Pricing.ReferenceDEX)
		if !ok {
			panic("unknown reference dex: " + cfg.Pricing.ReferenceDEX)
		}
		refStable, ok := registry.GetBySymbolAndChain(cfg.Pricing.ReferenceStable, cfg.Ethereum.ChainID)
		if !ok {
			panic("unknown reference stablecoin: " + cfg.Pricing.ReferenceStable)
		}

		overrides := make(map[string]decimal.Decimal, len(cfg.Pricing.USDOverrides))
		for symbol, usd := range cfg.Pricing.USDOverrides {
			overrides[strings.ToUpper(symbol)] = decimal.NewFromFloat(usd)
		}

		return app.NewUsdOracle(app.UsdOracleConfig{
			ReferenceDEX:    refDEX,
			ReferenceStable: refStable,
			Stablecoins:     cfg.Pricing.Stablecoins,
			Overrides:       overrides,
		}, quotes)
	})

	return nil
}

// Startup resolves the tracked pairs so a bad symbol fails at boot.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	pairs, err := ResolvePairs(cfg.Pairs, mono.AssetRegistry(), cfg.Ethereum.ChainID)
	if err != nil {
		return err
	}

	mono.OnClose(pricingDI.GetUsdOracle(mono.Services()))

	names := make([]string, 0, len(pairs))
	for _, p := range pairs {
		names = append(names, p.String())
	}
	log.Info(ctx, "pricing module started",
		"pairs", strings.Join(names, ","),
		"dexes", len(cfg.DEXes),
		"reference_dex", cfg.Pricing.ReferenceDEX)
	return nil
}
