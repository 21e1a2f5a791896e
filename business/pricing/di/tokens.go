// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/pricing/app"
	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/ratelimit"
)

// Public service tokens - exposed to other modules
var (
	QuoteService = di.NewToken[*app.QuoteService]("pricing.QuoteService")
	UsdOracle    = di.NewToken[*app.UsdOracle]("pricing.UsdOracle")
	Pairs        = di.NewToken[[]domain.Pair]("pricing.Pairs")
)

// Private dependency tokens - internal to pricing module
var (
	DEXProvider = di.NewToken[app.DEXProvider]("pricing:dexProvider")
	RateLimiter = di.NewToken[*ratelimit.Limiter]("pricing:rateLimiter")
)

// Helper functions for type-safe access
func GetQuoteService(c di.ServiceRegistry) *app.QuoteService {
	return di.GetToken(c, QuoteService)
}

func GetUsdOracle(c di.ServiceRegistry) *app.UsdOracle {
	return di.GetToken(c, UsdOracle)
}

// GetPairs returns the tracked pairs, resolved against the asset registry.
func GetPairs(c di.ServiceRegistry) []domain.Pair {
	return di.GetToken(c, Pairs)
}

func GetDEXProvider(c di.ServiceRegistry) app.DEXProvider {
	return di.GetToken(c, DEXProvider)
}

func GetRateLimiter(c di.ServiceRegistry) *ratelimit.Limiter {
	return di.GetToken(c, RateLimiter)
}
