package pricing

import (
	"fmt"

	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
)

// ResolvePairs maps "BASE/QUOTE" strings to registry assets on chainID.
// An unknown symbol is a configuration error.
func ResolvePairs(pairs []string, registry *asset.Registry, chainID uint64) ([]domain.Pair, error) {
	out := make([]domain.Pair, 0, len(pairs))
	seen := make(map[string]struct{}, len(pairs))

	for _, raw := range pairs {
		baseSym, quoteSym, err := config.SplitPair(raw)
		if err != nil {
			return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithCause(err))
		}

		base, ok := registry.GetBySymbolAndChain(baseSym, chainID)
		if !ok {
			return nil, apperror.New(apperror.CodeUnknownAsset,
				apperror.WithContext(fmt.Sprintf("pair %s: unknown token %s", raw, baseSym)))
		}
		quote, ok := registry.GetBySymbolAndChain(quoteSym, chainID)
		if !ok {
			return nil, apperror.New(apperror.CodeUnknownAsset,
				apperror.WithContext(fmt.Sprintf("pair %s: unknown token %s", raw, quoteSym)))
		}

		p := domain.NewPair(base, quote)
		if _, dup := seen[p.String()]; dup {
			continue
		}
		seen[p.String()] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// ResolveDEXes converts the configured routers, preserving order.
func ResolveDEXes(cfgs []config.DEXConfig) []domain.DEX {
	out := make([]domain.DEX, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, domain.DEX{Name: c.Name, Router: c.RouterAddress()})
	}
	return out
}
