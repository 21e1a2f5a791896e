package domain

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/internal/asset"
)

// SizePolicy caps the default flashloan size when the caller asks for none.
// A symbol cap wins over the class cap; unknown classes use the default class.
type SizePolicy struct {
	classCaps  map[asset.Class]decimal.Decimal
	symbolCaps map[string]decimal.Decimal
}

// NewSizePolicy builds a policy. Symbols are matched case-insensitively.
func NewSizePolicy(classCaps map[asset.Class]decimal.Decimal, symbolCaps map[string]decimal.Decimal) SizePolicy {
	p := SizePolicy{
		classCaps:  make(map[asset.Class]decimal.Decimal, len(classCaps)),
		symbolCaps: make(map[string]decimal.Decimal, len(symbolCaps)),
	}
	for k, v := range classCaps {
		p.classCaps[k] = v
	}
	for k, v := range symbolCaps {
		p.symbolCaps[strings.ToUpper(k)] = v
	}
	return p
}

// DefaultSizePolicy caps volatile majors at 5 whole units (WBTC at 1),
// stablecoins at 50,000 and everything else at 1.
func DefaultSizePolicy() SizePolicy {
	return NewSizePolicy(
		map[asset.Class]decimal.Decimal{
			asset.ClassVolatile: decimal.NewFromInt(5),
			asset.ClassStable:   decimal.NewFromInt(50_000),
			asset.ClassDefault:  decimal.NewFromInt(1),
		},
		map[string]decimal.Decimal{
			"WBTC": decimal.NewFromInt(1),
		},
	)
}

// Cap returns the default size ceiling for symbol of class.
func (p SizePolicy) Cap(symbol string, class asset.Class) decimal.Decimal {
	if v, ok := p.symbolCaps[strings.ToUpper(symbol)]; ok {
		return v
	}
	if v, ok := p.classCaps[class]; ok {
		return v
	}
	return p.classCaps[asset.ClassDefault]
}

// OptimalAmount sizes a loan against c: min(requested, max) when requested is
// given, otherwise min(policy cap, max). The result never exceeds MaxAmount
// and is never negative.
func (p SizePolicy) OptimalAmount(c FlashloanCapability, requested *decimal.Decimal) decimal.Decimal {
	limit := p.Cap(c.Symbol, c.Class)
	if requested != nil {
		limit = *requested
	}
	out := decimal.Min(limit, c.MaxAmount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}
