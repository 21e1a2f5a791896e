package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/fd1az/flashloan-arb/internal/asset"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }

func TestSizePolicy_Cap(t *testing.T) {
	p := DefaultSizePolicy()

	assert.True(t, p.Cap("WETH", asset.ClassVolatile).Equal(dec("5")))
	assert.True(t, p.Cap("wbtc", asset.ClassVolatile).Equal(dec("1")))
	assert.True(t, p.Cap("USDC", asset.ClassStable).Equal(dec("50000")))
	assert.True(t, p.Cap("PEPE", asset.ClassDefault).Equal(dec("1")))
	assert.True(t, p.Cap("PEPE", asset.Class("exotic")).Equal(dec("1")))
}

func TestSizePolicy_OptimalAmount(t *testing.T) {
	p := DefaultSizePolicy()

	tests := []struct {
		name      string
		symbol    string
		class     asset.Class
		max       string
		requested *decimal.Decimal
		want      string
	}{
		{name: "requested_above_max", symbol: "WETH", class: asset.ClassVolatile, max: "40", requested: ptr(dec("60")), want: "40"},
		{name: "requested_below_max", symbol: "WETH", class: asset.ClassVolatile, max: "40", requested: ptr(dec("12.5")), want: "12.5"},
		{name: "class_cap_below_max", symbol: "WETH", class: asset.ClassVolatile, max: "40", want: "5"},
		{name: "class_cap_above_max", symbol: "WETH", class: asset.ClassVolatile, max: "2", want: "2"},
		{name: "stable_cap", symbol: "USDC", class: asset.ClassStable, max: "1000000", want: "50000"},
		{name: "negative_request_clamped", symbol: "WETH", class: asset.ClassVolatile, max: "40", requested: ptr(dec("-1")), want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := FlashloanCapability{Symbol: tt.symbol, Class: tt.class, MaxAmount: dec(tt.max)}
			got := p.OptimalAmount(c, tt.requested)
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
			assert.True(t, got.LessThanOrEqual(c.MaxAmount))
		})
	}
}
