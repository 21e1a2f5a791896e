// Package domain contains the core domain types for the pricing context.
package domain

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/internal/asset"
)

// Pair represents a trading pair using typed assets.
type Pair struct {
	Base  *asset.Asset // e.g., WETH
	Quote *asset.Asset // e.g., USDC
}

// NewPair creates a new trading pair.
func NewPair(base, quote *asset.Asset) Pair {
	if base == nil || quote == nil {
		panic("pricing: nil asset in pair")
	}
	return Pair{Base: base, Quote: quote}
}

// String returns the pair symbol (e.g., "WETH/USDC").
func (p Pair) String() string {
	return p.Base.Symbol() + "/" + p.Quote.Symbol()
}

// Path returns the two-hop swap path base -> quote.
func (p Pair) Path() []common.Address {
	return []common.Address{p.Base.Address(), p.Quote.Address()}
}

// DEX is a Uniswap V2 style router.
type DEX struct {
	Name   string
	Router common.Address
}
