package domain

import (
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/internal/asset"
)

// TokenPriceQuote is the router's answer for swapping AmountIn of TokenIn at a block.
type TokenPriceQuote struct {
	DEX         string
	TokenIn     *asset.Asset
	TokenOut    *asset.Asset
	AmountIn    asset.Amount
	AmountOut   asset.Amount
	BlockNumber uint64
}

// NewTokenPriceQuote creates a quote.
func NewTokenPriceQuote(dex string, amountIn, amountOut asset.Amount, blockNumber uint64) TokenPriceQuote {
	return TokenPriceQuote{
		DEX:         dex,
		TokenIn:     amountIn.Asset(),
		TokenOut:    amountOut.Asset(),
		AmountIn:    amountIn,
		AmountOut:   amountOut,
		BlockNumber: blockNumber,
	}
}

// Price returns output per one whole input unit, decimals normalised.
func (q TokenPriceQuote) Price() asset.Price {
	p, err := asset.PriceFromAmounts(q.AmountIn, q.AmountOut)
	if err != nil {
		return asset.Price{}
	}
	return p
}

// Rate is Price().Rate().
func (q TokenPriceQuote) Rate() decimal.Decimal {
	return q.Price().Rate()
}
