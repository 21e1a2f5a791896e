package app

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
)

var tenThousand = decimal.NewFromInt(10_000)

// ProfitInputs are the market values a profit calculation needs.
type ProfitInputs struct {
	Amount    decimal.Decimal // whole base units
	BuyPrice  decimal.Decimal // quote per base
	SellPrice decimal.Decimal // quote per base
	QuoteUSD  decimal.Decimal
	BaseUSD   decimal.Decimal
	NativeUSD decimal.Decimal
	GasPrice  *big.Int // wei
}

// ProfitCalculator calculates arbitrage profitability.
type ProfitCalculator struct {
	gasUnits uint64
	feeBps   decimal.Decimal
}

// NewProfitCalculator creates a calculator for a trade costing gasUnits and a
// flashloan fee of feeBps basis points.
func NewProfitCalculator(gasUnits uint64, feeBps decimal.Decimal) *ProfitCalculator {
	return &ProfitCalculator{
		gasUnits: gasUnits,
		feeBps:   feeBps,
	}
}

// Calculate computes the USD economics:
//
//	gross = amount * (sell - buy) * quoteUSD
//	gas   = gasUnits * gasPrice (ether) * nativeUSD
//	fee   = amount * feeBps / 10000 * baseUSD
//	net   = gross - gas - fee
func (c *ProfitCalculator) Calculate(in ProfitInputs) domain.ProfitBreakdown {
	gross := in.Amount.Mul(in.SellPrice.Sub(in.BuyPrice)).Mul(in.QuoteUSD)
	gas := domain.NewGasCost(c.gasUnits, in.GasPrice, in.NativeUSD)
	fee := in.Amount.Mul(c.feeBps).Div(tenThousand).Mul(in.BaseUSD)

	return domain.NewProfitBreakdown(gross, gas.USD, fee)
}

// GasUnits returns the configured gas estimate.
func (c *ProfitCalculator) GasUnits() uint64 {
	return c.gasUnits
}
