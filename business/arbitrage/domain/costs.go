package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// GasCost is the estimated cost of the arbitrage transaction.
type GasCost struct {
	GasUnits uint64
	GasPrice *big.Int // wei per gas
	TotalWei *big.Int
	Native   decimal.Decimal // whole native units (ether)
	USD      decimal.Decimal
}

// NewGasCost prices gasUnits at gasPriceWei, converted with the native token's USD price.
func NewGasCost(gasUnits uint64, gasPriceWei *big.Int, nativeUSD decimal.Decimal) GasCost {
	price := new(big.Int)
	if gasPriceWei != nil {
		price.Set(gasPriceWei)
	}
	total := new(big.Int).Mul(price, new(big.Int).SetUint64(gasUnits))
	native := decimal.NewFromBigInt(total, -18)

	return GasCost{
		GasUnits: gasUnits,
		GasPrice: price,
		TotalWei: total,
		Native:   native,
		USD:      native.Mul(nativeUSD),
	}
}

// ProfitBreakdown holds the USD economics of an opportunity.
// NetProfit is always GrossProfit - GasCost - FlashloanFee.
type ProfitBreakdown struct {
	GrossProfit  decimal.Decimal
	GasCost      decimal.Decimal
	FlashloanFee decimal.Decimal
	NetProfit    decimal.Decimal
}

// NewProfitBreakdown derives NetProfit from its components.
func NewProfitBreakdown(gross, gas, fee decimal.Decimal) ProfitBreakdown {
	return ProfitBreakdown{
		GrossProfit:  gross,
		GasCost:      gas,
		FlashloanFee: fee,
		NetProfit:    gross.Sub(gas).Sub(fee),
	}
}
