package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// FeeData is the current network fee snapshot. The EIP-1559 fields are nil on
// chains without a base fee.
type FeeData struct {
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	BaseFee              *big.Int
	FetchedAt            time.Time
}

// NewFeeData builds FeeData with maxFee = 2*baseFee + tip when baseFee and tip are known.
func NewFeeData(gasPrice, baseFee, tip *big.Int, at time.Time) *FeeData {
	fd := &FeeData{
		GasPrice:  gasPrice,
		BaseFee:   baseFee,
		FetchedAt: at,
	}
	if baseFee != nil && tip != nil {
		maxFee := new(big.Int).Mul(baseFee, big.NewInt(2))
		maxFee.Add(maxFee, tip)
		fd.MaxFeePerGas = maxFee
		fd.MaxPriorityFeePerGas = new(big.Int).Set(tip)
	}
	return fd
}

// IsEIP1559 reports whether dynamic fee fields are populated.
func (f *FeeData) IsEIP1559() bool {
	return f.MaxFeePerGas != nil && f.MaxPriorityFeePerGas != nil
}

// GasPriceGwei returns the legacy gas price in gwei.
func (f *FeeData) GasPriceGwei() decimal.Decimal {
	return WeiToGwei(f.GasPrice)
}

// WeiToGwei converts wei to gwei.
func WeiToGwei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -9)
}

// WeiToEther converts wei to whole ether.
func WeiToEther(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -18)
}

// GweiToWei converts gwei to wei, truncating sub-wei precision.
func GweiToWei(gwei decimal.Decimal) *big.Int {
	return gwei.Shift(9).Truncate(0).BigInt()
}

// EtherToWei converts whole ether to wei, truncating sub-wei precision.
func EtherToWei(eth decimal.Decimal) *big.Int {
	return eth.Shift(18).Truncate(0).BigInt()
}
