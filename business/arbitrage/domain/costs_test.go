package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewGasCost(t *testing.T) {
	tests := []struct {
		name         string
		gasUnits     uint64
		gasPriceWei  string
		nativeUSD    string
		wantNative   string
		wantTotalUSD string
	}{
		{
			name:         "standard_gas_25gwei_3400eth",
			gasUnits:     200_000,
			gasPriceWei:  "25000000000",
			nativeUSD:    "3400",
			wantNative:   "0.005",
			wantTotalUSD: "17",
		},
		{
			name:         "high_gas_100gwei",
			gasUnits:     200_000,
			gasPriceWei:  "100000000000",
			nativeUSD:    "3400",
			wantNative:   "0.02",
			wantTotalUSD: "68",
		},
		{
			name:         "flashloan_gas_350k_at_5gwei",
			gasUnits:     350_000,
			gasPriceWei:  "5000000000",
			nativeUSD:    "2000",
			wantNative:   "0.00175",
			wantTotalUSD: "3.5",
		},
		{
			name:         "zero_gas_units",
			gasUnits:     0,
			gasPriceWei:  "25000000000",
			nativeUSD:    "3400",
			wantNative:   "0",
			wantTotalUSD: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, ok := new(big.Int).SetString(tt.gasPriceWei, 10)
			if !ok {
				t.Fatalf("bad gas price %q", tt.gasPriceWei)
			}

			got := NewGasCost(tt.gasUnits, price, decimal.RequireFromString(tt.nativeUSD))

			if !got.Native.Equal(decimal.RequireFromString(tt.wantNative)) {
				t.Errorf("Native = %s, want %s", got.Native, tt.wantNative)
			}
			if !got.USD.Equal(decimal.RequireFromString(tt.wantTotalUSD)) {
				t.Errorf("USD = %s, want %s", got.USD, tt.wantTotalUSD)
			}
			wantWei := new(big.Int).Mul(price, new(big.Int).SetUint64(tt.gasUnits))
			if got.TotalWei.Cmp(wantWei) != 0 {
				t.Errorf("TotalWei = %s, want %s", got.TotalWei, wantWei)
			}
		})
	}
}

func TestNewGasCost_NilPrice(t *testing.T) {
	got := NewGasCost(100_000, nil, decimal.NewFromInt(3400))
	if !got.USD.IsZero() {
		t.Errorf("USD = %s, want 0", got.USD)
	}
}

func TestNewProfitBreakdown(t *testing.T) {
	gross := decimal.RequireFromString("40")
	gas := decimal.RequireFromString("3.5")
	fee := decimal.RequireFromString("0.27")

	got := NewProfitBreakdown(gross, gas, fee)

	if !got.NetProfit.Equal(decimal.RequireFromString("36.23")) {
		t.Errorf("NetProfit = %s, want 36.23", got.NetProfit)
	}
	if !got.NetProfit.Equal(got.GrossProfit.Sub(got.GasCost).Sub(got.FlashloanFee)) {
		t.Error("NetProfit != GrossProfit - GasCost - FlashloanFee")
	}
}
