package asset_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
)

func TestAmount_Basic(t *testing.T) {
	oneETH := asset.NewAmount(asset.WETH, big.NewInt(1e18))

	assert.False(t, oneETH.IsZero())
	assert.True(t, oneETH.ToDecimal().Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "1 WETH", oneETH.String())
}

func TestAmount_CmpDifferentAssets(t *testing.T) {
	_, err := asset.NewAmount(asset.WETH, big.NewInt(1)).Cmp(asset.NewAmount(asset.USDC, big.NewInt(1)))
	assert.ErrorIs(t, err, asset.ErrAssetMismatch)
}

func TestParseDecimal(t *testing.T) {
	amount, err := asset.ParseDecimal(asset.USDC, decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_500_000), amount.Raw())

	_, err = asset.ParseDecimal(asset.USDC, decimal.RequireFromString("0.0000001"))
	assert.ErrorIs(t, err, asset.ErrTooManyDecimals)

	_, err = asset.ParseDecimal(asset.USDC, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, asset.ErrNegativeAmount)
}

func TestFloorDecimal(t *testing.T) {
	amount, err := asset.FloorDecimal(asset.USDC, decimal.RequireFromString("12.3456789"))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(12_345_678), amount.Raw())
}

func TestPriceFromAmounts(t *testing.T) {
	in := asset.NewAmount(asset.WETH, big.NewInt(1e18))
	out := asset.NewAmount(asset.USDC, big.NewInt(2_000_500_000))

	p, err := asset.PriceFromAmounts(in, out)
	require.NoError(t, err)
	assert.True(t, p.Rate().Equal(decimal.RequireFromString("2000.5")), p.String())
	assert.Equal(t, "WETH/USDC", p.Pair())

	_, err = asset.PriceFromAmounts(asset.Zero(asset.WETH), out)
	assert.Error(t, err)
}

func TestRegistryFromConfig(t *testing.T) {
	custom := common.HexToAddress("0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984")
	r := asset.RegistryFromConfig(asset.ChainIDEthereum, []config.TokenConfig{
		{Symbol: "uni", Address: custom.Hex(), Decimals: 18, Class: "volatile"},
		{Symbol: "DAI", Address: asset.AddrDAIEthereum.Hex(), Decimals: 18, Class: "stable"},
	})

	uni, ok := r.GetBySymbolAndChain("UNI", asset.ChainIDEthereum)
	require.True(t, ok)
	assert.Equal(t, asset.ClassVolatile, uni.Class())
	assert.Equal(t, custom, uni.Address())

	dai, ok := r.GetToken(asset.ChainIDEthereum, asset.AddrDAIEthereum)
	require.True(t, ok)
	assert.Equal(t, "DAI", dai.Symbol())
	assert.Equal(t, 7, r.Count())

	_, ok = r.GetBySymbolAndChain("DAI", 10)
	assert.False(t, ok)
}

func TestParseClass(t *testing.T) {
	assert.Equal(t, asset.ClassStable, asset.ParseClass("STABLE"))
	assert.Equal(t, asset.ClassVolatile, asset.ParseClass("volatile"))
	assert.Equal(t, asset.ClassDefault, asset.ParseClass("exotic"))
}
