package pricing

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
)

func TestResolvePairs(t *testing.T) {
	reg := asset.DefaultRegistry()

	pairs, err := ResolvePairs([]string{"weth/usdc", "WBTC/WETH", "WETH/USDC"}, reg, asset.ChainIDEthereum)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "WETH/USDC", pairs[0].String())
	assert.Equal(t, asset.WBTC.Address(), pairs[1].Path()[0])

	_, err = ResolvePairs([]string{"WETH/PEPE"}, reg, asset.ChainIDEthereum)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnknownAsset))

	_, err = ResolvePairs([]string{"WETH"}, reg, asset.ChainIDEthereum)
	assert.True(t, apperror.HasCode(err, apperror.CodeConfigurationError))

	_, err = ResolvePairs([]string{"WETH/USDC"}, reg, 10)
	assert.True(t, apperror.HasCode(err, apperror.CodeUnknownAsset))
}

func TestResolveDEXes(t *testing.T) {
	dexes := ResolveDEXes([]config.DEXConfig{
		{Name: "uniswap", Router: "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"},
		{Name: "sushiswap", Router: "0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F"},
	})
	require.Len(t, dexes, 2)
	assert.Equal(t, "uniswap", dexes[0].Name)
	assert.Equal(t, common.HexToAddress("0xd9e1ce17f2641f24ae83637ab66a2cca9c378b9f"), dexes[1].Router)
}
