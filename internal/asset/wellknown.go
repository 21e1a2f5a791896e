package asset

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/internal/config"
)

// ChainIDEthereum is mainnet.
const ChainIDEthereum = 1

// Well-known token addresses on Ethereum Mainnet
var (
	AddrUSDCEthereum = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrUSDTEthereum = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	AddrDAIEthereum  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	AddrWETHEthereum = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrWBTCEthereum = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
)

// Well-known Assets (pre-created instances)
var (
	ETH  = NewAsset(NewNativeAssetID(ChainIDEthereum), "ETH", 18)
	USDC = NewToken(ChainIDEthereum, AddrUSDCEthereum, "USDC", "USD Coin", 6, ClassStable)
	USDT = NewToken(ChainIDEthereum, AddrUSDTEthereum, "USDT", "Tether USD", 6, ClassStable)
	DAI  = NewToken(ChainIDEthereum, AddrDAIEthereum, "DAI", "Dai Stablecoin", 18, ClassStable)
	WETH = NewToken(ChainIDEthereum, AddrWETHEthereum, "WETH", "Wrapped Ether", 18, ClassVolatile)
	WBTC = NewToken(ChainIDEthereum, AddrWBTCEthereum, "WBTC", "Wrapped Bitcoin", 8, ClassVolatile)
)

// DefaultRegistry returns a registry pre-populated with well-known mainnet assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(ETH)
	r.Register(USDC)
	r.Register(USDT)
	r.Register(DAI)
	r.Register(WETH)
	r.Register(WBTC)

	return r
}

// RegistryFromConfig starts from DefaultRegistry and upserts every configured token
// on chainID, so configuration overrides the built-in table.
func RegistryFromConfig(chainID uint64, tokens []config.TokenConfig) *Registry {
	r := DefaultRegistry()
	for _, t := range tokens {
		r.Upsert(NewToken(chainID, common.HexToAddress(t.Address), t.Symbol, t.Symbol, t.Decimals, ParseClass(t.Class)))
	}
	return r
}
