package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ARB_ETH_WS_URL", "ws://localhost:8546")
	t.Setenv("ARB_ETH_HTTP_URL", "http://localhost:8545")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "flashloan-arb", cfg.App.Name)
	assert.Len(t, cfg.DEXes, 3)
	assert.Equal(t, "uniswap", cfg.DEXes[0].Name)
	assert.Len(t, cfg.Tokens, 5)
	assert.Equal(t, 7*time.Minute, cfg.Flashloan.DiscoveryInterval)
	assert.Equal(t, float64(5), cfg.Flashloan.ClassCaps["volatile"])
	assert.Equal(t, "memory", cfg.Arbitrage.KeyStore)
	assert.True(t, cfg.Execution.DryRun)
	assert.Equal(t, "0.5", cfg.Detector.MinSpreadPercentDecimal().String())
	assert.Equal(t, uint64(2), cfg.Execution.MaxBlockLag)
}

func TestLoad_FileAndEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ARB_MIN_SPREAD_PERCENT", "1.25")
	t.Setenv("ARB_PAIRS", "WETH/USDC,WBTC/WETH")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dexes:
  - name: uniswap
    router: "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"
  - name: sushiswap
    router: "0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F"
detector:
  min_net_profit_usd: 25
  max_notional: 3
arbitrage:
  key_store: sqlite
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Len(t, cfg.DEXes, 2)
	assert.Equal(t, 1.25, cfg.Detector.MinSpreadPercent)
	assert.Equal(t, float64(25), cfg.Detector.MinNetProfitUSD)
	assert.Equal(t, float64(3), cfg.Detector.MaxNotional)
	assert.Equal(t, []string{"WETH/USDC", "WBTC/WETH"}, cfg.Pairs)
	assert.Equal(t, "sqlite", cfg.Arbitrage.KeyStore)
}

func TestLoad_MissingURL(t *testing.T) {
	t.Setenv("ARB_ETH_WS_URL", "")
	t.Setenv("ARB_ETH_HTTP_URL", "")
	t.Setenv("ETH_WS_URL", "")
	t.Setenv("ETH_HTTP_URL", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "websocket_url")
}

func validConfig() Config {
	return Config{
		Ethereum: EthereumConfig{WebSocketURL: "ws://x", HTTPURL: "http://x"},
		DEXes: []DEXConfig{
			{Name: "a", Router: "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"},
			{Name: "b", Router: "0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F"},
		},
		Tokens: []TokenConfig{
			{Symbol: "WETH", Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18},
			{Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
		},
		Pairs:     []string{"WETH/USDC"},
		Detector:  DetectorConfig{MinTradeAmount: 0.1, MaxTradeAmount: 10, QuoteAmount: 1},
		Execution: ExecutionConfig{DryRun: true},
		Flashloan: FlashloanConfig{VaultAddress: "0xBA12222222228d8Ba445958a75a0704d566BF2C8", DiscoveryInterval: time.Minute},
		Pricing:   PricingConfig{ReferenceDEX: "a", ReferenceStable: "USDC", NativeSymbol: "WETH"},
		Arbitrage: ArbitrageConfig{KeyStore: "memory"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "single dex", mutate: func(c *Config) { c.DEXes = c.DEXes[:1] }, wantErr: "two dexes"},
		{name: "duplicate dex", mutate: func(c *Config) { c.DEXes[1].Name = "a" }, wantErr: "duplicate"},
		{name: "bad router", mutate: func(c *Config) { c.DEXes[0].Router = "nope" }, wantErr: "invalid router"},
		{name: "unknown pair token", mutate: func(c *Config) { c.Pairs = []string{"WETH/DAI"} }, wantErr: "missing from tokens"},
		{name: "malformed pair", mutate: func(c *Config) { c.Pairs = []string{"WETHUSDC"} }, wantErr: "BASE/QUOTE"},
		{name: "trade bounds", mutate: func(c *Config) { c.Detector.MaxTradeAmount = 0.01 }, wantErr: "trade amount"},
		{name: "live without contract", mutate: func(c *Config) { c.Execution.DryRun = false }, wantErr: "contract_address"},
		{name: "live without key", mutate: func(c *Config) {
			c.Execution.DryRun = false
			c.Execution.ContractAddress = "0x0000000000000000000000000000000000000001"
		}, wantErr: "private_key"},
		{name: "bad key store", mutate: func(c *Config) { c.Arbitrage.KeyStore = "etcd" }, wantErr: "key_store"},
		{name: "negative max notional", mutate: func(c *Config) { c.Detector.MaxNotional = -1 }, wantErr: "max_notional"},
		{name: "unknown reference dex", mutate: func(c *Config) { c.Pricing.ReferenceDEX = "z" }, wantErr: "reference_dex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDetectorConfig_MaxNotionalDecimal(t *testing.T) {
	c := DetectorConfig{}
	assert.Nil(t, c.MaxNotionalDecimal())

	c.MaxNotional = 2.5
	got := c.MaxNotionalDecimal()
	require.NotNil(t, got)
	assert.Equal(t, "2.5", got.String())
}

func TestSplitPair(t *testing.T) {
	base, quote, err := SplitPair("weth/usdc")
	require.NoError(t, err)
	assert.Equal(t, "WETH", base)
	assert.Equal(t, "USDC", quote)

	_, _, err = SplitPair("WETH/WETH")
	assert.Error(t, err)
}
