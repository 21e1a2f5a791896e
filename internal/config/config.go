// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Signer    SignerConfig    `mapstructure:"signer"`
	DEXes     []DEXConfig     `mapstructure:"dexes"`
	Tokens    []TokenConfig   `mapstructure:"tokens"`
	Pairs     []string        `mapstructure:"pairs"`
	Detector  DetectorConfig  `mapstructure:"detector"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Flashloan FlashloanConfig `mapstructure:"flashloan"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Events    EventsConfig    `mapstructure:"events"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds Ethereum node configuration.
type EthereumConfig struct {
	WebSocketURL   string        `mapstructure:"websocket_url"`
	HTTPURL        string        `mapstructure:"http_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// SignerConfig holds the transaction signer credential.
type SignerConfig struct {
	PrivateKey string `mapstructure:"private_key"`
}

// DEXConfig names a DEX and its V2-style router.
type DEXConfig struct {
	Name   string `mapstructure:"name"`
	Router string `mapstructure:"router"`
}

// RouterAddress returns the router as common.Address.
func (d DEXConfig) RouterAddress() common.Address {
	return common.HexToAddress(d.Router)
}

// TokenConfig is one entry of the symbol to address table.
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Address  string `mapstructure:"address"`
	Decimals uint8  `mapstructure:"decimals"`
	Class    string `mapstructure:"class"` // volatile | stable | default
}

// DetectorConfig holds opportunity detection thresholds.
type DetectorConfig struct {
	MinSpreadPercent float64 `mapstructure:"min_spread_percent"`
	MinNetProfitUSD  float64 `mapstructure:"min_net_profit_usd"`
	GasUnits         uint64  `mapstructure:"gas_units"`
	FlashloanFeeBps  float64 `mapstructure:"flashloan_fee_bps"`
	MinTradeAmount   float64 `mapstructure:"min_trade_amount"`
	MaxTradeAmount   float64 `mapstructure:"max_trade_amount"`
	MaxNotional      float64 `mapstructure:"max_notional"`
	QuoteAmount      float64 `mapstructure:"quote_amount"`
}

// MinSpreadPercentDecimal returns the spread threshold as decimal.
func (c *DetectorConfig) MinSpreadPercentDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinSpreadPercent)
}

// MinNetProfitUSDDecimal returns the profit threshold as decimal.
func (c *DetectorConfig) MinNetProfitUSDDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinNetProfitUSD)
}

// FlashloanFeeBpsDecimal returns the flashloan fee rate in basis points.
func (c *DetectorConfig) FlashloanFeeBpsDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.FlashloanFeeBps)
}

// MinTradeAmountDecimal returns the minimum trade size in whole units.
func (c *DetectorConfig) MinTradeAmountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinTradeAmount)
}

// MaxTradeAmountDecimal returns the maximum trade size in whole units.
func (c *DetectorConfig) MaxTradeAmountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxTradeAmount)
}

// MaxNotionalDecimal returns the requested flashloan size in whole base
// units, or nil when unset so the size policy picks a class default.
func (c *DetectorConfig) MaxNotionalDecimal() *decimal.Decimal {
	if c.MaxNotional <= 0 {
		return nil
	}
	d := decimal.NewFromFloat(c.MaxNotional)
	return &d
}

// QuoteAmountDecimal returns the probe amount used for quotes in whole units.
func (c *DetectorConfig) QuoteAmountDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.QuoteAmount)
}

// ExecutionConfig holds pre-flight guard and submission settings.
type ExecutionConfig struct {
	ContractAddress     string        `mapstructure:"contract_address"`
	GasPriceCeilingGwei float64       `mapstructure:"gas_price_ceiling_gwei"`
	MinSignerBalanceETH float64       `mapstructure:"min_signer_balance_eth"`
	MaxBlockLag         uint64        `mapstructure:"max_block_lag"`
	GasLimit            uint64        `mapstructure:"gas_limit"`
	ConfirmTimeout      time.Duration `mapstructure:"confirm_timeout"`
	MinProfitRatio      float64       `mapstructure:"min_profit_ratio"`
	DryRun              bool          `mapstructure:"dry_run"`
}

// ContractAddressHex returns the arbitrage contract address.
func (c *ExecutionConfig) ContractAddressHex() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// FlashloanConfig holds the capacity registry settings.
type FlashloanConfig struct {
	VaultAddress      string             `mapstructure:"vault_address"`
	PoolIDs           []string           `mapstructure:"pool_ids"`
	DiscoveryInterval time.Duration      `mapstructure:"discovery_interval"`
	ClassCaps         map[string]float64 `mapstructure:"class_caps"`
	SymbolCaps        map[string]float64 `mapstructure:"symbol_caps"`
}

// VaultAddressHex returns the vault address.
func (c *FlashloanConfig) VaultAddressHex() common.Address {
	return common.HexToAddress(c.VaultAddress)
}

// PricingConfig holds quote source and USD pricing settings.
type PricingConfig struct {
	ReferenceDEX        string             `mapstructure:"reference_dex"`
	ReferenceStable     string             `mapstructure:"reference_stable"`
	NativeSymbol        string             `mapstructure:"native_symbol"`
	Stablecoins         []string           `mapstructure:"stablecoins"`
	USDOverrides        map[string]float64 `mapstructure:"usd_overrides"`
	RequestsPerMinute   int                `mapstructure:"requests_per_minute"`
	MaxConcurrentQuotes int                `mapstructure:"max_concurrent_quotes"`
}

// EventsConfig holds event broadcaster transports.
type EventsConfig struct {
	WebSocketAddr    string        `mapstructure:"websocket_addr"`
	SubscriberBuffer int           `mapstructure:"subscriber_buffer"`
	QueueSize        int           `mapstructure:"queue_size"`
	SendTimeout      time.Duration `mapstructure:"send_timeout"`
	Redis            RedisConfig   `mapstructure:"redis"`
	SQLite           SQLiteConfig  `mapstructure:"sqlite"`
	Webhook          WebhookConfig `mapstructure:"webhook"`
}

// RedisConfig holds redis connection settings shared by the event publisher and key store.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// SQLiteConfig holds the local record store settings.
type SQLiteConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// WebhookConfig holds the outbound webhook subscriber settings.
type WebhookConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ArbitrageConfig holds automation loop settings.
type ArbitrageConfig struct {
	KeyStore    string        `mapstructure:"key_store"` // memory | redis | sqlite
	KeyTTL      time.Duration `mapstructure:"key_ttl"`
	ScanTimeout time.Duration `mapstructure:"scan_timeout"`
	TUIMode     bool          `mapstructure:"-"` // Set at runtime, not from config file
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Ethereum
	v.BindEnv("ethereum.websocket_url", "ARB_ETH_WS_URL", "ETH_WS_URL")
	v.BindEnv("ethereum.http_url", "ARB_ETH_HTTP_URL", "ETH_HTTP_URL")
	v.BindEnv("ethereum.chain_id", "ARB_ETH_CHAIN_ID", "ETH_CHAIN_ID")

	// Signer
	v.BindEnv("signer.private_key", "ARB_SIGNER_PRIVATE_KEY", "PRIVATE_KEY")

	// Pairs
	v.BindEnv("pairs", "ARB_PAIRS")

	// Detector
	v.BindEnv("detector.min_spread_percent", "ARB_MIN_SPREAD_PERCENT")
	v.BindEnv("detector.min_net_profit_usd", "ARB_MIN_NET_PROFIT_USD")

	// Execution
	v.BindEnv("execution.contract_address", "ARB_CONTRACT_ADDRESS")
	v.BindEnv("execution.gas_price_ceiling_gwei", "ARB_GAS_PRICE_CEILING_GWEI")
	v.BindEnv("execution.dry_run", "ARB_DRY_RUN")

	// Flashloan
	v.BindEnv("flashloan.vault_address", "ARB_FLASHLOAN_VAULT")
	v.BindEnv("flashloan.discovery_interval", "ARB_FLASHLOAN_INTERVAL")

	// Events
	v.BindEnv("events.websocket_addr", "ARB_EVENTS_WS_ADDR")
	v.BindEnv("events.redis.addr", "ARB_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("events.redis.password", "ARB_REDIS_PASSWORD", "REDIS_PASSWORD")
	v.BindEnv("events.webhook.url", "ARB_WEBHOOK_URL")

	// Arbitrage
	v.BindEnv("arbitrage.key_store", "ARB_KEY_STORE")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "ARB_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "flashloan-arb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Ethereum defaults
	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.poll_interval", "12s")
	v.SetDefault("ethereum.initial_backoff", "1s")
	v.SetDefault("ethereum.max_backoff", "30s")

	// Mainnet V2-style routers
	v.SetDefault("dexes", []map[string]any{
		{"name": "uniswap", "router": "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"},
		{"name": "sushiswap", "router": "0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F"},
		{"name": "shibaswap", "router": "0x03f7724180AA6b939894B5Ca4314783B0b36b329"},
	})

	// Mainnet token table
	v.SetDefault("tokens", []map[string]any{
		{"symbol": "WETH", "address": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "decimals": 18, "class": "volatile"},
		{"symbol": "WBTC", "address": "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599", "decimals": 8, "class": "volatile"},
		{"symbol": "USDC", "address": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "decimals": 6, "class": "stable"},
		{"symbol": "USDT", "address": "0xdAC17F958D2ee523a2206206994597C13D831ec7", "decimals": 6, "class": "stable"},
		{"symbol": "DAI", "address": "0x6B175474E89094C44Da98b954EedeAC495271d0F", "decimals": 18, "class": "stable"},
	})
	v.SetDefault("pairs", []string{"WETH/USDC", "WETH/DAI", "WBTC/WETH"})

	// Detector defaults
	v.SetDefault("detector.min_spread_percent", 0.5)
	v.SetDefault("detector.min_net_profit_usd", 10)
	v.SetDefault("detector.gas_units", 350000)
	v.SetDefault("detector.flashloan_fee_bps", 9)
	v.SetDefault("detector.min_trade_amount", 0.1)
	v.SetDefault("detector.max_trade_amount", 100)
	v.SetDefault("detector.max_notional", 0)
	v.SetDefault("detector.quote_amount", 1)

	// Execution defaults
	v.SetDefault("execution.gas_price_ceiling_gwei", 50)
	v.SetDefault("execution.min_signer_balance_eth", 0.05)
	v.SetDefault("execution.max_block_lag", 2)
	v.SetDefault("execution.gas_limit", 600000)
	v.SetDefault("execution.confirm_timeout", "3m")
	v.SetDefault("execution.min_profit_ratio", 0.5)
	v.SetDefault("execution.dry_run", true)

	// Flashloan defaults (Balancer V2 vault)
	v.SetDefault("flashloan.vault_address", "0xBA12222222228d8Ba445958a75a0704d566BF2C8")
	v.SetDefault("flashloan.pool_ids", []string{
		"0x5c6ee304399dbdb9c8ef030ab642b10820db8f56000200000000000000000014", // 80BAL-20WETH
		"0xa6f548df93de924d73be7d25dc02554c6bd66db500020000000000000000000e", // WBTC-WETH
		"0x06df3b2bbb68adc8b0e302443692037ed9f91b42000000000000000000000063", // DAI-USDC-USDT
	})
	v.SetDefault("flashloan.discovery_interval", "7m")
	v.SetDefault("flashloan.class_caps", map[string]float64{
		"volatile": 5,
		"stable":   50000,
		"default":  1,
	})

	// Pricing defaults
	v.SetDefault("pricing.reference_dex", "uniswap")
	v.SetDefault("pricing.reference_stable", "USDC")
	v.SetDefault("pricing.native_symbol", "WETH")
	v.SetDefault("pricing.stablecoins", []string{"USDC", "USDT", "DAI"})
	v.SetDefault("pricing.requests_per_minute", 1200)
	v.SetDefault("pricing.max_concurrent_quotes", 4)

	// Events defaults
	v.SetDefault("events.websocket_addr", ":8090")
	v.SetDefault("events.subscriber_buffer", 64)
	v.SetDefault("events.queue_size", 256)
	v.SetDefault("events.send_timeout", "10s")
	v.SetDefault("events.redis.enabled", false)
	v.SetDefault("events.redis.addr", "localhost:6379")
	v.SetDefault("events.redis.channel", "arbitrage:events")
	v.SetDefault("events.sqlite.enabled", false)
	v.SetDefault("events.sqlite.path", "arbitrage.db")
	v.SetDefault("events.webhook.timeout", "5s")

	// Arbitrage defaults
	v.SetDefault("arbitrage.key_store", "memory")
	v.SetDefault("arbitrage.key_ttl", "24h")
	v.SetDefault("arbitrage.scan_timeout", "10s")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "flashloan-arb")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)

	// Health defaults
	v.SetDefault("health.port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.WebSocketURL == "" {
		return fmt.Errorf("ethereum.websocket_url is required")
	}
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}

	if len(c.DEXes) < 2 {
		return fmt.Errorf("at least two dexes are required, got %d", len(c.DEXes))
	}
	seen := make(map[string]bool, len(c.DEXes))
	for _, d := range c.DEXes {
		if d.Name == "" {
			return fmt.Errorf("dex name cannot be empty")
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate dex %q", d.Name)
		}
		seen[d.Name] = true
		if !common.IsHexAddress(d.Router) {
			return fmt.Errorf("invalid router for dex %q: %s", d.Name, d.Router)
		}
	}

	symbols := make(map[string]bool, len(c.Tokens))
	for _, t := range c.Tokens {
		if t.Symbol == "" {
			return fmt.Errorf("token symbol cannot be empty")
		}
		if !common.IsHexAddress(t.Address) {
			return fmt.Errorf("invalid address for token %s: %s", t.Symbol, t.Address)
		}
		symbols[strings.ToUpper(t.Symbol)] = true
	}

	if len(c.Pairs) == 0 {
		return fmt.Errorf("pairs cannot be empty")
	}
	for _, p := range c.Pairs {
		base, quote, err := SplitPair(p)
		if err != nil {
			return err
		}
		if !symbols[base] || !symbols[quote] {
			return fmt.Errorf("pair %s references a token missing from tokens", p)
		}
	}

	if !symbols[strings.ToUpper(c.Pricing.NativeSymbol)] {
		return fmt.Errorf("pricing.native_symbol %s missing from tokens", c.Pricing.NativeSymbol)
	}
	if !symbols[strings.ToUpper(c.Pricing.ReferenceStable)] {
		return fmt.Errorf("pricing.reference_stable %s missing from tokens", c.Pricing.ReferenceStable)
	}
	if !seen[c.Pricing.ReferenceDEX] {
		return fmt.Errorf("pricing.reference_dex %s is not a configured dex", c.Pricing.ReferenceDEX)
	}

	if c.Detector.MinTradeAmount <= 0 || c.Detector.MaxTradeAmount < c.Detector.MinTradeAmount {
		return fmt.Errorf("detector trade amount bounds are invalid: min=%v max=%v",
			c.Detector.MinTradeAmount, c.Detector.MaxTradeAmount)
	}
	if c.Detector.MaxNotional < 0 {
		return fmt.Errorf("detector.max_notional must not be negative")
	}
	if c.Detector.QuoteAmount <= 0 {
		return fmt.Errorf("detector.quote_amount must be positive")
	}

	if !common.IsHexAddress(c.Flashloan.VaultAddress) {
		return fmt.Errorf("invalid flashloan.vault_address: %s", c.Flashloan.VaultAddress)
	}
	if c.Flashloan.DiscoveryInterval <= 0 {
		return fmt.Errorf("flashloan.discovery_interval must be positive")
	}

	if !c.Execution.DryRun {
		if !common.IsHexAddress(c.Execution.ContractAddress) {
			return fmt.Errorf("invalid execution.contract_address: %q", c.Execution.ContractAddress)
		}
		if c.Signer.PrivateKey == "" {
			return fmt.Errorf("signer.private_key is required unless execution.dry_run is set")
		}
	}

	switch c.Arbitrage.KeyStore {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("unknown arbitrage.key_store %q", c.Arbitrage.KeyStore)
	}

	return nil
}

// SplitPair parses "BASE/QUOTE" into upper-cased symbols.
func SplitPair(pair string) (string, string, error) {
	parts := strings.Split(pair, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid pair %q, expected BASE/QUOTE", pair)
	}
	base, quote := strings.ToUpper(parts[0]), strings.ToUpper(parts[1])
	if base == quote {
		return "", "", fmt.Errorf("invalid pair %q, base equals quote", pair)
	}
	return base, quote, nil
}
