// Package arbitrage implements the arbitrage bounded context: per-block detection and flashloan execution.
package arbitrage

import (
	"context"
	"io"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	arbDI "github.com/fd1az/flashloan-arb/business/arbitrage/di"
	"github.com/fd1az/flashloan-arb/business/arbitrage/infra"
	"github.com/fd1az/flashloan-arb/business/arbitrage/infra/contract"
	"github.com/fd1az/flashloan-arb/business/arbitrage/infra/keystore"
	blockchainDI "github.com/fd1az/flashloan-arb/business/blockchain/di"
	chainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	eventsDI "github.com/fd1az/flashloan-arb/business/events/di"
	flashloanDI "github.com/fd1az/flashloan-arb/business/flashloan/di"
	"github.com/fd1az/flashloan-arb/business/pricing"
	pricingDI "github.com/fd1az/flashloan-arb/business/pricing/di"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register KeyStore (private - executed opportunity keys)
	di.RegisterToken(c, arbDI.KeyStore, func(sr di.ServiceRegistry) app.KeyStore {
		cfg := sr.Get("config").(*config.Config)

		switch cfg.Arbitrage.KeyStore {
		case "redis":
			return keystore.NewRedis(eventsDI.GetRedisClient(sr), cfg.Arbitrage.KeyTTL)
		case "sqlite":
			store, err := keystore.OpenSQLite(cfg.Events.SQLite.Path)
			if err != nil {
				panic("failed to open key store: " + err.Error())
			}
			return store
		default:
			return app.NewMemoryKeyStore()
		}
	})

	// Register State (private - in-flight slot and running flag)
	di.RegisterToken(c, arbDI.State, func(sr di.ServiceRegistry) *app.State {
		return app.NewState(arbDI.GetKeyStore(sr))
	})

	// Register ProfitCalculator (private)
	di.RegisterToken(c, arbDI.ProfitCalculator, func(sr di.ServiceRegistry) *app.ProfitCalculator {
		cfg := sr.Get("config").(*config.Config)
		return app.NewProfitCalculator(cfg.Detector.GasUnits, cfg.Detector.FlashloanFeeBpsDecimal())
	})

	// Register Encoder (private - arbitrage contract ABI)
	di.RegisterToken(c, arbDI.Encoder, func(sr di.ServiceRegistry) *contract.Arbitrage {
		enc, err := contract.NewArbitrage()
		if err != nil {
			panic("failed to load arbitrage contract abi: " + err.Error())
		}
		return enc
	})

	// Register Detector (public)
	di.RegisterToken(c, arbDI.Detector, func(sr di.ServiceRegistry) *app.Detector {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		native, ok := registry.GetBySymbolAndChain(cfg.Pricing.NativeSymbol, cfg.Ethereum.ChainID)
		if !ok {
			panic("unknown native asset: " + cfg.Pricing.NativeSymbol)
		}

		detector, err := app.NewDetector(app.DetectorConfig{
			MinSpreadPercent: cfg.Detector.MinSpreadPercentDecimal(),
			MinNetProfitUSD:  cfg.Detector.MinNetProfitUSDDecimal(),
			MinTradeAmount:   cfg.Detector.MinTradeAmountDecimal(),
			MaxTradeAmount:   cfg.Detector.MaxTradeAmountDecimal(),
			MaxNotional:      cfg.Detector.MaxNotionalDecimal(),
			Native:           native,
		},
			arbDI.GetProfitCalculator(sr),
			flashloanDI.GetRegistry(sr),
			pricingDI.GetUsdOracle(sr),
			blockchainDI.GetChainService(sr),
			pricing.ResolveDEXes(cfg.DEXes),
			log,
		)
		if err != nil {
			panic("failed to create detector: " + err.Error())
		}
		return detector
	})

	// Register Submitter (public)
	di.RegisterToken(c, arbDI.Submitter, func(sr di.ServiceRegistry) *app.Submitter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		submitter, err := app.NewSubmitter(app.SubmitterConfig{
			Contract:         cfg.Execution.ContractAddressHex(),
			GasPriceCeiling:  gasCeiling(cfg.Execution.GasPriceCeilingGwei),
			MinSignerBalance: chainDomain.EtherToWei(decimal.NewFromFloat(cfg.Execution.MinSignerBalanceETH)),
			MaxBlockLag:      cfg.Execution.MaxBlockLag,
			GasLimit:         cfg.Execution.GasLimit,
			ConfirmTimeout:   cfg.Execution.ConfirmTimeout,
			MinProfitRatio:   decimal.NewFromFloat(cfg.Execution.MinProfitRatio),
			DryRun:           cfg.Execution.DryRun,
		}, blockchainDI.GetChainService(sr), arbDI.GetEncoder(sr), log)
		if err != nil {
			panic("failed to create submitter: " + err.Error())
		}
		return submitter
	})

	// Register Automation (public - the per-block loop)
	di.RegisterToken(c, arbDI.Automation, func(sr di.ServiceRegistry) *app.Automation {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		automation, err := app.NewAutomation(app.AutomationConfig{
			Pairs:       pricingDI.GetPairs(sr),
			ScanTimeout: cfg.Arbitrage.ScanTimeout,
		},
			arbDI.GetState(sr),
			blockchainDI.GetChainService(sr),
			pricingDI.GetQuoteService(sr),
			arbDI.GetDetector(sr),
			arbDI.GetSubmitter(sr),
			eventsDI.GetBroadcaster(sr),
			log,
		)
		if err != nil {
			panic("failed to create automation: " + err.Error())
		}
		return automation
	})

	return nil
}

// Startup attaches the reporter and starts the per-block loop.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()
	sr := mono.Services()

	broadcaster := eventsDI.GetBroadcaster(sr)
	automation := arbDI.GetAutomation(sr)

	watchCtx, stopWatch := context.WithCancel(context.Background())
	if cfg.Arbitrage.TUIMode {
		reporter := infra.NewTUIReporter()
		broadcaster.Register("tui", reporter)
		go reporter.Watch(watchCtx, infra.WatchSources{
			Stats: automation,
			Fees:  blockchainDI.GetChainService(sr),
			Chain: blockchainDI.GetChainService(sr),
		}, time.Second)
	} else {
		broadcaster.Register("console", infra.NewConsoleReporter())
	}

	if err := automation.Start(ctx); err != nil {
		stopWatch()
		return err
	}

	keys := arbDI.GetKeyStore(sr)
	mono.OnClose(closerFunc(func() error {
		stopWatch()
		automation.Stop()
		if c, ok := keys.(io.Closer); ok {
			return c.Close()
		}
		return nil
	}))

	log.Info(ctx, "arbitrage module started",
		"pairs", len(pricingDI.GetPairs(sr)),
		"key_store", cfg.Arbitrage.KeyStore,
		"dry_run", cfg.Execution.DryRun,
		"contract", cfg.Execution.ContractAddress)
	return nil
}

// gasCeiling converts the configured ceiling; zero disables it.
func gasCeiling(gwei float64) *big.Int {
	if gwei <= 0 {
		return nil
	}
	return chainDomain.GweiToWei(decimal.NewFromFloat(gwei))
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
