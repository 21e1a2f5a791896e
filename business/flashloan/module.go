// Package flashloan implements the flashloan capacity registry bounded context.
package flashloan

import (
	"context"

	blockchainDI "github.com/fd1az/flashloan-arb/business/blockchain/di"
	"github.com/fd1az/flashloan-arb/business/flashloan/app"
	flashloanDI "github.com/fd1az/flashloan-arb/business/flashloan/di"
	"github.com/fd1az/flashloan-arb/business/flashloan/infra/balancer"
	"github.com/fd1az/flashloan-arb/business/flashloan/infra/erc20"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
)

// Module implements the flashloan bounded context.
type Module struct {
	// Manual skips the discovery timer; callers run Discover themselves.
	Manual bool
}

// RegisterServices registers all flashloan services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register PoolReader (private - Balancer vault over the chain client)
	di.RegisterToken(c, flashloanDI.PoolReader, func(sr di.ServiceRegistry) app.PoolReader {
		cfg := sr.Get("config").(*config.Config)

		vault, err := balancer.NewVault(blockchainDI.GetChainService(sr), cfg.Flashloan.VaultAddressHex())
		if err != nil {
			panic("failed to create vault reader: " + err.Error())
		}
		return vault
	})

	// Register TokenResolver (private - static table, then ERC-20 calls)
	di.RegisterToken(c, flashloanDI.TokenResolver, func(sr di.ServiceRegistry) app.TokenResolver {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)

		resolver, err := erc20.NewResolver(blockchainDI.GetChainService(sr), registry, cfg.Ethereum.ChainID, erc20.DefaultCacheSize, log)
		if err != nil {
			panic("failed to create token resolver: " + err.Error())
		}
		return resolver
	})

	// Register Registry (public - exposed to other modules)
	di.RegisterToken(c, flashloanDI.Registry, func(sr di.ServiceRegistry) *app.Registry {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		poolIDs, err := PoolIDsFromConfig(cfg.Flashloan)
		if err != nil {
			panic("invalid flashloan pool ids: " + err.Error())
		}

		reg, err := app.NewRegistry(app.RegistryConfig{
			PoolIDs:  poolIDs,
			Interval: cfg.Flashloan.DiscoveryInterval,
			Policy:   SizePolicyFromConfig(cfg.Flashloan),
		}, flashloanDI.GetPoolReader(sr), flashloanDI.GetTokenResolver(sr), log)
		if err != nil {
			panic("failed to create flashloan registry: " + err.Error())
		}
		return reg
	})

	return nil
}

// Startup starts the discovery timer; its first pass runs immediately.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	if _, err := PoolIDsFromConfig(cfg.Flashloan); err != nil {
		return err
	}

	reg := flashloanDI.GetRegistry(mono.Services())
	if !m.Manual {
		reg.Start(ctx)
		mono.OnClose(closerFunc(func() error {
			reg.Stop()
			return nil
		}))
	}

	log.Info(ctx, "flashloan module started",
		"vault", cfg.Flashloan.VaultAddress,
		"pools", len(cfg.Flashloan.PoolIDs),
		"interval", cfg.Flashloan.DiscoveryInterval)
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
