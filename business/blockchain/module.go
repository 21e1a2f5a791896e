// Package blockchain implements the blockchain bounded context for Ethereum integration.
package blockchain

import (
	"context"
	"io"

	"github.com/fd1az/flashloan-arb/business/blockchain/app"
	blockchainDI "github.com/fd1az/flashloan-arb/business/blockchain/di"
	"github.com/fd1az/flashloan-arb/business/blockchain/infra/ethereum"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct {
	closers []io.Closer
}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register RPCClient (private - shared by oracle, signer and service)
	di.RegisterToken(c, blockchainDI.RPCClient, func(sr di.ServiceRegistry) *ethereum.RPCClient {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		rpc, client, err := ethereum.Dial(context.Background(), cfg.Ethereum.HTTPURL, log)
		if err != nil {
			panic("failed to dial ethereum rpc: " + err.Error())
		}
		m.closers = append(m.closers, closerFunc(func() error {
			client.Close()
			return nil
		}))
		return rpc
	})

	// Register BlockSubscriber (private - internal dependency)
	di.RegisterToken(c, blockchainDI.BlockSubscriber, func(sr di.ServiceRegistry) app.BlockSubscriber {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		sub, err := ethereum.NewSubscriber(ethereum.SubscriberConfigFrom(cfg.Ethereum), log)
		if err != nil {
			panic("failed to create subscriber: " + err.Error())
		}
		return sub
	})

	// Register GasOracle (private - internal dependency)
	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) *ethereum.GasOracle {
		log := sr.Get("logger").(logger.LoggerInterface)

		oracle, err := ethereum.NewGasOracle(ethereum.DefaultGasOracleConfig(), blockchainDI.GetRPCClient(sr), log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		m.closers = append(m.closers, oracle)
		return oracle
	})

	// Register TxSender (private - nil without a private key)
	di.RegisterToken(c, blockchainDI.TxSender, func(sr di.ServiceRegistry) app.TxSender {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Signer.PrivateKey == "" {
			return nil
		}
		signer, err := ethereum.NewSigner(cfg.Signer.PrivateKey, blockchainDI.GetRPCClient(sr), blockchainDI.GetGasOracle(sr), log)
		if err != nil {
			panic("failed to create signer: " + err.Error())
		}
		return signer
	})

	// Register ChainService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.ChainService, func(sr di.ServiceRegistry) *app.ChainService {
		log := sr.Get("logger").(logger.LoggerInterface)
		svc := app.NewChainService(
			blockchainDI.GetBlockSubscriber(sr),
			blockchainDI.GetGasOracle(sr),
			blockchainDI.GetRPCClient(sr),
			blockchainDI.GetTxSender(sr),
			log,
		)
		m.closers = append(m.closers, svc)
		return svc
	})

	return nil
}

// Startup verifies the node serves the configured chain and hands resources to the monolith.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	svc := blockchainDI.GetChainService(mono.Services())

	chainID, err := svc.ChainID(ctx)
	if err != nil {
		log.Error(ctx, "failed to read chain id", "error", err)
	} else if chainID.Uint64() != cfg.Ethereum.ChainID {
		log.Warn(ctx, "node chain id differs from configuration",
			"node", chainID.String(), "configured", cfg.Ethereum.ChainID)
	}

	for _, c := range m.closers {
		mono.OnClose(c)
	}

	log.Info(ctx, "blockchain module started",
		"chain_id", cfg.Ethereum.ChainID,
		"signer", svc.SignerAddress().Hex(),
		"read_only", blockchainDI.GetTxSender(mono.Services()) == nil)
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
