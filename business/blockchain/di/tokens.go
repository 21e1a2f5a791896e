// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/blockchain/app"
	"github.com/fd1az/flashloan-arb/business/blockchain/infra/ethereum"
	"github.com/fd1az/flashloan-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ChainService = di.NewToken[*app.ChainService]("blockchain.ChainService")
)

// Private dependency tokens - internal to blockchain module
var (
	RPCClient       = di.NewToken[*ethereum.RPCClient]("blockchain:rpcClient")
	BlockSubscriber = di.NewToken[app.BlockSubscriber]("blockchain:blockSubscriber")
	GasOracle       = di.NewToken[*ethereum.GasOracle]("blockchain:gasOracle")
	TxSender        = di.NewToken[app.TxSender]("blockchain:txSender")
)

// Helper functions for type-safe access
func GetChainService(c di.ServiceRegistry) *app.ChainService {
	return di.GetToken(c, ChainService)
}

func GetRPCClient(c di.ServiceRegistry) *ethereum.RPCClient {
	return di.GetToken(c, RPCClient)
}

func GetBlockSubscriber(c di.ServiceRegistry) app.BlockSubscriber {
	return di.GetToken(c, BlockSubscriber)
}

func GetGasOracle(c di.ServiceRegistry) *ethereum.GasOracle {
	return di.GetToken(c, GasOracle)
}

// GetTxSender returns nil when no private key is configured.
func GetTxSender(c di.ServiceRegistry) app.TxSender {
	return di.GetToken(c, TxSender)
}
