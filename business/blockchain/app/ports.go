// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
)

// BlockSubscriber delivers new block headers. Implementations may reconnect
// and replay heads; the service de-duplicates.
type BlockSubscriber interface {
	Subscribe(ctx context.Context) (<-chan *domain.Block, error)
	State() domain.ConnectionState
	Close() error
}

// FeeOracle reports current network fees.
type FeeOracle interface {
	FeeData(ctx context.Context) (*domain.FeeData, error)
}

// ChainReader performs read-only JSON-RPC queries.
type ChainReader interface {
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	CallContract(ctx context.Context, to common.Address, data []byte, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// TxSender signs, broadcasts and tracks transactions for one account.
type TxSender interface {
	Address() common.Address
	Send(ctx context.Context, req domain.TxRequest) (common.Hash, error)
	WaitReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error)
}
