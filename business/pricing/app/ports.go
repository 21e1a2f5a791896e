// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/pricing/domain"
)

// DEXProvider returns router quotes.
type DEXProvider interface {
	// GetAmountsOut returns the router's amounts for swapping amountIn along path at blockNumber.
	GetAmountsOut(ctx context.Context, dex domain.DEX, amountIn *big.Int, path []common.Address, blockNumber uint64) ([]*big.Int, error)
}
