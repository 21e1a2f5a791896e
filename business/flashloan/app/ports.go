// Package app contains the flashloan capacity registry and its ports.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/flashloan/domain"
)

// PoolReader reads pool balances from the lending vault.
type PoolReader interface {
	GetPoolTokens(ctx context.Context, poolID common.Hash) (domain.PoolTokens, error)
}

// TokenResolver resolves ERC-20 metadata.
type TokenResolver interface {
	Resolve(ctx context.Context, token common.Address) (domain.TokenMeta, error)
}
