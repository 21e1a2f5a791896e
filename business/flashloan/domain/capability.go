// Package domain contains the core domain types for the flashloan context.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/internal/asset"
)

// FlashloanCapability is how much of a token the vault can lend right now.
type FlashloanCapability struct {
	TokenAddress common.Address
	Symbol       string
	Decimals     uint8
	Class        asset.Class
	MaxAmount    decimal.Decimal // whole units
	MaxAmountRaw *big.Int
	SourcePoolID common.Hash
	LastUpdated  time.Time
}

// IsStale reports whether the entry is older than maxAge at now.
func (c FlashloanCapability) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(c.LastUpdated) > maxAge
}

// PoolTokens is the vault's answer for one pool.
type PoolTokens struct {
	PoolID          common.Hash
	Tokens          []common.Address
	Balances        []*big.Int
	LastChangeBlock uint64
}

// TokenMeta is resolved ERC-20 metadata.
type TokenMeta struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
	Class    asset.Class
}

// RegistryState is the discovery state machine.
type RegistryState string

const (
	StateIdle        RegistryState = "idle"
	StateDiscovering RegistryState = "discovering"
)

// DiscoveryReport summarises one discovery pass.
type DiscoveryReport struct {
	Pools     int // pools read successfully
	Failed    int // pools or tokens skipped
	Tokens    int // capability entries written
	StartedAt time.Time
	Duration  time.Duration
}
