// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	chainApp "github.com/fd1az/flashloan-arb/business/blockchain/app"
	chainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	eventsDomain "github.com/fd1az/flashloan-arb/business/events/domain"
	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

// LoanSizer returns the flashloan size for a token in whole units; zero when unknown.
type LoanSizer interface {
	GetOptimalAmount(symbol string, requested *decimal.Decimal) decimal.Decimal
}

// PriceOracle prices a token in USD at a block.
type PriceOracle interface {
	PriceUSD(ctx context.Context, token *asset.Asset, blockNumber uint64) (decimal.Decimal, bool)
}

// FeeSource reports current network fees.
type FeeSource interface {
	FeeData(ctx context.Context) (*chainDomain.FeeData, error)
}

// QuoteSource quotes a pair on every configured DEX.
type QuoteSource interface {
	QuotePair(ctx context.Context, pair pricingDomain.Pair, blockNumber uint64) []pricingDomain.TokenPriceQuote
}

// ExecutionChain is what the submitter needs from the chain client.
type ExecutionChain interface {
	FeeSource
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
	HeadBlock(ctx context.Context) (uint64, error)
	SignerAddress() common.Address
	SendTransaction(ctx context.Context, req chainDomain.TxRequest) (*chainApp.PendingTransaction, error)
}

// BlockSource opens block streams and reads the wallet balance.
type BlockSource interface {
	SubscribeBlocks(ctx context.Context) (*chainApp.BlockStream, error)
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
	SignerAddress() common.Address
}

// TradeEncoder builds calldata for the arbitrage contract.
type TradeEncoder interface {
	EncodeExecuteArbitrage(p domain.TradeParams) ([]byte, error)
}

// OpportunityDetector turns a pair's quotes into at most one opportunity.
type OpportunityDetector interface {
	Detect(ctx context.Context, pair pricingDomain.Pair, quotes []pricingDomain.TokenPriceQuote, blockNumber uint64) (*domain.ArbitrageOpportunity, bool)
}

// Executor runs one opportunity to completion.
type Executor interface {
	Execute(ctx context.Context, opp *domain.ArbitrageOpportunity) domain.ExecutionResult
}

// EventPublisher fans events out to observers.
type EventPublisher interface {
	Broadcast(ctx context.Context, eventType eventsDomain.EventType, payload any)
}

// KeyStore remembers which opportunity keys were already submitted.
type KeyStore interface {
	Has(ctx context.Context, key string) (bool, error)
	// Add records key and reports false if it was already present.
	Add(ctx context.Context, key string) (bool, error)
}
