// Package contract encodes calls to the flashloan arbitrage contract.
package contract

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// ArbitrageABI is the subset of the contract interface the engine calls.
const ArbitrageABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "tokenIn", "type": "address"},
			{"internalType": "address", "name": "tokenOut", "type": "address"},
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "address", "name": "buyRouter", "type": "address"},
			{"internalType": "address", "name": "sellRouter", "type": "address"},
			{"internalType": "uint256", "name": "minProfit", "type": "uint256"}
		],
		"name": "executeArbitrage",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

const methodExecuteArbitrage = "executeArbitrage"

var _ app.TradeEncoder = (*Arbitrage)(nil)

// Arbitrage implements app.TradeEncoder.
type Arbitrage struct {
	abi abi.ABI
}

// NewArbitrage parses the contract ABI.
func NewArbitrage() (*Arbitrage, error) {
	parsed, err := abi.JSON(strings.NewReader(ArbitrageABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse arbitrage ABI: %w", err)
	}
	return &Arbitrage{abi: parsed}, nil
}

// EncodeExecuteArbitrage packs executeArbitrage(tokenIn, tokenOut, amountIn, buyRouter, sellRouter, minProfit).
func (a *Arbitrage) EncodeExecuteArbitrage(p domain.TradeParams) ([]byte, error) {
	if p.AmountIn == nil || p.MinProfit == nil {
		return nil, apperror.New(apperror.CodeABIEncodingFailed,
			apperror.WithContext(methodExecuteArbitrage+": nil amount"))
	}
	data, err := a.abi.Pack(methodExecuteArbitrage,
		p.TokenIn,
		p.TokenOut,
		p.AmountIn,
		p.BuyRouter,
		p.SellRouter,
		p.MinProfit,
	)
	if err != nil {
		return nil, apperror.New(apperror.CodeABIEncodingFailed,
			apperror.WithCause(err),
			apperror.WithContext(methodExecuteArbitrage))
	}
	return data, nil
}

// ABI returns the parsed contract ABI.
func (a *Arbitrage) ABI() *abi.ABI {
	return &a.abi
}
