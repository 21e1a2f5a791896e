package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// CallRequest is a read-only contract call. A nil BlockNumber means latest.
type CallRequest struct {
	To          common.Address
	ABI         *abi.ABI
	Method      string
	Args        []any
	BlockNumber *uint64
}

// TxRequest is an unsigned transaction to be signed and broadcast.
type TxRequest struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasLimit uint64
}

// Receipt status values.
const (
	ReceiptStatusFailed     uint64 = 0
	ReceiptStatusSuccessful uint64 = 1
)

// Receipt is the outcome of a mined transaction.
type Receipt struct {
	TxHash            common.Hash
	BlockNumber       uint64
	GasUsed           uint64
	EffectiveGasPrice *big.Int
	Status            uint64
}

// Succeeded reports status 1.
func (r *Receipt) Succeeded() bool {
	return r.Status == ReceiptStatusSuccessful
}
