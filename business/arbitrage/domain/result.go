package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// ErrorKind classifies a failed execution.
type ErrorKind string

const (
	ErrorKindNone                ErrorKind = ""
	ErrorKindGasTooHigh          ErrorKind = "GasTooHigh"
	ErrorKindInsufficientBalance ErrorKind = "InsufficientBalance"
	ErrorKindStaleOpportunity    ErrorKind = "StaleOpportunity"
	ErrorKindReverted            ErrorKind = "Reverted"
	ErrorKindSubmissionFailed    ErrorKind = "SubmissionFailed"
)

// Code maps the kind to its application error code.
func (k ErrorKind) Code() apperror.Code {
	switch k {
	case ErrorKindGasTooHigh:
		return apperror.CodeGasTooHigh
	case ErrorKindInsufficientBalance:
		return apperror.CodeInsufficientBalance
	case ErrorKindStaleOpportunity:
		return apperror.CodeStaleOpportunity
	case ErrorKindReverted:
		return apperror.CodeTransactionReverted
	case ErrorKindSubmissionFailed:
		return apperror.CodeSubmissionFailed
	default:
		return ""
	}
}

// ExecutionResult is the outcome of one execution attempt. It is not mutated after creation.
type ExecutionResult struct {
	OpportunityID  string           `json:"opportunityId"`
	OpportunityKey string           `json:"opportunityKey"`
	Success        bool             `json:"success"`
	DryRun         bool             `json:"dryRun,omitempty"`
	TxHash         *common.Hash     `json:"txHash,omitempty"`
	BlockNumber    *uint64          `json:"blockNumber,omitempty"`
	GasUsed        *uint64          `json:"gasUsed,omitempty"`
	ProfitRealized *decimal.Decimal `json:"profitRealized,omitempty"`
	ErrorKind      ErrorKind        `json:"errorKind,omitempty"`
	Detail         string           `json:"detail,omitempty"`
	CompletedAt    time.Time        `json:"completedAt"`
}

// Failed builds a failed result for opp.
func Failed(opp *ArbitrageOpportunity, kind ErrorKind, detail string, at time.Time) ExecutionResult {
	return ExecutionResult{
		OpportunityID:  opp.ID,
		OpportunityKey: opp.Key(),
		ErrorKind:      kind,
		Detail:         detail,
		CompletedAt:    at,
	}
}

// Succeeded builds a successful result for opp from a mined receipt.
func Succeeded(opp *ArbitrageOpportunity, hash common.Hash, block, gasUsed uint64, at time.Time) ExecutionResult {
	profit := opp.NetProfit
	return ExecutionResult{
		OpportunityID:  opp.ID,
		OpportunityKey: opp.Key(),
		Success:        true,
		TxHash:         &hash,
		BlockNumber:    &block,
		GasUsed:        &gasUsed,
		ProfitRealized: &profit,
		CompletedAt:    at,
	}
}
