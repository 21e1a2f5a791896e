package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	chainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// SubmitterConfig holds the pre-flight guards and submission settings.
type SubmitterConfig struct {
	Contract         common.Address
	GasPriceCeiling  *big.Int // wei, nil for no ceiling
	MinSignerBalance *big.Int // wei
	MaxBlockLag      uint64
	GasLimit         uint64
	ConfirmTimeout   time.Duration
	MinProfitRatio   decimal.Decimal
	DryRun           bool
}

// Submitter guards and executes opportunities on the arbitrage contract.
type Submitter struct {
	cfg     SubmitterConfig
	chain   ExecutionChain
	encoder TradeEncoder
	log     logger.LoggerInterface
	tracer  apm.Tracer
	now     func() time.Time

	outcomes metric.Int64Counter
	latency  metric.Float64Histogram
}

var _ Executor = (*Submitter)(nil)

// NewSubmitter creates a Submitter. A zero confirm timeout defaults to three minutes.
func NewSubmitter(cfg SubmitterConfig, chain ExecutionChain, encoder TradeEncoder, log logger.LoggerInterface) (*Submitter, error) {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 3 * time.Minute
	}
	if cfg.MinSignerBalance == nil {
		cfg.MinSignerBalance = new(big.Int)
	}

	meter := otel.Meter(meterName)
	outcomes, err := meter.Int64Counter(
		"arbitrage_executions_total",
		metric.WithDescription("Execution attempts by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	latency, err := meter.Float64Histogram(
		"arbitrage_execution_duration_ms",
		metric.WithDescription("Time from guard checks to receipt"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return &Submitter{
		cfg:      cfg,
		chain:    chain,
		encoder:  encoder,
		log:      log,
		tracer:   apm.NewTracer("arbitrage"),
		now:      time.Now,
		outcomes: outcomes,
		latency:  latency,
	}, nil
}

// Execute runs the guards in order, submits executeArbitrage and awaits one
// confirmation. It never retries and never returns an error; every outcome
// is an ExecutionResult.
func (s *Submitter) Execute(ctx context.Context, opp *domain.ArbitrageOpportunity) domain.ExecutionResult {
	ctx, span := s.tracer.Start(ctx, "arbitrage.execute",
		attribute.String("opportunity_id", opp.ID),
		attribute.String("key", opp.Key()),
	)
	defer span.End()

	start := s.now()
	result := s.execute(ctx, opp)

	outcome := "success"
	if !result.Success {
		outcome = string(result.ErrorKind)
		span.SetAttributes(attribute.String("error_kind", outcome), attribute.String("detail", result.Detail))
	}
	if result.TxHash != nil {
		span.SetAttributes(attribute.String("tx_hash", result.TxHash.Hex()))
	}
	s.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	s.latency.Record(ctx, float64(s.now().Sub(start).Milliseconds()))

	if result.Success {
		s.log.Info(ctx, "execution succeeded", "id", opp.ID, "dry_run", result.DryRun, "tx", hashString(result.TxHash))
	} else {
		s.log.Warn(ctx, "execution failed", "id", opp.ID, "kind", result.ErrorKind, "detail", result.Detail)
	}
	return result
}

func (s *Submitter) execute(ctx context.Context, opp *domain.ArbitrageOpportunity) domain.ExecutionResult {
	fail := func(kind domain.ErrorKind, format string, args ...any) domain.ExecutionResult {
		return domain.Failed(opp, kind, fmt.Sprintf(format, args...), s.now())
	}

	fees, err := s.chain.FeeData(ctx)
	if err != nil {
		return fail(domain.ErrorKindSubmissionFailed, "fee data: %v", err)
	}
	if s.cfg.GasPriceCeiling != nil && fees.GasPrice != nil && fees.GasPrice.Cmp(s.cfg.GasPriceCeiling) > 0 {
		return fail(domain.ErrorKindGasTooHigh, "gas price %s gwei above ceiling %s gwei",
			chainDomain.WeiToGwei(fees.GasPrice), chainDomain.WeiToGwei(s.cfg.GasPriceCeiling))
	}

	signer := s.chain.SignerAddress()
	balance, err := s.chain.Balance(ctx, signer)
	if err != nil {
		return fail(domain.ErrorKindSubmissionFailed, "signer balance: %v", err)
	}
	if balance.Cmp(s.cfg.MinSignerBalance) < 0 {
		return fail(domain.ErrorKindInsufficientBalance, "signer balance %s below minimum %s",
			chainDomain.WeiToEther(balance), chainDomain.WeiToEther(s.cfg.MinSignerBalance))
	}

	head, err := s.chain.HeadBlock(ctx)
	if err != nil {
		return fail(domain.ErrorKindSubmissionFailed, "head block: %v", err)
	}
	if head > opp.BlockNumber && head-opp.BlockNumber > s.cfg.MaxBlockLag {
		return fail(domain.ErrorKindStaleOpportunity, "head %d is %d blocks past %d (max %d)",
			head, head-opp.BlockNumber, opp.BlockNumber, s.cfg.MaxBlockLag)
	}

	params, err := domain.NewTradeParams(opp, s.cfg.MinProfitRatio)
	if err != nil {
		return fail(domain.ErrorKindSubmissionFailed, "trade params: %v", err)
	}
	data, err := s.encoder.EncodeExecuteArbitrage(params)
	if err != nil {
		return fail(domain.ErrorKindSubmissionFailed, "encode: %v", err)
	}

	if s.cfg.DryRun {
		s.log.Info(ctx, "dry run, not sending",
			"id", opp.ID, "amount_in", params.AmountIn.String(), "min_profit", params.MinProfit.String())
		return domain.ExecutionResult{
			OpportunityID:  opp.ID,
			OpportunityKey: opp.Key(),
			Success:        true,
			DryRun:         true,
			Detail:         "dry run",
			CompletedAt:    s.now(),
		}
	}

	pending, err := s.chain.SendTransaction(ctx, chainDomain.TxRequest{
		To:       s.cfg.Contract,
		Data:     data,
		GasLimit: s.cfg.GasLimit,
	})
	if err != nil {
		return fail(domain.ErrorKindSubmissionFailed, "send: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
	defer cancel()

	receipt, err := pending.Wait(waitCtx)
	if err != nil {
		r := fail(domain.ErrorKindSubmissionFailed, "wait %s: %v", pending.Hash.Hex(), err)
		r.TxHash = &pending.Hash
		return r
	}

	if !receipt.Succeeded() {
		r := fail(domain.ErrorKindReverted, "transaction reverted in block %d", receipt.BlockNumber)
		r.TxHash = &receipt.TxHash
		r.BlockNumber = &receipt.BlockNumber
		r.GasUsed = &receipt.GasUsed
		return r
	}

	return domain.Succeeded(opp, receipt.TxHash, receipt.BlockNumber, receipt.GasUsed, s.now())
}

func hashString(h *common.Hash) string {
	if h == nil {
		return ""
	}
	return h.Hex()
}
