package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	chainApp "github.com/fd1az/flashloan-arb/business/blockchain/app"
	chainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	eventsDomain "github.com/fd1az/flashloan-arb/business/events/domain"
	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// AutomationConfig configures the scan loop.
type AutomationConfig struct {
	Pairs       []pricingDomain.Pair
	ScanTimeout time.Duration
}

// Stats is a snapshot of the scan counters.
type Stats struct {
	Blocks          uint64
	LastBlock       uint64
	Opportunities   uint64
	Executions      uint64
	Succeeded       uint64
	Failed          uint64
	SkippedExecuted uint64
	SkippedInFlight uint64
}

type automationCounters struct {
	blocks          atomic.Uint64
	lastBlock       atomic.Uint64
	opportunities   atomic.Uint64
	executions      atomic.Uint64
	succeeded       atomic.Uint64
	failed          atomic.Uint64
	skippedExecuted atomic.Uint64
	skippedInFlight atomic.Uint64
}

type automationMetrics struct {
	blocks   metric.Int64Counter
	skipped  metric.Int64Counter
	scanTime metric.Float64Histogram
}

// Automation drives the scan-and-execute pipeline from the block stream.
type Automation struct {
	cfg      AutomationConfig
	state    *State
	chain    BlockSource
	quotes   QuoteSource
	detector OpportunityDetector
	executor Executor
	events   EventPublisher
	log      logger.LoggerInterface
	tracer   apm.Tracer
	metrics  *automationMetrics
	counters automationCounters

	mu     sync.Mutex
	stream *chainApp.BlockStream
	cancel context.CancelFunc
	done   chan struct{}

	execWG sync.WaitGroup
}

// NewAutomation creates the loop. A zero scan timeout defaults to ten seconds.
func NewAutomation(
	cfg AutomationConfig,
	state *State,
	chain BlockSource,
	quotes QuoteSource,
	detector OpportunityDetector,
	executor Executor,
	events EventPublisher,
	log logger.LoggerInterface,
) (*Automation, error) {
	if state == nil {
		return nil, fmt.Errorf("automation: state is required")
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 10 * time.Second
	}

	a := &Automation{
		cfg:      cfg,
		state:    state,
		chain:    chain,
		quotes:   quotes,
		detector: detector,
		executor: executor,
		events:   events,
		log:      log,
		tracer:   apm.NewTracer("arbitrage"),
	}
	if err := a.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return a, nil
}

func (a *Automation) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	a.metrics = &automationMetrics{}

	a.metrics.blocks, err = meter.Int64Counter(
		"arbitrage_blocks_scanned_total",
		metric.WithDescription("Blocks scanned by the automation loop"),
	)
	if err != nil {
		return err
	}

	a.metrics.skipped, err = meter.Int64Counter(
		"arbitrage_executions_skipped_total",
		metric.WithDescription("Top opportunities not executed, by reason"),
	)
	if err != nil {
		return err
	}

	a.metrics.scanTime, err = meter.Float64Histogram(
		"arbitrage_scan_duration_ms",
		metric.WithDescription("Per-block scan duration"),
		metric.WithUnit("ms"),
	)
	return err
}

// Start subscribes to blocks and begins scanning. It is a no-op when already running.
func (a *Automation) Start(ctx context.Context) error {
	if !a.state.setRunning(true) {
		return nil
	}

	if signer := a.chain.SignerAddress(); signer != (common.Address{}) {
		if bal, err := a.chain.Balance(ctx, signer); err != nil {
			a.log.Warn(ctx, "wallet balance unavailable", "address", signer.Hex(), "error", err)
		} else {
			a.log.Info(ctx, "wallet balance", "address", signer.Hex(), "eth", chainDomain.WeiToEther(bal).StringFixed(6))
		}
	}

	stream, err := a.chain.SubscribeBlocks(ctx)
	if err != nil {
		a.state.setRunning(false)
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	a.mu.Lock()
	a.stream, a.cancel, a.done = stream, cancel, done
	a.mu.Unlock()

	go a.run(loopCtx, stream, done)

	a.log.Info(ctx, "automation started", "pairs", len(a.cfg.Pairs))
	return nil
}

// Stop unsubscribes and waits for the scan goroutine. An in-flight execution
// finishes on its own.
func (a *Automation) Stop() {
	a.mu.Lock()
	stream, cancel, done := a.stream, a.cancel, a.done
	a.stream, a.cancel, a.done = nil, nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	stream.Unsubscribe()
	<-done
	a.state.setRunning(false)
}

// Wait blocks until in-flight executions have completed.
func (a *Automation) Wait() {
	a.execWG.Wait()
}

// IsRunning reports whether the loop is running.
func (a *Automation) IsRunning() bool {
	return a.state.IsRunning()
}

// Stats returns the scan counters.
func (a *Automation) Stats() Stats {
	c := &a.counters
	return Stats{
		Blocks:          c.blocks.Load(),
		LastBlock:       c.lastBlock.Load(),
		Opportunities:   c.opportunities.Load(),
		Executions:      c.executions.Load(),
		Succeeded:       c.succeeded.Load(),
		Failed:          c.failed.Load(),
		SkippedExecuted: c.skippedExecuted.Load(),
		SkippedInFlight: c.skippedInFlight.Load(),
	}
}

func (a *Automation) run(ctx context.Context, stream *chainApp.BlockStream, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case block, ok := <-stream.Blocks():
			if !ok {
				return
			}
			if block != nil {
				a.scan(ctx, block.Number)
			}
		}
	}
}

// scan quotes and detects every pair at blockNumber and executes the best opportunity.
func (a *Automation) scan(ctx context.Context, blockNumber uint64) {
	start := time.Now()

	scanCtx, cancel := context.WithTimeout(ctx, a.cfg.ScanTimeout)
	defer cancel()

	scanCtx, span := a.tracer.Start(scanCtx, "arbitrage.scan", attribute.Int64("block", int64(blockNumber)))
	defer span.End()

	a.counters.blocks.Add(1)
	a.counters.lastBlock.Store(blockNumber)
	a.metrics.blocks.Add(ctx, 1)

	var found []*domain.ArbitrageOpportunity
	for _, pair := range a.cfg.Pairs {
		if scanCtx.Err() != nil {
			a.log.Warn(ctx, "scan timed out", "block", blockNumber, "error", scanCtx.Err())
			break
		}
		quotes := a.quotes.QuotePair(scanCtx, pair, blockNumber)
		opp, ok := a.detector.Detect(scanCtx, pair, quotes, blockNumber)
		if !ok {
			continue
		}
		found = append(found, opp)
		a.counters.opportunities.Add(1)
		a.events.Broadcast(ctx, eventsDomain.EventOpportunity, opp)
	}

	a.metrics.scanTime.Record(ctx, float64(time.Since(start).Milliseconds()))
	span.SetAttributes(attribute.Int("opportunities", len(found)))

	if len(found) == 0 {
		return
	}
	a.maybeExecute(ctx, RankOpportunities(found)[0])
}

func (a *Automation) maybeExecute(ctx context.Context, opp *domain.ArbitrageOpportunity) {
	key := opp.Key()

	seen, err := a.state.Executed().Has(ctx, key)
	if err != nil {
		a.log.Warn(ctx, "executed key lookup failed, skipping", "key", key, "error", err)
		return
	}
	if seen {
		a.skip(ctx, "executed", key)
		a.counters.skippedExecuted.Add(1)
		return
	}

	if !a.state.TryBegin(key) {
		a.skip(ctx, "in_flight", key)
		a.counters.skippedInFlight.Add(1)
		return
	}

	added, err := a.state.Executed().Add(ctx, key)
	if err != nil || !added {
		a.state.Finish(key)
		if err != nil {
			a.log.Warn(ctx, "recording executed key failed, skipping", "key", key, "error", err)
		} else {
			a.skip(ctx, "executed", key)
			a.counters.skippedExecuted.Add(1)
		}
		return
	}

	a.counters.executions.Add(1)
	a.execWG.Add(1)
	go func() {
		defer a.execWG.Done()

		execCtx := context.WithoutCancel(ctx)
		result := a.executor.Execute(execCtx, opp)

		if result.Success {
			a.counters.succeeded.Add(1)
		} else {
			a.counters.failed.Add(1)
		}

		a.state.Finish(key)
		a.events.Broadcast(execCtx, eventsDomain.EventExecution, result)
	}()
}

func (a *Automation) skip(ctx context.Context, reason, key string) {
	a.metrics.skipped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	a.log.Debug(ctx, "skipping execution", "reason", reason, "key", key)
}
