package app

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/flashloan-arb/business/flashloan/domain"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const meterName = "github.com/fd1az/flashloan-arb/business/flashloan"

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	PoolIDs  []common.Hash
	Interval time.Duration
	Policy   domain.SizePolicy
}

type registryMetrics struct {
	discoveries metric.Int64Counter
	failures    metric.Int64Counter
	tokens      metric.Int64Gauge
	duration    metric.Float64Histogram
}

// Registry tracks how much of each token can be flash-borrowed.
type Registry struct {
	cfg     RegistryConfig
	pools   PoolReader
	tokens  TokenResolver
	log     logger.LoggerInterface
	tracer  apm.Tracer
	metrics *registryMetrics
	now     func() time.Time

	mu            sync.RWMutex
	caps          map[string]domain.FlashloanCapability // by upper-case symbol
	state         domain.RegistryState
	lastDiscovery time.Time

	discoverMu sync.Mutex // one discovery at a time

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRegistry creates a registry. A zero interval defaults to seven minutes.
func NewRegistry(cfg RegistryConfig, pools PoolReader, tokens TokenResolver, log logger.LoggerInterface) (*Registry, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 7 * time.Minute
	}
	r := &Registry{
		cfg:    cfg,
		pools:  pools,
		tokens: tokens,
		log:    log,
		tracer: apm.NewTracer("flashloan"),
		now:    time.Now,
		caps:   make(map[string]domain.FlashloanCapability),
		state:  domain.StateIdle,
	}
	if err := r.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return r, nil
}

func (r *Registry) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &registryMetrics{}

	r.metrics.discoveries, err = meter.Int64Counter(
		"flashloan_discoveries_total",
		metric.WithDescription("Completed discovery passes"),
	)
	if err != nil {
		return err
	}

	r.metrics.failures, err = meter.Int64Counter(
		"flashloan_discovery_failures_total",
		metric.WithDescription("Pools or tokens skipped during discovery"),
	)
	if err != nil {
		return err
	}

	r.metrics.tokens, err = meter.Int64Gauge(
		"flashloan_tokens",
		metric.WithDescription("Tokens with a known flashloan capacity"),
	)
	if err != nil {
		return err
	}

	r.metrics.duration, err = meter.Float64Histogram(
		"flashloan_discovery_duration_ms",
		metric.WithDescription("Discovery pass duration"),
		metric.WithUnit("ms"),
	)
	return err
}

// Start runs a discovery immediately and then every interval until Stop.
// Calling Start on a running registry is a no-op.
func (r *Registry) Start(ctx context.Context) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if r.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(loopCtx, r.done)
}

func (r *Registry) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := r.Discover(ctx); err != nil {
			r.log.Warn(ctx, "flashloan discovery failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels the timer and waits for an in-progress discovery to return.
func (r *Registry) Stop() {
	r.runMu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Discover reads every configured pool and overwrites the capability of each
// token found. Failing pools and tokens are skipped. It returns an error only
// when pools are configured and none could be read.
func (r *Registry) Discover(ctx context.Context) (domain.DiscoveryReport, error) {
	r.discoverMu.Lock()
	defer r.discoverMu.Unlock()

	ctx, span := r.tracer.Start(ctx, "flashloan.discover", attribute.Int("pools", len(r.cfg.PoolIDs)))
	defer span.End()

	r.setState(domain.StateDiscovering)
	defer r.setState(domain.StateIdle)

	report := domain.DiscoveryReport{StartedAt: r.now()}
	found := make(map[string]domain.FlashloanCapability)

	for _, poolID := range r.cfg.PoolIDs {
		if ctx.Err() != nil {
			break
		}

		pt, err := r.pools.GetPoolTokens(ctx, poolID)
		if err != nil {
			report.Failed++
			r.log.Warn(ctx, "pool read failed", "pool", poolID.Hex(), "error", err)
			continue
		}
		if len(pt.Tokens) != len(pt.Balances) {
			report.Failed++
			r.log.Warn(ctx, "pool tokens and balances differ in length", "pool", poolID.Hex())
			continue
		}
		report.Pools++

		for i, token := range pt.Tokens {
			meta, err := r.tokens.Resolve(ctx, token)
			if err != nil {
				report.Failed++
				r.log.Warn(ctx, "token metadata failed", "token", token.Hex(), "pool", poolID.Hex(), "error", err)
				continue
			}

			c := capability(meta, pt.Balances[i], poolID, report.StartedAt)
			key := strings.ToUpper(meta.Symbol)
			// A token held by several pools keeps its deepest pool.
			if prev, ok := found[key]; ok && prev.MaxAmountRaw.Cmp(c.MaxAmountRaw) >= 0 {
				continue
			}
			found[key] = c
		}
	}

	r.mu.Lock()
	for k, c := range found {
		r.caps[k] = c
	}
	total := len(r.caps)
	if report.Pools > 0 {
		r.lastDiscovery = report.StartedAt
	}
	r.mu.Unlock()

	report.Tokens = len(found)
	report.Duration = r.now().Sub(report.StartedAt)

	r.metrics.discoveries.Add(ctx, 1)
	r.metrics.failures.Add(ctx, int64(report.Failed))
	r.metrics.tokens.Record(ctx, int64(total))
	r.metrics.duration.Record(ctx, float64(report.Duration.Milliseconds()))

	span.SetAttributes(
		attribute.Int("pools_ok", report.Pools),
		attribute.Int("failed", report.Failed),
		attribute.Int("tokens", report.Tokens),
	)

	r.log.Info(ctx, "flashloan discovery complete",
		"pools", report.Pools,
		"failed", report.Failed,
		"tokens", report.Tokens,
		"duration", report.Duration)

	if len(r.cfg.PoolIDs) > 0 && report.Pools == 0 {
		err := apperror.New(apperror.CodeFlashloanDiscoveryFailed,
			apperror.WithContext(fmt.Sprintf("all %d pools failed", len(r.cfg.PoolIDs))))
		span.Fail(err)
		return report, err
	}
	return report, nil
}

func capability(meta domain.TokenMeta, balance *big.Int, poolID common.Hash, at time.Time) domain.FlashloanCapability {
	raw := new(big.Int)
	if balance != nil {
		raw.Set(balance)
	}
	return domain.FlashloanCapability{
		TokenAddress: meta.Address,
		Symbol:       strings.ToUpper(meta.Symbol),
		Decimals:     meta.Decimals,
		Class:        meta.Class,
		MaxAmount:    decimal.NewFromBigInt(raw, -int32(meta.Decimals)),
		MaxAmountRaw: raw,
		SourcePoolID: poolID,
		LastUpdated:  at,
	}
}

// maxAge is the age after which an entry is treated as unknown.
func (r *Registry) maxAge() time.Duration {
	return 2 * r.cfg.Interval
}

// Capability returns the fresh entry for symbol.
func (r *Registry) Capability(symbol string) (domain.FlashloanCapability, bool) {
	r.mu.RLock()
	c, ok := r.caps[strings.ToUpper(symbol)]
	r.mu.RUnlock()

	if !ok || c.IsStale(r.now(), r.maxAge()) {
		return domain.FlashloanCapability{}, false
	}
	return c, true
}

// GetOptimalAmount returns the loan size in whole units for symbol. Unknown
// or stale symbols yield zero; the result never exceeds the capability.
func (r *Registry) GetOptimalAmount(symbol string, requested *decimal.Decimal) decimal.Decimal {
	c, ok := r.Capability(symbol)
	if !ok {
		return decimal.Zero
	}
	return r.cfg.Policy.OptimalAmount(c, requested)
}

// Snapshot returns every entry, stale ones included, sorted by symbol.
func (r *Registry) Snapshot() []domain.FlashloanCapability {
	r.mu.RLock()
	out := make([]domain.FlashloanCapability, 0, len(r.caps))
	for _, c := range r.caps {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// State returns the discovery state.
func (r *Registry) State() domain.RegistryState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// LastDiscovery returns when a pass last read at least one pool.
func (r *Registry) LastDiscovery() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastDiscovery
}

// Fresh reports whether the last successful pass is within the staleness window.
func (r *Registry) Fresh() bool {
	last := r.LastDiscovery()
	return !last.IsZero() && r.now().Sub(last) <= r.maxAge()
}

func (r *Registry) setState(s domain.RegistryState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}
