package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/cache"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const feeCacheKey = "current"

// FeeSource is the RPC surface the gas oracle needs.
type FeeSource interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	LatestHeader(ctx context.Context) (*types.Header, error)
}

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	CacheTTL time.Duration // How long to cache fee data
}

// DefaultGasOracleConfig returns sensible defaults.
func DefaultGasOracleConfig() GasOracleConfig {
	return GasOracleConfig{
		CacheTTL: 12 * time.Second, // ~1 block
	}
}

// gasOracleMetrics holds OTEL metric instruments.
type gasOracleMetrics struct {
	feeFetches  metric.Int64Counter
	gasPrice    metric.Float64Gauge
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
}

// GasOracle implements app.FeeOracle.
type GasOracle struct {
	config GasOracleConfig
	logger logger.LoggerInterface
	source FeeSource

	feeCache *cache.Cache[string, *domain.FeeData]
	now      func() time.Time

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a new gas oracle instance.
func NewGasOracle(cfg GasOracleConfig, source FeeSource, log logger.LoggerInterface) (*GasOracle, error) {
	g := &GasOracle{
		config:   cfg,
		logger:   log,
		source:   source,
		feeCache: cache.New[string, *domain.FeeData](time.Minute),
		now:      time.Now,
		tracer:   otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.feeFetches, err = meter.Int64Counter(
		"gas_fee_fetches_total",
		metric.WithDescription("Total fee data fetches"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gasPrice, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Fee data cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheMisses, err = meter.Int64Counter(
		"gas_cache_misses_total",
		metric.WithDescription("Fee data cache misses"),
		metric.WithUnit("{miss}"),
	)
	return err
}

// FeeData returns gas price plus EIP-1559 fields, cached for one block.
// A failing tip or header lookup degrades to legacy fee data.
func (g *GasOracle) FeeData(ctx context.Context) (*domain.FeeData, error) {
	ctx, span := g.tracer.Start(ctx, "gas.fee_data")
	defer span.End()

	if fd, found := g.feeCache.Get(ctx, feeCacheKey); found {
		g.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return fd, nil
	}

	g.metrics.cacheMisses.Add(ctx, 1)
	g.metrics.feeFetches.Add(ctx, 1)

	gasPrice, err := g.source.SuggestGasPrice(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gas price failed")
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get gas price"))
	}

	var baseFee, tip *big.Int
	if header, err := g.source.LatestHeader(ctx); err != nil {
		g.logger.Debug(ctx, "latest header unavailable, legacy fee data", "error", err)
	} else {
		baseFee = header.BaseFee
	}

	if baseFee != nil {
		if tip, err = g.source.SuggestGasTipCap(ctx); err != nil {
			g.logger.Debug(ctx, "tip cap unavailable, legacy fee data", "error", err)
			tip = nil
		}
	}

	fd := domain.NewFeeData(gasPrice, baseFee, tip, g.now())
	g.feeCache.Set(ctx, feeCacheKey, fd, g.config.CacheTTL)

	gwei, _ := fd.GasPriceGwei().Float64()
	g.metrics.gasPrice.Record(ctx, gwei)

	span.SetAttributes(
		attribute.Float64("gas_price_gwei", gwei),
		attribute.Bool("eip1559", fd.IsEIP1559()),
	)
	span.SetStatus(codes.Ok, "fetched")

	return fd, nil
}

// Close releases the cache janitor.
func (g *GasOracle) Close() error {
	g.feeCache.Close()
	return nil
}
