package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/ratelimit"
)

const meterName = "github.com/fd1az/flashloan-arb/business/pricing"

// QuoteServiceConfig configures a QuoteService.
type QuoteServiceConfig struct {
	DEXes         []domain.DEX
	QuoteAmount   decimal.Decimal // whole units of the pair's base token
	MaxConcurrent int
}

type quoteMetrics struct {
	quotes   metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
}

// QuoteService asks every configured DEX router for a price.
type QuoteService struct {
	cfg      QuoteServiceConfig
	provider DEXProvider
	limiter  *ratelimit.Limiter
	log      logger.LoggerInterface
	tracer   apm.Tracer
	metrics  *quoteMetrics
}

// NewQuoteService creates a QuoteService. A nil limiter disables throttling.
func NewQuoteService(cfg QuoteServiceConfig, provider DEXProvider, limiter *ratelimit.Limiter, log logger.LoggerInterface) (*QuoteService, error) {
	if limiter == nil {
		limiter = ratelimit.New(0)
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = len(cfg.DEXes)
	}

	s := &QuoteService{
		cfg:      cfg,
		provider: provider,
		limiter:  limiter,
		log:      log,
		tracer:   apm.NewTracer("pricing"),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return s, nil
}

func (s *QuoteService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &quoteMetrics{}

	s.metrics.quotes, err = meter.Int64Counter(
		"dex_quotes_total",
		metric.WithDescription("Router quotes returned"),
		metric.WithUnit("{quote}"),
	)
	if err != nil {
		return err
	}

	s.metrics.failures, err = meter.Int64Counter(
		"dex_quote_failures_total",
		metric.WithDescription("Router quotes that yielded no price"),
		metric.WithUnit("{quote}"),
	)
	if err != nil {
		return err
	}

	s.metrics.latency, err = meter.Float64Histogram(
		"dex_quote_latency_ms",
		metric.WithDescription("Router quote latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// DEXes returns the configured DEXes in order.
func (s *QuoteService) DEXes() []domain.DEX {
	return s.cfg.DEXes
}

// DEX looks up a configured DEX by name.
func (s *QuoteService) DEX(name string) (domain.DEX, bool) {
	for _, d := range s.cfg.DEXes {
		if d.Name == name {
			return d, true
		}
	}
	return domain.DEX{}, false
}

// Quote asks dex how much tokenOut amountIn buys at blockNumber. Any failure
// (missing pair, revert, zero output, RPC error) is logged and reported as false.
func (s *QuoteService) Quote(ctx context.Context, dex domain.DEX, amountIn asset.Amount, tokenOut *asset.Asset, blockNumber uint64) (domain.TokenPriceQuote, bool) {
	tokenIn := amountIn.Asset()
	ctx, span := s.tracer.Start(ctx, "pricing.quote",
		attribute.String("dex", dex.Name),
		attribute.String("token_in", tokenIn.Symbol()),
		attribute.String("token_out", tokenOut.Symbol()),
		attribute.Int64("block", int64(blockNumber)),
	)
	defer span.End()

	dexAttr := metric.WithAttributes(attribute.String("dex", dex.Name))
	fail := func(reason string, err error) (domain.TokenPriceQuote, bool) {
		s.metrics.failures.Add(ctx, 1, dexAttr)
		span.AddEvent("no_quote", attribute.String("reason", reason))
		s.log.Debug(ctx, "no quote",
			"dex", dex.Name,
			"pair", tokenIn.Symbol()+"/"+tokenOut.Symbol(),
			"block", blockNumber,
			"reason", reason,
			"error", err)
		return domain.TokenPriceQuote{}, false
	}

	if amountIn.IsZero() {
		return fail("zero input", nil)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fail("rate limit", err)
	}

	start := time.Now()
	path := []common.Address{tokenIn.Address(), tokenOut.Address()}
	amounts, err := s.provider.GetAmountsOut(ctx, dex, amountIn.Raw(), path, blockNumber)
	s.metrics.latency.Record(ctx, float64(time.Since(start).Milliseconds()), dexAttr)
	if err != nil {
		return fail("rpc", err)
	}
	if len(amounts) < len(path) {
		return fail(fmt.Sprintf("short amounts: %d", len(amounts)), nil)
	}

	out := amounts[len(amounts)-1]
	if out == nil || out.Sign() <= 0 {
		return fail("zero output", nil)
	}

	s.metrics.quotes.Add(ctx, 1, dexAttr)
	q := domain.NewTokenPriceQuote(dex.Name, amountIn, asset.NewAmount(tokenOut, out), blockNumber)
	span.SetAttributes(attribute.String("rate", q.Rate().String()))
	return q, true
}

// QuotePair quotes the configured amount of the pair's base on every DEX
// concurrently and returns the successful quotes in configured DEX order.
func (s *QuoteService) QuotePair(ctx context.Context, pair domain.Pair, blockNumber uint64) []domain.TokenPriceQuote {
	amountIn, err := asset.FloorDecimal(pair.Base, s.cfg.QuoteAmount)
	if err != nil {
		s.log.Warn(ctx, "invalid quote amount", "pair", pair.String(), "error", err)
		return nil
	}

	results := make([]*domain.TokenPriceQuote, len(s.cfg.DEXes))

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrent)
	for i, dex := range s.cfg.DEXes {
		g.Go(func() error {
			if q, ok := s.Quote(ctx, dex, amountIn, pair.Quote, blockNumber); ok {
				results[i] = &q
			}
			return nil
		})
	}
	_ = g.Wait()

	quotes := make([]domain.TokenPriceQuote, 0, len(results))
	for _, q := range results {
		if q != nil {
			quotes = append(quotes, *q)
		}
	}
	return quotes
}
