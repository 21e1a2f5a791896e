// Package router implements the DEXProvider interface for Uniswap V2 style routers.
package router

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	chaindomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/business/pricing/app"
	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/circuitbreaker"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const (
	tracerName = "github.com/fd1az/flashloan-arb/business/pricing/infra/router"
	meterName  = "github.com/fd1az/flashloan-arb/business/pricing/infra/router"
)

// Ensure Provider implements DEXProvider.
var _ app.DEXProvider = (*Provider)(nil)

// Caller runs read-only contract calls.
type Caller interface {
	Call(ctx context.Context, req chaindomain.CallRequest) ([]any, error)
}

// providerMetrics holds OTEL metric instruments.
type providerMetrics struct {
	callsTotal  metric.Int64Counter
	callLatency metric.Float64Histogram
	callErrors  metric.Int64Counter
}

// Provider quotes getAmountsOut on any V2 router, one circuit breaker per router.
type Provider struct {
	caller    Caller
	routerABI abi.ABI
	logger    logger.LoggerInterface

	mu       sync.Mutex
	breakers map[common.Address]*circuitbreaker.CircuitBreaker[[]any]

	tracer  trace.Tracer
	metrics *providerMetrics
}

// NewProvider creates a new router provider.
func NewProvider(caller Caller, log logger.LoggerInterface) (*Provider, error) {
	parsedABI, err := abi.JSON(strings.NewReader(RouterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse router ABI: %w", err)
	}

	p := &Provider{
		caller:    caller,
		routerABI: parsedABI,
		logger:    log,
		breakers:  make(map[common.Address]*circuitbreaker.CircuitBreaker[[]any]),
		tracer:    otel.Tracer(tracerName),
	}

	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return p, nil
}

func (p *Provider) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	p.metrics = &providerMetrics{}

	p.metrics.callsTotal, err = meter.Int64Counter(
		"router_calls_total",
		metric.WithDescription("Total getAmountsOut calls"),
	)
	if err != nil {
		return err
	}

	p.metrics.callLatency, err = meter.Float64Histogram(
		"router_call_latency_ms",
		metric.WithDescription("getAmountsOut latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	p.metrics.callErrors, err = meter.Int64Counter(
		"router_call_errors_total",
		metric.WithDescription("Total getAmountsOut errors"),
	)
	return err
}

func (p *Provider) breaker(dex domain.DEX) *circuitbreaker.CircuitBreaker[[]any] {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cb, ok := p.breakers[dex.Router]; ok {
		return cb
	}

	cfg := circuitbreaker.DefaultConfig("router-" + dex.Name)
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		p.logger.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	// A revert means the pool is missing or too shallow, not that the node is down.
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || isRevert(err)
	}
	cb := circuitbreaker.New[[]any](cfg)
	p.breakers[dex.Router] = cb
	return cb
}

// GetAmountsOut calls router.getAmountsOut(amountIn, path) at blockNumber.
func (p *Provider) GetAmountsOut(ctx context.Context, dex domain.DEX, amountIn *big.Int, path []common.Address, blockNumber uint64) ([]*big.Int, error) {
	ctx, span := p.tracer.Start(ctx, "router.get_amounts_out",
		trace.WithAttributes(
			attribute.String("dex", dex.Name),
			attribute.String("router", dex.Router.Hex()),
			attribute.String("amount_in", amountIn.String()),
			attribute.Int64("block", int64(blockNumber)),
		),
	)
	defer span.End()

	start := time.Now()
	attrs := metric.WithAttributes(attribute.String("dex", dex.Name))
	p.metrics.callsTotal.Add(ctx, 1, attrs)

	req := chaindomain.CallRequest{
		To:     dex.Router,
		ABI:    &p.routerABI,
		Method: methodGetAmountsOut,
		Args:   []any{amountIn, path},
	}
	if blockNumber > 0 {
		req.BlockNumber = &blockNumber
	}

	outputs, err := p.breaker(dex).Execute(func() ([]any, error) {
		return p.caller.Call(ctx, req)
	})
	p.metrics.callLatency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	if err != nil {
		p.metrics.callErrors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(dex.Name+" getAmountsOut"))
	}

	if len(outputs) != 1 {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("unexpected output length: %d", len(outputs))))
	}
	amounts, ok := outputs[0].([]*big.Int)
	if !ok {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("unexpected output type %T", outputs[0])))
	}

	span.SetStatus(codes.Ok, "quoted")
	return amounts, nil
}

// isRevert reports whether err carries EVM revert data.
func isRevert(err error) bool {
	var de interface{ ErrorData() interface{} }
	if errors.As(err, &de) {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}
