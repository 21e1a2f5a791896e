package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const meterName = "github.com/fd1az/flashloan-arb/business/arbitrage"

// Rejection reasons recorded on the rejections counter.
const (
	rejectTooFewQuotes = "too_few_quotes"
	rejectSpread       = "spread"
	rejectSize         = "size"
	rejectFees         = "fee_data"
	rejectUSDPrice     = "usd_price"
	rejectProfit       = "profit"
)

// DetectorConfig holds detection thresholds. Amounts are whole base units.
type DetectorConfig struct {
	MinSpreadPercent decimal.Decimal
	MinNetProfitUSD  decimal.Decimal
	MinTradeAmount   decimal.Decimal
	MaxTradeAmount   decimal.Decimal
	MaxNotional      *decimal.Decimal // requested loan size, nil for the size policy default
	Native           *asset.Asset     // gas token, priced for the gas estimate
}

// Detector turns a pair's quotes into a sized, costed opportunity.
type Detector struct {
	cfg    DetectorConfig
	calc   *ProfitCalculator
	sizer  LoanSizer
	prices PriceOracle
	fees   FeeSource
	dexes  map[string]pricingDomain.DEX
	log    logger.LoggerInterface
	tracer apm.Tracer
	now    func() time.Time

	detected   metric.Int64Counter
	rejections metric.Int64Counter
}

// NewDetector creates a Detector. dexes maps quote DEX names to routers.
func NewDetector(
	cfg DetectorConfig,
	calc *ProfitCalculator,
	sizer LoanSizer,
	prices PriceOracle,
	fees FeeSource,
	dexes []pricingDomain.DEX,
	log logger.LoggerInterface,
) (*Detector, error) {
	if cfg.Native == nil {
		return nil, fmt.Errorf("detector: native asset is required")
	}

	byName := make(map[string]pricingDomain.DEX, len(dexes))
	for _, d := range dexes {
		byName[d.Name] = d
	}

	meter := otel.Meter(meterName)
	detected, err := meter.Int64Counter(
		"arbitrage_opportunities_detected_total",
		metric.WithDescription("Opportunities accepted by the detector"),
	)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	rejections, err := meter.Int64Counter(
		"arbitrage_detector_rejections_total",
		metric.WithDescription("Candidates rejected by the detector, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return &Detector{
		cfg:        cfg,
		calc:       calc,
		sizer:      sizer,
		prices:     prices,
		fees:       fees,
		dexes:      byName,
		log:        log,
		tracer:     apm.NewTracer("arbitrage"),
		now:        time.Now,
		detected:   detected,
		rejections: rejections,
	}, nil
}

// Detect picks the cheapest and dearest quote for pair at blockNumber and
// returns an opportunity when spread, size and net profit clear the thresholds.
func (d *Detector) Detect(ctx context.Context, pair pricingDomain.Pair, quotes []pricingDomain.TokenPriceQuote, blockNumber uint64) (*domain.ArbitrageOpportunity, bool) {
	ctx, span := d.tracer.Start(ctx, "arbitrage.detect",
		attribute.String("pair", pair.String()),
		attribute.Int64("block", int64(blockNumber)),
		attribute.Int("quotes", len(quotes)),
	)
	defer span.End()

	sameBlock := make([]pricingDomain.TokenPriceQuote, 0, len(quotes))
	for _, q := range quotes {
		if q.BlockNumber == blockNumber {
			sameBlock = append(sameBlock, q)
		}
	}

	spread, ok := pricingDomain.BestSpread(sameBlock)
	if !ok {
		return d.reject(ctx, rejectTooFewQuotes)
	}
	if spread.Percent.LessThanOrEqual(d.cfg.MinSpreadPercent) {
		d.log.Debug(ctx, "spread below threshold",
			"pair", pair.String(), "spread", spread.Percent.StringFixed(4), "min", d.cfg.MinSpreadPercent.String())
		return d.reject(ctx, rejectSpread)
	}

	amount := d.sizer.GetOptimalAmount(pair.Base.Symbol(), d.cfg.MaxNotional)
	if d.cfg.MaxTradeAmount.IsPositive() && amount.GreaterThan(d.cfg.MaxTradeAmount) {
		amount = d.cfg.MaxTradeAmount
	}
	if !amount.IsPositive() || amount.LessThan(d.cfg.MinTradeAmount) {
		d.log.Debug(ctx, "flashloan size below minimum", "pair", pair.String(), "amount", amount.String())
		return d.reject(ctx, rejectSize)
	}

	fees, err := d.fees.FeeData(ctx)
	if err != nil {
		d.log.Warn(ctx, "fee data unavailable", "error", err)
		return d.reject(ctx, rejectFees)
	}

	quoteUSD, ok1 := d.prices.PriceUSD(ctx, pair.Quote, blockNumber)
	baseUSD, ok2 := d.prices.PriceUSD(ctx, pair.Base, blockNumber)
	nativeUSD, ok3 := d.prices.PriceUSD(ctx, d.cfg.Native, blockNumber)
	if !ok1 || !ok2 || !ok3 {
		d.log.Debug(ctx, "usd price unavailable", "pair", pair.String(), "block", blockNumber)
		return d.reject(ctx, rejectUSDPrice)
	}

	profit := d.calc.Calculate(ProfitInputs{
		Amount:    amount,
		BuyPrice:  spread.BuyPrice(),
		SellPrice: spread.SellPrice(),
		QuoteUSD:  quoteUSD,
		BaseUSD:   baseUSD,
		NativeUSD: nativeUSD,
		GasPrice:  fees.GasPrice,
	})
	if profit.NetProfit.LessThanOrEqual(d.cfg.MinNetProfitUSD) {
		d.log.Debug(ctx, "net profit below threshold",
			"pair", pair.String(), "net", profit.NetProfit.StringFixed(2), "min", d.cfg.MinNetProfitUSD.String())
		return d.reject(ctx, rejectProfit)
	}

	opp := domain.NewArbitrageOpportunity(
		pair,
		domain.Route{Buy: d.dex(spread.Buy.DEX), Sell: d.dex(spread.Sell.DEX)},
		spread.BuyPrice(),
		spread.SellPrice(),
		spread.Percent,
		amount,
		profit,
		quoteUSD,
		blockNumber,
		d.now(),
	)

	d.detected.Add(ctx, 1, metric.WithAttributes(attribute.String("pair", pair.String())))
	span.SetAttributes(
		attribute.String("opportunity_id", opp.ID),
		attribute.String("net_profit_usd", opp.NetProfit.StringFixed(2)),
	)
	d.log.Info(ctx, "arbitrage opportunity detected",
		"id", opp.ID,
		"pair", pair.String(),
		"route", opp.Route.String(),
		"spread_pct", opp.SpreadPercent.StringFixed(4),
		"amount", opp.FlashloanAmount.String(),
		"net_profit_usd", opp.NetProfit.StringFixed(2),
		"block", blockNumber)

	return opp, true
}

func (d *Detector) reject(ctx context.Context, reason string) (*domain.ArbitrageOpportunity, bool) {
	d.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	return nil, false
}

func (d *Detector) dex(name string) pricingDomain.DEX {
	if dx, ok := d.dexes[name]; ok {
		return dx
	}
	return pricingDomain.DEX{Name: name}
}

// RankOpportunities returns opps sorted by net profit, highest first.
// Equal profits keep their input order.
func RankOpportunities(opps []*domain.ArbitrageOpportunity) []*domain.ArbitrageOpportunity {
	out := make([]*domain.ArbitrageOpportunity, len(opps))
	copy(out, opps)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NetProfit.GreaterThan(out[j].NetProfit)
	})
	return out
}
