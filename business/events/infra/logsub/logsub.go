// Package logsub writes one structured log line per event.
package logsub

import (
	"context"

	arbDomain "github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	"github.com/fd1az/flashloan-arb/business/events/domain"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// Subscriber logs events. It never fails.
type Subscriber struct {
	log logger.LoggerInterface
}

// New creates a log subscriber.
func New(log logger.LoggerInterface) *Subscriber {
	return &Subscriber{log: log}
}

// Send logs e.
func (s *Subscriber) Send(ctx context.Context, e domain.Event) error {
	switch p := e.Payload.(type) {
	case *arbDomain.ArbitrageOpportunity:
		s.log.Info(ctx, "opportunity",
			"event_id", e.ID,
			"opportunity_id", p.ID,
			"pair", p.Pair.String(),
			"route", p.Route.String(),
			"block", p.BlockNumber,
			"spread_pct", p.SpreadPercent.StringFixed(4),
			"amount", p.FlashloanAmount.String(),
			"net_profit_usd", p.NetProfit.StringFixed(2))
	case arbDomain.ExecutionResult:
		args := []any{
			"event_id", e.ID,
			"opportunity_id", p.OpportunityID,
			"success", p.Success,
			"dry_run", p.DryRun,
		}
		if p.TxHash != nil {
			args = append(args, "tx", p.TxHash.Hex())
		}
		if p.Success {
			s.log.Info(ctx, "execution", args...)
			return nil
		}
		args = append(args, "error_kind", string(p.ErrorKind), "detail", p.Detail)
		s.log.Warn(ctx, "execution", args...)
	default:
		s.log.Debug(ctx, "event", "event_id", e.ID, "type", e.Type)
	}
	return nil
}
