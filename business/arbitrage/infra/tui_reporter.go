// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	chainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	eventsDomain "github.com/fd1az/flashloan-arb/business/events/domain"
	"github.com/fd1az/flashloan-arb/pkg/ui"
)

// StatsSource exposes the automation counters.
type StatsSource interface {
	Stats() app.Stats
}

// ConnectionSource reports the block subscription state.
type ConnectionSource interface {
	ConnectionState() chainDomain.ConnectionState
}

// WatchSources are polled by Watch. Fees and Chain may be nil.
type WatchSources struct {
	Stats StatsSource
	Fees  app.FeeSource
	Chain ConnectionSource
}

// TUIReporter forwards events and periodic stats into the Bubble Tea dashboard.
type TUIReporter struct {
	send func(tea.Msg)
}

// NewTUIReporter creates a reporter sending to the running ui.Program.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{send: ui.Send}
}

// Send converts e into a dashboard message.
func (r *TUIReporter) Send(_ context.Context, e eventsDomain.Event) error {
	switch p := e.Payload.(type) {
	case *domain.ArbitrageOpportunity:
		r.send(ui.OpportunityMsg{Opportunity: p})
	case domain.ExecutionResult:
		r.send(ui.ExecutionMsg{Result: p})
	}
	return nil
}

// Watch pushes stats, gas price and connection state every interval until ctx is done.
func (r *TUIReporter) Watch(ctx context.Context, src WatchSources, every time.Duration) {
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.push(ctx, src)
		}
	}
}

func (r *TUIReporter) push(ctx context.Context, src WatchSources) {
	if src.Chain != nil {
		r.send(ui.ConnectionStatusMsg{
			Name:      "Ethereum",
			Connected: src.Chain.ConnectionState() == chainDomain.StateConnected,
		})
	}

	s := src.Stats.Stats()
	r.send(ui.StatsMsg{
		Blocks:          s.Blocks,
		LastBlock:       s.LastBlock,
		Opportunities:   s.Opportunities,
		Executions:      s.Executions,
		Succeeded:       s.Succeeded,
		Failed:          s.Failed,
		SkippedExecuted: s.SkippedExecuted,
		SkippedInFlight: s.SkippedInFlight,
	})

	if src.Fees == nil {
		return
	}
	fd, err := src.Fees.FeeData(ctx)
	if err != nil {
		return
	}
	r.send(ui.GasPriceMsg{GweiPrice: fd.GasPriceGwei().InexactFloat64()})
}
