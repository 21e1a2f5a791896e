// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	eventsDomain "github.com/fd1az/flashloan-arb/business/events/domain"
)

// ConsoleReporter prints opportunities and execution results to a writer.
type ConsoleReporter struct {
	out io.Writer
	mu  sync.Mutex
}

// NewConsoleReporter creates a reporter writing to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout)
}

// NewConsoleReporterTo creates a reporter writing to out.
func NewConsoleReporterTo(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// Send prints e. Events of other types are ignored.
func (r *ConsoleReporter) Send(_ context.Context, e eventsDomain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch p := e.Payload.(type) {
	case *domain.ArbitrageOpportunity:
		r.reportOpportunity(p)
	case domain.ExecutionResult:
		r.reportExecution(p)
	}
	return nil
}

func (r *ConsoleReporter) reportOpportunity(opp *domain.ArbitrageOpportunity) {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintln(r.out, "ARBITRAGE OPPORTUNITY DETECTED")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "ID:             %s\n", opp.ID)
	fmt.Fprintf(r.out, "Block:          #%d\n", opp.BlockNumber)
	fmt.Fprintf(r.out, "Timestamp:      %s\n", opp.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Pair:           %s\n", opp.Pair.String())
	fmt.Fprintf(r.out, "Route:          %s\n", opp.Route.String())
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "PRICES")
	fmt.Fprintf(r.out, "  Buy  (%s):%s%s\n", opp.BuyDEX(), pad(opp.BuyDEX()), opp.BuyPrice.StringFixed(6))
	fmt.Fprintf(r.out, "  Sell (%s):%s%s\n", opp.SellDEX(), pad(opp.SellDEX()), opp.SellPrice.StringFixed(6))
	fmt.Fprintf(r.out, "  Spread:         %s%%\n", opp.SpreadPercent.StringFixed(4))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "TRADE DETAILS")
	fmt.Fprintf(r.out, "  Flashloan:      %s %s\n", opp.FlashloanAmount.String(), opp.Pair.Base.Symbol())
	fmt.Fprintf(r.out, "  Gas Cost:       $%s\n", opp.GasCostEstimate.StringFixed(2))
	fmt.Fprintf(r.out, "  Flashloan Fee:  $%s\n", opp.FlashloanFee.StringFixed(2))
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintln(r.out, "PROFIT")
	fmt.Fprintf(r.out, "  Gross:          $%s\n", opp.GrossProfit.StringFixed(2))
	fmt.Fprintf(r.out, "  Net:            $%s\n", opp.NetProfit.StringFixed(2))
	fmt.Fprintln(r.out, "================================================================================")
}

func (r *ConsoleReporter) reportExecution(res domain.ExecutionResult) {
	status := "FAILED"
	switch {
	case res.Success && res.DryRun:
		status = "DRY RUN (not submitted)"
	case res.Success:
		status = "SUCCESS"
	}

	fmt.Fprintln(r.out, "")
	fmt.Fprintf(r.out, "EXECUTION %s: %s\n", res.OpportunityID, status)
	if res.TxHash != nil {
		fmt.Fprintf(r.out, "  Tx:             %s\n", res.TxHash.Hex())
	}
	if res.BlockNumber != nil {
		fmt.Fprintf(r.out, "  Mined in:       #%d\n", *res.BlockNumber)
	}
	if res.GasUsed != nil {
		fmt.Fprintf(r.out, "  Gas used:       %d\n", *res.GasUsed)
	}
	if res.ProfitRealized != nil {
		fmt.Fprintf(r.out, "  Profit:         $%s\n", res.ProfitRealized.StringFixed(2))
	}
	if !res.Success {
		fmt.Fprintf(r.out, "  Reason:         %s\n", res.ErrorKind)
		if res.Detail != "" {
			fmt.Fprintf(r.out, "  Detail:         %s\n", res.Detail)
		}
	}
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
}

// pad aligns the price column after a "(dex):" label.
func pad(dex string) string {
	n := 9 - len(dex)
	if n < 1 {
		n = 1
	}
	return fmt.Sprintf("%*s", n, "")
}
