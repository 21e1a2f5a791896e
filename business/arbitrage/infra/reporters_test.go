package infra

import (
	"bytes"
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	chainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	eventsDomain "github.com/fd1az/flashloan-arb/business/events/domain"
	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/pkg/ui"
)

func testOpportunity() *domain.ArbitrageOpportunity {
	return domain.NewArbitrageOpportunity(
		pricingDomain.NewPair(asset.WETH, asset.USDC),
		domain.Route{
			Buy:  pricingDomain.DEX{Name: "uniswap", Router: common.HexToAddress("0x1")},
			Sell: pricingDomain.DEX{Name: "sushiswap", Router: common.HexToAddress("0x2")},
		},
		decimal.NewFromInt(1000), decimal.NewFromInt(1010), decimal.NewFromInt(1), decimal.NewFromInt(5),
		domain.NewProfitBreakdown(decimal.NewFromInt(50), decimal.NewFromInt(3), decimal.NewFromInt(1)),
		decimal.NewFromInt(1), 100, time.Unix(1_700_000_000, 0).UTC(),
	)
}

func TestConsoleReporter(t *testing.T) {
	opp := testOpportunity()

	tests := []struct {
		name    string
		payload any
		want    []string
	}{
		{
			name:    "opportunity",
			payload: opp,
			want:    []string{"ARBITRAGE OPPORTUNITY DETECTED", "Block:          #100", "buy on uniswap, sell on sushiswap", "Net:            $46.00", "5 WETH"},
		},
		{
			name:    "success",
			payload: domain.Succeeded(opp, common.HexToHash("0xbeef"), 101, 210000, time.Now()),
			want:    []string{"SUCCESS", "Mined in:       #101", "Gas used:       210000", "Profit:         $46.00"},
		},
		{
			name:    "failure",
			payload: domain.Failed(opp, domain.ErrorKindStaleOpportunity, "head 105", time.Now()),
			want:    []string{"FAILED", "Reason:         StaleOpportunity", "Detail:         head 105"},
		},
		{
			name:    "dry_run",
			payload: domain.ExecutionResult{OpportunityID: opp.ID, Success: true, DryRun: true},
			want:    []string{"DRY RUN"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := NewConsoleReporterTo(&buf)

			if err := r.Send(context.Background(), eventsDomain.NewEvent(eventsDomain.EventOpportunity, tt.payload, time.Now())); err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

type captured struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (c *captured) send(msg tea.Msg) {
	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	c.mu.Unlock()
}

func (c *captured) all() []tea.Msg {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]tea.Msg(nil), c.msgs...)
}

type staticStats struct{ s app.Stats }

func (f staticStats) Stats() app.Stats { return f.s }

type staticFees struct{}

func (staticFees) FeeData(context.Context) (*chainDomain.FeeData, error) {
	return chainDomain.NewFeeData(big.NewInt(7_000_000_000), nil, nil, time.Now()), nil
}

type staticChain struct{}

func (staticChain) ConnectionState() chainDomain.ConnectionState { return chainDomain.StateConnected }

func TestTUIReporter_Send(t *testing.T) {
	c := &captured{}
	r := &TUIReporter{send: c.send}
	opp := testOpportunity()

	_ = r.Send(context.Background(), eventsDomain.NewEvent(eventsDomain.EventOpportunity, opp, time.Now()))
	_ = r.Send(context.Background(), eventsDomain.NewEvent(eventsDomain.EventExecution, domain.Failed(opp, domain.ErrorKindReverted, "", time.Now()), time.Now()))
	_ = r.Send(context.Background(), eventsDomain.NewEvent("other", 42, time.Now()))

	msgs := c.all()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if m, ok := msgs[0].(ui.OpportunityMsg); !ok || m.Opportunity != opp {
		t.Errorf("first message = %#v", msgs[0])
	}
	if m, ok := msgs[1].(ui.ExecutionMsg); !ok || m.Result.ErrorKind != domain.ErrorKindReverted {
		t.Errorf("second message = %#v", msgs[1])
	}
}

func TestTUIReporter_Watch(t *testing.T) {
	c := &captured{}
	r := &TUIReporter{send: c.send}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Watch(ctx, WatchSources{
			Stats: staticStats{s: app.Stats{Blocks: 4, LastBlock: 104}},
			Fees:  staticFees{},
			Chain: staticChain{},
		}, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(c.all()) < 3 {
		select {
		case <-deadline:
			t.Fatal("no messages pushed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	var sawStats, sawGas, sawConn bool
	for _, msg := range c.all() {
		switch m := msg.(type) {
		case ui.StatsMsg:
			sawStats = m.LastBlock == 104
		case ui.GasPriceMsg:
			sawGas = m.GweiPrice == 7
		case ui.ConnectionStatusMsg:
			sawConn = m.Connected
		}
	}
	if !sawStats || !sawGas || !sawConn {
		t.Errorf("stats=%v gas=%v conn=%v", sawStats, sawGas, sawConn)
	}
}
