package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/asset"
)

func testOpportunity(block uint64) *domain.ArbitrageOpportunity {
	return domain.NewArbitrageOpportunity(
		pricingDomain.NewPair(asset.WETH, asset.USDC),
		domain.Route{
			Buy:  pricingDomain.DEX{Name: "uniswap", Router: common.HexToAddress("0x1")},
			Sell: pricingDomain.DEX{Name: "sushiswap", Router: common.HexToAddress("0x2")},
		},
		decimal.NewFromInt(1000), decimal.NewFromInt(1010), decimal.NewFromInt(1), decimal.NewFromInt(5),
		domain.NewProfitBreakdown(decimal.NewFromInt(50), decimal.NewFromInt(3), decimal.NewFromInt(1)),
		decimal.NewFromInt(1), block, time.Now(),
	)
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func dashboard() Model {
	m := New()
	m.phase = PhaseDashboard
	m.width = 120
	return m
}

func TestModel_OpportunityThenExecution(t *testing.T) {
	m := dashboard()
	opp := testOpportunity(100)

	m = update(t, m, OpportunityMsg{Opportunity: opp})
	if got := m.opportunities.Len(); got != 1 {
		t.Fatalf("opportunities = %d, want 1", got)
	}

	res := domain.Succeeded(opp, common.HexToHash("0xaa"), 101, 200000, time.Now())
	m = update(t, m, ExecutionMsg{Result: res})

	row, ok := m.opportunities.Find(opp.ID)
	if !ok {
		t.Fatal("opportunity row missing")
	}
	if row.Status != "executed" || !row.Executed {
		t.Errorf("row status = %q executed=%v", row.Status, row.Executed)
	}
	if got := m.executions.Len(); got != 1 {
		t.Errorf("executions = %d, want 1", got)
	}
	if len(m.errors) != 0 {
		t.Errorf("unexpected errors: %v", m.errors)
	}

	view := m.View()
	for _, want := range []string{"WETH/USDC", "uniswap", "46.00"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_FailedExecutionIsReported(t *testing.T) {
	m := dashboard()
	opp := testOpportunity(100)
	m = update(t, m, OpportunityMsg{Opportunity: opp})

	m = update(t, m, ExecutionMsg{Result: domain.Failed(opp, domain.ErrorKindReverted, "status 0", time.Now())})
	if len(m.errors) != 1 {
		t.Fatalf("errors = %d, want 1", len(m.errors))
	}

	m = update(t, m, ExecutionMsg{Result: domain.Failed(opp, domain.ErrorKindGasTooHigh, "", time.Now())})
	if len(m.errors) != 1 {
		t.Errorf("gas ceiling rejections should not be shown as errors")
	}
}

func TestModel_PauseFreezesPanels(t *testing.T) {
	m := dashboard()
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	if !m.paused {
		t.Fatal("expected paused")
	}

	m = update(t, m, OpportunityMsg{Opportunity: testOpportunity(100)})
	if m.opportunities.Len() != 0 {
		t.Error("paused model should not add rows")
	}
	if len(m.activityFeed) != 1 {
		t.Error("activity feed should still record the opportunity")
	}
}

func TestModel_StatsAdvanceBlock(t *testing.T) {
	m := dashboard()
	m = update(t, m, StatsMsg{Blocks: 3, LastBlock: 120, Opportunities: 2, Executions: 1, Succeeded: 1})
	if m.currentBlock != 120 {
		t.Errorf("currentBlock = %d, want 120", m.currentBlock)
	}
	if got := m.stats.Stats().Opportunities; got != 2 {
		t.Errorf("stats opportunities = %d", got)
	}

	m = update(t, m, StatsMsg{LastBlock: 119})
	if m.currentBlock != 120 {
		t.Error("block number should never go backwards")
	}
}

func TestModel_StartupCompletes(t *testing.T) {
	m := New()
	m.phase = PhaseStartup
	for _, step := range StepOrder {
		m = update(t, m, StartupMsg{Step: step, Status: "done"})
	}
	if !m.startupComplete {
		t.Error("all steps done should complete startup")
	}

	m = update(t, New(), StartupMsg{Step: "blockchain", Status: "failed", Message: "dial tcp: refused"})
	if len(m.errors) != 1 {
		t.Error("failed step should be reported")
	}
}

func TestModel_QuitAndErrors(t *testing.T) {
	m := dashboard()
	m = update(t, m, ErrorMsg{Error: errors.New("boom")})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	if len(m.errors) != 0 {
		t.Error("e should clear errors")
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if !m.quitting {
		t.Error("ctrl+c should quit")
	}
}
