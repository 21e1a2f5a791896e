// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// Breakdown holds the profit figures of one opportunity for display.
type Breakdown struct {
	Pair         string
	Route        string
	BlockNumber  uint64
	BuyPrice     decimal.Decimal
	SellPrice    decimal.Decimal
	SpreadPct    decimal.Decimal
	Amount       string
	GrossProfit  decimal.Decimal
	GasCost      decimal.Decimal
	FlashloanFee decimal.Decimal
	NetProfit    decimal.Decimal
}

// BreakdownComponent renders the latest opportunity's profit breakdown.
type BreakdownComponent struct {
	latest *Breakdown
}

// NewBreakdownComponent creates a new breakdown component.
func NewBreakdownComponent() *BreakdownComponent {
	return &BreakdownComponent{}
}

// Update replaces the displayed breakdown.
func (b *BreakdownComponent) Update(bd Breakdown) {
	b.latest = &bd
}

// View renders the breakdown component.
func (b *BreakdownComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	positiveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	negativeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))

	if b.latest == nil {
		return headerStyle.Render("LATEST OPPORTUNITY") + "\n\n" + dimStyle.Render("  Waiting for a profitable spread...")
	}
	bd := b.latest

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("LATEST OPPORTUNITY (%s)", bd.Pair)))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("  Block:         #%d\n", bd.BlockNumber))
	sb.WriteString(fmt.Sprintf("  Route:         %s\n", dimStyle.Render(bd.Route)))
	sb.WriteString(fmt.Sprintf("  Buy / Sell:    %s / %s\n", bd.BuyPrice.StringFixed(4), bd.SellPrice.StringFixed(4)))
	sb.WriteString(fmt.Sprintf("  Spread:        %s\n", warnStyle.Render(bd.SpreadPct.StringFixed(3)+"%")))
	sb.WriteString(fmt.Sprintf("  Flashloan:     %s\n", bd.Amount))
	sb.WriteString(dimStyle.Render("  "+strings.Repeat("─", 40)) + "\n")
	sb.WriteString(fmt.Sprintf("  Gross profit:  %s\n", warnStyle.Render("$"+bd.GrossProfit.StringFixed(2))))
	sb.WriteString(fmt.Sprintf("  Gas cost:      %s\n", negativeStyle.Render("-$"+bd.GasCost.StringFixed(2))))
	sb.WriteString(fmt.Sprintf("  Flashloan fee: %s\n", negativeStyle.Render("-$"+bd.FlashloanFee.StringFixed(2))))

	netStyle := positiveStyle
	if !bd.NetProfit.IsPositive() {
		netStyle = negativeStyle
	}
	sb.WriteString(fmt.Sprintf("  Net profit:    %s\n", netStyle.Render("$"+bd.NetProfit.StringFixed(2))))

	return sb.String()
}
