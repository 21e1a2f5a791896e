// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// OpportunityRow represents an opportunity in the list.
type OpportunityRow struct {
	ID          string
	Timestamp   string
	BlockNumber uint64
	Pair        string
	Route       string
	SpreadPct   decimal.Decimal
	Amount      string
	NetProfit   decimal.Decimal
	Status      string
	Executed    bool
}

// OpportunitiesComponent renders the opportunities list.
type OpportunitiesComponent struct {
	rows    []OpportunityRow
	maxRows int
	visible int
	offset  int
}

// NewOpportunitiesComponent creates a new opportunities component.
func NewOpportunitiesComponent(maxRows, visible int) *OpportunitiesComponent {
	return &OpportunitiesComponent{
		rows:    make([]OpportunityRow, 0),
		maxRows: maxRows,
		visible: visible,
	}
}

// Add adds a new opportunity to the top of the list.
func (o *OpportunitiesComponent) Add(row OpportunityRow) {
	o.rows = append([]OpportunityRow{row}, o.rows...)
	if len(o.rows) > o.maxRows {
		o.rows = o.rows[:o.maxRows]
	}
	if o.offset > 0 {
		o.offset++
	}
	o.clamp()
}

// Find returns the row with id.
func (o *OpportunitiesComponent) Find(id string) (OpportunityRow, bool) {
	for _, row := range o.rows {
		if row.ID == id {
			return row, true
		}
	}
	return OpportunityRow{}, false
}

// SetStatus updates the status of the row with id.
func (o *OpportunitiesComponent) SetStatus(id, status string, executed bool) bool {
	for i := range o.rows {
		if o.rows[i].ID == id {
			o.rows[i].Status = status
			o.rows[i].Executed = executed
			return true
		}
	}
	return false
}

// Len returns the number of stored rows.
func (o *OpportunitiesComponent) Len() int {
	return len(o.rows)
}

// Clear clears all opportunities.
func (o *OpportunitiesComponent) Clear() {
	o.rows = make([]OpportunityRow, 0)
	o.offset = 0
}

// ScrollUp moves the window towards newer rows.
func (o *OpportunitiesComponent) ScrollUp() {
	if o.offset > 0 {
		o.offset--
	}
}

// ScrollDown moves the window towards older rows.
func (o *OpportunitiesComponent) ScrollDown() {
	o.offset++
	o.clamp()
}

// Offset returns the index of the first visible row.
func (o *OpportunitiesComponent) Offset() int {
	return o.offset
}

func (o *OpportunitiesComponent) clamp() {
	limit := len(o.rows) - o.visible
	if limit < 0 {
		limit = 0
	}
	if o.offset > limit {
		o.offset = limit
	}
}

// View renders the opportunities component.
func (o *OpportunitiesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	if len(o.rows) == 0 {
		return headerStyle.Render("OPPORTUNITIES") + "\n\nNo opportunities detected yet..."
	}

	executedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	end := o.offset + o.visible
	if end > len(o.rows) {
		end = len(o.rows)
	}

	result := headerStyle.Render(fmt.Sprintf("OPPORTUNITIES (%d-%d of %d)", o.offset+1, end, len(o.rows))) + "\n"
	result += "┌─────────┬───────────┬──────────────────────────┬─────────┬──────────┬──────────────┐\n"
	result += "│  Block  │   Pair    │          Route           │ Spread  │   Net    │    Status    │\n"
	result += "├─────────┼───────────┼──────────────────────────┼─────────┼──────────┼──────────────┤\n"

	for _, row := range o.rows[o.offset:end] {
		statusStyle := mutedStyle
		if row.Executed {
			statusStyle = executedStyle
		}

		result += fmt.Sprintf("│%8d │%10s │%25s │%8s │%9s │ %s│\n",
			row.BlockNumber,
			row.Pair,
			truncate(row.Route, 25),
			row.SpreadPct.StringFixed(2)+"%",
			"$"+row.NetProfit.StringFixed(2),
			statusStyle.Render(fmt.Sprintf("%-13s", row.Status)),
		)
	}

	result += "└─────────┴───────────┴──────────────────────────┴─────────┴──────────┴──────────────┘"

	return result
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
