// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ExecutionRow represents one execution result.
type ExecutionRow struct {
	Timestamp string
	Pair      string
	Success   bool
	DryRun    bool
	TxHash    string
	ErrorKind string
	Profit    string
}

// ExecutionsComponent renders recent execution results.
type ExecutionsComponent struct {
	rows    []ExecutionRow
	maxRows int
}

// NewExecutionsComponent creates a new executions component.
func NewExecutionsComponent(maxRows int) *ExecutionsComponent {
	return &ExecutionsComponent{maxRows: maxRows}
}

// Add adds a result to the top of the list.
func (e *ExecutionsComponent) Add(row ExecutionRow) {
	e.rows = append([]ExecutionRow{row}, e.rows...)
	if len(e.rows) > e.maxRows {
		e.rows = e.rows[:e.maxRows]
	}
}

// Len returns the number of stored rows.
func (e *ExecutionsComponent) Len() int {
	return len(e.rows)
}

// View renders the executions component.
func (e *ExecutionsComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	dryStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("EXECUTIONS"))
	sb.WriteString("\n\n")

	if len(e.rows) == 0 {
		sb.WriteString(mutedStyle.Render("  No executions yet"))
		return sb.String()
	}

	for _, row := range e.rows {
		var status string
		switch {
		case row.Success && row.DryRun:
			status = dryStyle.Render("◌ dry run")
		case row.Success:
			status = okStyle.Render("✓ mined  ")
		default:
			status = failStyle.Render("✗ " + fmt.Sprintf("%-7s", truncate(row.ErrorKind, 7)))
		}

		detail := row.Profit
		if row.TxHash != "" {
			detail = truncate(row.TxHash, 14) + " " + detail
		}
		sb.WriteString(fmt.Sprintf("  %s %s %-10s %s\n",
			mutedStyle.Render(row.Timestamp), status, row.Pair, mutedStyle.Render(detail)))
	}

	return sb.String()
}
