// Package ui provides the Bubble Tea TUI for the arbitrage bot.
package ui

import (
	"time"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
)

// Message types for TUI updates

// OpportunityMsg is sent when an arbitrage opportunity is detected.
type OpportunityMsg struct {
	Opportunity *domain.ArbitrageOpportunity
}

// ExecutionMsg is sent when an execution attempt completes.
type ExecutionMsg struct {
	Result domain.ExecutionResult
}

// StatsMsg carries a snapshot of the scan counters.
type StatsMsg struct {
	Blocks          uint64
	LastBlock       uint64
	Opportunities   uint64
	Executions      uint64
	Succeeded       uint64
	Failed          uint64
	SkippedExecuted uint64
	SkippedInFlight uint64
}

// ConnectionStatusMsg is sent when connection status changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// BlockMsg is sent when a new block is received.
type BlockMsg struct {
	Number    uint64
	Timestamp time.Time
}

// GasPriceMsg is sent when gas price is updated.
type GasPriceMsg struct {
	GweiPrice float64
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // module name
	Status  string // "connecting", "connected", "done", "failed"
	Message string // Optional message
}
