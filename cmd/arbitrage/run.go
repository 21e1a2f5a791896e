package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fd1az/flashloan-arb/business/arbitrage"
	arbitrageDI "github.com/fd1az/flashloan-arb/business/arbitrage/di"
	"github.com/fd1az/flashloan-arb/business/blockchain"
	blockchainDI "github.com/fd1az/flashloan-arb/business/blockchain/di"
	chainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/business/events"
	"github.com/fd1az/flashloan-arb/business/flashloan"
	flashloanDI "github.com/fd1az/flashloan-arb/business/flashloan/di"
	"github.com/fd1az/flashloan-arb/business/pricing"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/health"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/metrics"
	"github.com/fd1az/flashloan-arb/internal/monolith"
	"github.com/fd1az/flashloan-arb/pkg/ui"
)

func runE(cmd *cobra.Command, _ []string) error {
	return run(cmd.Context(), configPath, !cliMode)
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set TUI mode in config so modules know
	cfg.Arbitrage.TUIMode = tuiMode

	// In TUI mode, suppress logs (discard output)
	var out io.Writer = os.Stderr
	if tuiMode {
		out = io.Discard
	}
	log := logger.New(out, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting flashloan arbitrage engine",
		"version", version,
		"environment", cfg.App.Environment,
		"dry_run", cfg.Execution.DryRun)

	stopTelemetry := startTelemetry(ctx, cfg, log)
	defer stopTelemetry()

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer func() {
		if err := mono.Close(); err != nil {
			log.Error(context.Background(), "shutdown error", "error", err)
		}
	}()

	// Define modules in dependency order
	modules := []monolith.Module{
		&blockchain.Module{}, // Must be first - chain client and block subscription
		&pricing.Module{},    // Router quotes over the chain client
		&flashloan.Module{},  // Vault capacity registry
		&events.Module{},     // Broadcaster and subscriber sinks
		&arbitrage.Module{},  // Per-block loop, depends on all of the above
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	registerChecks(healthServer, mono.Services())
	healthServer.Start()
	log.Info(ctx, "health server started", "port", cfg.Health.Port)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = healthServer.Stop(shutdownCtx)
	}()

	if tuiMode {
		return runTUI(ctx, func() error {
			return startStepwise(ctx, mono, modules)
		})
	}

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}
	log.Info(ctx, "all modules started, watching blocks")

	<-ctx.Done()
	log.Info(context.Background(), "shutting down")
	return nil
}

// startTelemetry installs the trace and metric providers when enabled and
// returns a function releasing them.
func startTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) func() {
	if !cfg.Telemetry.Enabled {
		return func() {}
	}

	traceProvider := apm.NewTraceProvider(log, cfg.Telemetry.ServiceName, apm.WithProvider(apm.Settings{
		ServiceName: cfg.Telemetry.ServiceName,
		Provider:    apm.Provider(cfg.Telemetry.TraceProvider),
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	}, log))
	log.Info(ctx, "tracing initialized", "provider", cfg.Telemetry.TraceProvider)

	if _, err := metrics.NewMetricProvider(
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{
			Provider: metrics.PrometheusProvider,
		}),
	); err != nil {
		log.Warn(ctx, "metrics provider unavailable", "error", err)
	}

	port := cfg.Telemetry.PrometheusPort
	if port == 0 {
		port = 9090
	}
	promServer := metrics.ServePrometheusMetrics(log, metrics.WithPort(strconv.Itoa(port)))
	log.Info(ctx, "prometheus metrics server started", "port", port)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = promServer.Stop(shutdownCtx)
		if err := traceProvider.Stop(); err != nil {
			log.Warn(shutdownCtx, "trace provider stop failed", "error", err)
		}
	}
}

func registerChecks(s *health.Server, sr di.ServiceRegistry) {
	s.RegisterCheck("chain", func(context.Context) error {
		if state := blockchainDI.GetChainService(sr).ConnectionState(); state != chainDomain.StateConnected {
			return fmt.Errorf("block subscription %s", state)
		}
		return nil
	})
	s.RegisterCheck("automation", func(context.Context) error {
		if !arbitrageDI.GetAutomation(sr).IsRunning() {
			return errors.New("automation not running")
		}
		return nil
	})
	s.RegisterCheck("flashloan", func(context.Context) error {
		if !flashloanDI.GetRegistry(sr).Fresh() {
			return errors.New("flashloan capacity is stale")
		}
		return nil
	})
}

// startStepwise starts modules one at a time and reports each step to the dashboard.
func startStepwise(ctx context.Context, mono interface {
	monolith.Monolith
	StartModules(context.Context, ...monolith.Module) error
}, modules []monolith.Module) error {
	for i, m := range modules {
		step := ui.StepOrder[i]
		ui.Send(ui.StartupMsg{Step: step, Status: "connecting"})
		if err := mono.StartModules(ctx, m); err != nil {
			ui.Send(ui.StartupMsg{Step: step, Status: "failed", Message: err.Error()})
			return fmt.Errorf("failed to start %s: %w", step, err)
		}
		ui.Send(ui.StartupMsg{Step: step, Status: "done"})
	}
	return nil
}

func runTUI(ctx context.Context, startFunc func() error) error {
	// Channel to receive StartModulesMsg signal
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	p := tea.NewProgram(ui.New(), tea.WithAltScreen(), tea.WithContext(ctx))
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		// Wait for welcome screen to complete (StartModulesMsg signal)
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		if err := startFunc(); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}
		errCh <- nil
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
