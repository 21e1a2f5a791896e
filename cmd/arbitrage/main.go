// Package main is the entry point for the flashloan DEX arbitrage engine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var (
	configPath string
	cliMode    bool
)

var rootCmd = &cobra.Command{
	Use:   "arbitrage",
	Short: "Flashloan-funded DEX arbitrage engine",
	Long: `Watches new Ethereum blocks, quotes tracked pairs on every configured DEX router,
and executes profitable two-leg routes through a Balancer flashloan contract.`,
	SilenceUsage: true,
	RunE:         runE,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage engine (default)",
	RunE:  runE,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "arbitrage %s (commit: %s, built: %s)\n", version, commit, buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&cliMode, "cli", false, "run in CLI mode with logs (no TUI)")

	rootCmd.AddCommand(runCmd, discoverCmd, versionCmd)
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
