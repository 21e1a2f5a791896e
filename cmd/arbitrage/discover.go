package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/fd1az/flashloan-arb/business/blockchain"
	"github.com/fd1az/flashloan-arb/business/flashloan"
	flashloanDI "github.com/fd1az/flashloan-arb/business/flashloan/di"
	"github.com/fd1az/flashloan-arb/business/flashloan/domain"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run one flashloan capacity discovery pass and print the result",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return discover(cmd.Context(), configPath, cmd.OutOrStdout())
	},
}

func discover(ctx context.Context, configPath string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	modules := []monolith.Module{
		&blockchain.Module{},
		&flashloan.Module{Manual: true},
	}
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	reg := flashloanDI.GetRegistry(mono.Services())
	report, err := reg.Discover(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "pools read: %d  skipped: %d  tokens: %d  took: %s\n",
		report.Pools, report.Failed, report.Tokens, report.Duration.Round(time.Millisecond))
	fmt.Fprintln(out, capacityTable(reg.Snapshot()))
	return nil
}

func capacityTable(caps []domain.FlashloanCapability) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("SYMBOL", "CLASS", "DECIMALS", "MAX AMOUNT", "TOKEN", "POOL")
	for _, c := range caps {
		t.Row(
			c.Symbol,
			string(c.Class),
			strconv.Itoa(int(c.Decimals)),
			c.MaxAmount.StringFixed(4),
			c.TokenAddress.Hex(),
			c.SourcePoolID.Hex()[:10],
		)
	}
	return t.String()
}
