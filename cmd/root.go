// Package cmd defines and implements the CLI commands for the crawler
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobscout/telegram-job-crawler/internal/clock"
	"github.com/jobscout/telegram-job-crawler/internal/config"
	"github.com/jobscout/telegram-job-crawler/internal/logging"
	"github.com/jobscout/telegram-job-crawler/internal/store"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tgcrawl",
		Short: "A rate-limited, quota-aware Telegram job-group crawler.",
		Long: `tgcrawl joins Telegram groups across multiple accounts within daily
quotas, scrapes their message history, classifies messages as job
postings, and persists results to CSV and a relational store.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML; defaults and env vars apply without one)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newStatsCmd())
	return cmd
}

// loadApp builds the config and logger shared by all subcommands.
func loadApp() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// openStore constructs the configured store provider.
func openStore(ctx context.Context, cfg config.Config, clk clock.Clock, log *zap.Logger) (store.Provider, error) {
	switch cfg.Storage.Provider {
	case "sqlite":
		log.Info("using sqlite store", zap.String("path", cfg.Storage.SQLitePath))
		return store.NewSQLite(ctx, cfg.Storage.SQLitePath, clk)
	case "postgres":
		log.Info("using postgres store")
		return store.NewPostgres(ctx, store.PostgresConfig{DSN: cfg.Storage.PostgresDSN}, clk)
	case "memory":
		log.Info("using in-memory store; results will not survive the run")
		return store.NewMemory(clk), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
