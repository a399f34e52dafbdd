package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobscout/telegram-job-crawler/internal/clock"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print crawl totals from the ledger without touching Telegram.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadApp()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx := cmd.Context()
			ledger, err := openStore(ctx, cfg, clock.System{}, logger)
			if err != nil {
				return err
			}
			defer ledger.Close() //nolint:errcheck

			stats, err := ledger.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("groups joined:   %d\n", stats.TotalGroups)
			fmt.Printf("messages stored: %d\n", stats.TotalMessages)
			fmt.Printf("joins today:     %d\n", stats.JoinsToday)
			if len(stats.TopGroups) > 0 {
				fmt.Println("busiest groups:")
				for _, g := range stats.TopGroups {
					fmt.Printf("  %-40s %d\n", g.Link, g.Messages)
				}
			}
			return nil
		},
	}
}
