package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobscout/telegram-job-crawler/internal/api"
	"github.com/jobscout/telegram-job-crawler/internal/catalog"
	"github.com/jobscout/telegram-job-crawler/internal/classify"
	"github.com/jobscout/telegram-job-crawler/internal/clock"
	"github.com/jobscout/telegram-job-crawler/internal/crawl"
	"github.com/jobscout/telegram-job-crawler/internal/dedupe"
	"github.com/jobscout/telegram-job-crawler/internal/ingest"
	"github.com/jobscout/telegram-job-crawler/internal/metrics"
	"github.com/jobscout/telegram-job-crawler/internal/ratelimit"
	"github.com/jobscout/telegram-job-crawler/internal/telegram"
)

// networkClientFactory is the seam for the real protocol client. It is
// an external collaborator: deployments link one in here. Simulation
// runs never touch it.
var networkClientFactory telegram.ClientFactory

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run one crawl: join groups within daily quotas and scrape their messages.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadApp()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			metrics.Init()
			clk := clock.System{}

			ledger, err := openStore(ctx, cfg, clk, logger)
			if err != nil {
				return err
			}
			defer ledger.Close() //nolint:errcheck

			factory := networkClientFactory
			if cfg.Crawler.Simulation {
				factory = telegram.SimFactory(telegram.SimConfig{
					JoinFailureRate:  0.1,
					MessagesPerGroup: cfg.Crawler.MessagesPerGroup,
				}, time.Now().UnixNano())
				logger.Info("simulation mode: remote operations are synthetic")
			}
			if factory == nil {
				return errors.New("no protocol client is linked into this build; set crawler.simulation to true or wire a client factory")
			}

			cat := catalog.New(cfg.Paths.Catalog, cfg.Paths.DataDir)
			candidates, err := cat.Load(cfg.Crawler.CategoryFilter)
			if err != nil {
				// Degrade to empty: a bad catalog never crashes the run.
				logger.Warn("catalog unusable, continuing with no candidates", zap.Error(err))
			}

			dd, err := dedupe.Load(ctx, cfg.Paths.DedupeFile, ledger, logger)
			if err != nil {
				return err
			}

			gov := ratelimit.New(ratelimit.Config{
				JoinInterval: cfg.RateLimit.GroupJoinDelay,
				ReadInterval: cfg.RateLimit.MessageReadDelay,
				GenericMin:   cfg.RateLimit.MinDelay,
				GenericMax:   cfg.RateLimit.MaxDelay,
			})

			ingestor := ingest.New(ingest.Config{
				DryRun:       cfg.Crawler.Simulation,
				MessagesCSV:  filepath.Join(cfg.Paths.DataDir, "messages.csv"),
				JobsCSV:      filepath.Join(cfg.Paths.DataDir, "jobs.csv"),
				SnapshotsDir: filepath.Join(cfg.Paths.DataDir, "messages"),
			}, gov, ledger, classify.New(0), logger)

			accounts := make([]telegram.Account, 0, len(cfg.Accounts))
			for _, a := range cfg.Accounts {
				accounts = append(accounts, telegram.Account{
					Name:    a.Name,
					Phone:   a.Phone,
					APIID:   a.APIID,
					APIHash: a.APIHash,
				})
			}
			manager := telegram.NewManager(factory, cfg.Paths.SessionsDir, logger)

			if cfg.Server.Enabled {
				srv := api.NewServer(ledger, cfg.Server.Port, logger)
				go srv.Start()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := srv.Shutdown(shutdownCtx); err != nil {
						logger.Warn("stats server shutdown failed", zap.Error(err))
					}
				}()
			}

			sched := crawl.New(crawl.Config{
				PerAccountDailyCap: cfg.Crawler.PerAccountDailyCap,
				GlobalDailyCap:     cfg.Crawler.GlobalDailyCap,
				MessagesPerGroup:   cfg.Crawler.MessagesPerGroup,
				InterJoinDelay:     cfg.Crawler.InterJoinDelay,
				ScrapeExisting:     cfg.Crawler.ScrapeExisting,
			}, accounts, manager, ledger, dd, gov, ingestor, logger)

			summary, err := sched.Run(ctx, candidates)
			fmt.Printf("run %s: accounts=%d joined=%d messages=%d job_posts=%d errors=%d\n",
				summary.RunID, summary.AccountsProcessed, summary.Joined,
				summary.MessagesScraped, summary.JobPosts, summary.Errors)
			if err != nil {
				return fmt.Errorf("crawl run: %w", err)
			}
			return nil
		},
	}
}
