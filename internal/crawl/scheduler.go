// Package crawl implements the quota-aware multi-account crawl
// scheduler. Accounts are processed strictly sequentially; all pacing
// happens through the rate governor, and the quota ledger is the
// source of truth for how much budget remains.
package crawl

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobscout/telegram-job-crawler/internal/catalog"
	"github.com/jobscout/telegram-job-crawler/internal/clock"
	"github.com/jobscout/telegram-job-crawler/internal/dedupe"
	"github.com/jobscout/telegram-job-crawler/internal/ingest"
	"github.com/jobscout/telegram-job-crawler/internal/metrics"
	"github.com/jobscout/telegram-job-crawler/internal/ratelimit"
	"github.com/jobscout/telegram-job-crawler/internal/store"
	"github.com/jobscout/telegram-job-crawler/internal/telegram"
)

// Config controls one scheduler run.
type Config struct {
	PerAccountDailyCap int
	GlobalDailyCap     int
	MessagesPerGroup   int
	InterJoinDelay     time.Duration
	ScrapeExisting     bool
}

// Summary is the end-of-run report.
type Summary struct {
	RunID             string
	AccountsProcessed int
	Joined            int
	MessagesScraped   int
	JobPosts          int
	Errors            int
}

// SessionOpener opens authenticated sessions. Satisfied by
// *telegram.Manager.
type SessionOpener interface {
	Open(ctx context.Context, acct telegram.Account) (*telegram.Session, error)
}

// Scheduler orchestrates the account rotation and group assignment.
type Scheduler struct {
	cfg      Config
	accounts []telegram.Account
	sessions SessionOpener
	ledger   store.Provider
	dedupe   *dedupe.Set
	gov      *ratelimit.Governor
	ingestor *ingest.Ingestor
	clk      clock.Clock
	sleep    ratelimit.SleepFunc
	log      *zap.Logger
}

// Option customizes a Scheduler, mainly for tests.
type Option func(*Scheduler)

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) { s.clk = c }
}

// WithSleep replaces the inter-attempt delay sleep.
func WithSleep(fn ratelimit.SleepFunc) Option {
	return func(s *Scheduler) { s.sleep = fn }
}

// New constructs a Scheduler.
func New(
	cfg Config,
	accounts []telegram.Account,
	sessions SessionOpener,
	ledger store.Provider,
	dd *dedupe.Set,
	gov *ratelimit.Governor,
	ingestor *ingest.Ingestor,
	log *zap.Logger,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		cfg:      cfg,
		accounts: accounts,
		sessions: sessions,
		ledger:   ledger,
		dedupe:   dd,
		gov:      gov,
		ingestor: ingestor,
		clk:      clock.System{},
		sleep:    ratelimit.Sleep,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one crawl over the candidate list. Candidates already
// in the dedupe set are skipped. Quota and dedupe persistence failures
// abort the run (the risk of joining past the cap is worse than a
// crashed run); everything else is local and tallied.
func (s *Scheduler) Run(ctx context.Context, candidates []catalog.Group) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	log := s.log.With(zap.String("run_id", sum.RunID))

	pending := make([]catalog.Group, 0, len(candidates))
	for _, g := range candidates {
		if !s.dedupe.Contains(g.Link) {
			pending = append(pending, g)
		}
	}

	globalToday, err := s.ledger.CountJoinsToday(ctx, "")
	if err != nil {
		return sum, err
	}
	remainingGlobal := s.cfg.GlobalDailyCap - globalToday
	log.Info("crawl run starting",
		zap.Int("candidates", len(pending)),
		zap.Int("accounts", len(s.accounts)),
		zap.Int("remaining_global", remainingGlobal))
	if remainingGlobal <= 0 {
		log.Info("daily global cap already reached, nothing to do")
		return sum, nil
	}

	for _, acct := range s.accounts {
		if remainingGlobal <= 0 {
			log.Info("daily global cap reached, skipping remaining accounts")
			break
		}
		acctToday, err := s.ledger.CountJoinsToday(ctx, acct.Phone)
		if err != nil {
			return sum, err
		}
		remainingAccount := s.cfg.PerAccountDailyCap - acctToday
		if remainingAccount <= 0 {
			log.Info("per-account cap reached, skipping",
				zap.String("phone", acct.Phone))
			continue
		}
		allowed := remainingAccount
		if remainingGlobal < allowed {
			allowed = remainingGlobal
		}

		joined, err := s.runAccount(ctx, log, acct, allowed, &pending, &sum)
		if err != nil {
			return sum, err
		}
		remainingGlobal -= joined

		// Persist after every account round so a crash does not lose
		// earlier accounts' progress.
		if err := s.dedupe.Persist(); err != nil {
			return sum, err
		}
	}

	log.Info("crawl run complete",
		zap.Int("accounts_processed", sum.AccountsProcessed),
		zap.Int("joined", sum.Joined),
		zap.Int("messages_scraped", sum.MessagesScraped),
		zap.Int("job_posts", sum.JobPosts),
		zap.Int("errors", sum.Errors))
	return sum, nil
}

// runAccount runs the join phase and scrape phase for one account and
// returns how many groups it actually joined.
func (s *Scheduler) runAccount(
	ctx context.Context,
	log *zap.Logger,
	acct telegram.Account,
	allowed int,
	pending *[]catalog.Group,
	sum *Summary,
) (int, error) {
	sess, err := s.sessions.Open(ctx, acct)
	if err != nil {
		var authErr *telegram.AuthError
		if errors.As(err, &authErr) {
			// Fatal to this account only.
			log.Error("account authentication failed, skipping account",
				zap.String("phone", acct.Phone), zap.Error(authErr))
			sum.Errors++
			metrics.IncError("auth")
			return 0, nil
		}
		return 0, err
	}
	// Release the connection even when the round aborts mid-crawl.
	defer func() {
		if cerr := sess.Close(context.WithoutCancel(ctx)); cerr != nil {
			log.Warn("session close failed", zap.String("phone", acct.Phone), zap.Error(cerr))
		}
	}()

	alog := log.With(zap.String("phone", acct.Phone))
	alog.Info("account round starting", zap.Int("allowed", allowed))

	var joinedThisRound []string
	i := 0
	for len(joinedThisRound) < allowed && i < len(*pending) {
		g := (*pending)[i]
		if s.dedupe.Contains(g.Link) {
			*pending = append((*pending)[:i], (*pending)[i+1:]...)
			continue
		}

		waitStart := s.clk.Now()
		if err := s.gov.BeforeGenericRequest(ctx); err != nil {
			return len(joinedThisRound), err
		}
		metrics.ObserveWait("generic", s.clk.Now().Sub(waitStart))
		if err := sess.Join(ctx, g.Link); err != nil {
			// Local failure: no quota consumed, candidate stays
			// available to later accounts, but pacing still applies.
			alog.Warn("could not join group", zap.String("group", g.Link), zap.Error(err))
			sum.Errors++
			metrics.IncJoin("failed")
			metrics.IncError("join")
			if serr := s.sleep(ctx, s.cfg.InterJoinDelay); serr != nil {
				return len(joinedThisRound), serr
			}
			i++
			continue
		}

		waitStart = s.clk.Now()
		if err := s.gov.BeforeJoin(ctx); err != nil {
			return len(joinedThisRound), err
		}
		metrics.ObserveWait("join", s.clk.Now().Sub(waitStart))
		if err := s.ledger.RecordJoin(ctx, g.Link, acct.Phone, s.clk.Now()); err != nil {
			// Quota-critical write: propagate, do not risk joining
			// past the cap on a blind ledger.
			return len(joinedThisRound), err
		}
		s.dedupe.Add(g.Link)
		joinedThisRound = append(joinedThisRound, g.Link)
		metrics.IncJoin("joined")
		alog.Info("joined group", zap.String("group", g.Link), zap.String("priority", g.Priority.String()))

		// Consumed from the pool on confirmed success only.
		*pending = append((*pending)[:i], (*pending)[i+1:]...)
	}
	sum.Joined += len(joinedThisRound)

	scraped := make(map[string]struct{}, len(joinedThisRound))
	for _, g := range joinedThisRound {
		if ctx.Err() != nil {
			return len(joinedThisRound), ctx.Err()
		}
		s.scrapeGroup(ctx, alog, sess, g, sum)
		scraped[g] = struct{}{}
	}
	if s.cfg.ScrapeExisting {
		// Revisit previously joined groups too, skipping the ones this
		// round just scraped.
		for _, g := range s.dedupe.IDs() {
			if _, done := scraped[g]; done {
				continue
			}
			if ctx.Err() != nil {
				return len(joinedThisRound), ctx.Err()
			}
			s.scrapeGroup(ctx, alog, sess, g, sum)
		}
	}

	sum.AccountsProcessed++
	metrics.IncAccountsProcessed()
	alog.Info("account round complete", zap.Int("joined", len(joinedThisRound)))
	return len(joinedThisRound), nil
}

func (s *Scheduler) scrapeGroup(ctx context.Context, log *zap.Logger, sess *telegram.Session, group string, sum *Summary) {
	res, err := s.ingestor.Scrape(ctx, sess, group, s.cfg.MessagesPerGroup)
	sum.MessagesScraped += res.Messages
	sum.JobPosts += res.JobPosts
	sum.Errors += res.SinkErrors
	if res.FloodWaited {
		sum.Errors++
	}
	if err != nil {
		// Local to this group; the round continues.
		log.Warn("group scrape failed", zap.String("group", group), zap.Error(err))
		sum.Errors++
		metrics.IncError("scrape")
	}
}
