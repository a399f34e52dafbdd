// Package ingest runs the per-group message fetch loop: page through
// history, classify each message, and fan the results out to every
// configured sink.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jobscout/telegram-job-crawler/internal/classify"
	"github.com/jobscout/telegram-job-crawler/internal/export"
	"github.com/jobscout/telegram-job-crawler/internal/metrics"
	"github.com/jobscout/telegram-job-crawler/internal/ratelimit"
	"github.com/jobscout/telegram-job-crawler/internal/store"
	"github.com/jobscout/telegram-job-crawler/internal/telegram"
)

// MessageSource yields the message history of one group. Satisfied by
// *telegram.Session.
type MessageSource interface {
	Messages(ctx context.Context, ref string, limit int) (telegram.MessageIter, error)
}

// GroupResult summarizes one group's scrape.
type GroupResult struct {
	Messages    int
	JobPosts    int
	FloodWaited bool
	SinkErrors  int
}

// Ingestor scrapes groups and persists normalized records.
type Ingestor struct {
	gov        *ratelimit.Governor
	ledger     store.Provider
	classifier *classify.Classifier
	messages   *export.CSVAppender
	jobs       *export.CSVAppender
	snapshots  *export.SnapshotWriter
	log        *zap.Logger
	dryRun     bool
}

// Config wires an Ingestor.
type Config struct {
	// DryRun makes Scrape return immediately without contacting the
	// remote; nothing is persisted.
	DryRun       bool
	MessagesCSV  string
	JobsCSV      string
	SnapshotsDir string
}

// MessagesHeader is the messages.csv column layout.
var MessagesHeader = []string{"date", "group", "message_id", "sender_id", "text", "job_score"}

// JobsHeader is the jobs.csv column layout.
var JobsHeader = []string{"source_group", "date", "job_score", "location", "remote", "fresher_friendly", "skills", "contact"}

// New constructs an Ingestor.
func New(cfg Config, gov *ratelimit.Governor, ledger store.Provider, classifier *classify.Classifier, log *zap.Logger) *Ingestor {
	return &Ingestor{
		gov:        gov,
		ledger:     ledger,
		classifier: classifier,
		messages:   export.NewCSVAppender(cfg.MessagesCSV, MessagesHeader),
		jobs:       export.NewCSVAppender(cfg.JobsCSV, JobsHeader),
		snapshots:  export.NewSnapshotWriter(cfg.SnapshotsDir),
		log:        log,
		dryRun:     cfg.DryRun,
	}
}

// Scrape pulls up to limit messages from group, classifies them, and
// persists the results. A flood wait aborts this group only: whatever
// was collected before the signal is still persisted, and no error is
// returned for it. The returned error is non-nil only for context
// cancellation or a failure to start the iteration.
func (in *Ingestor) Scrape(ctx context.Context, src MessageSource, group string, limit int) (GroupResult, error) {
	var res GroupResult
	if in.dryRun {
		in.log.Info("dry run, skipping scrape", zap.String("group", group))
		return res, nil
	}

	if err := in.gov.BeforeMessageRead(ctx); err != nil {
		return res, err
	}

	iter, err := src.Messages(ctx, group, limit)
	if err != nil {
		var flood *telegram.FloodWaitError
		if errors.As(err, &flood) {
			in.log.Warn("flood wait before reading group",
				zap.String("group", group), zap.Duration("retry_after", flood.RetryAfter))
			res.FloodWaited = true
			return res, nil
		}
		return res, fmt.Errorf("open message history for %s: %w", group, err)
	}

	var (
		records []store.MessageRecord
		msgRows [][]string
		jobRows [][]string
	)
	for {
		raw, ok, err := iter.Next(ctx)
		if err != nil {
			var flood *telegram.FloodWaitError
			if errors.As(err, &flood) {
				// Stop scraping this group now; keep the partial batch.
				in.log.Warn("flood wait mid-scrape",
					zap.String("group", group),
					zap.Int("collected", len(records)),
					zap.Duration("retry_after", flood.RetryAfter))
				res.FloodWaited = true
				break
			}
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			in.log.Warn("message iteration aborted",
				zap.String("group", group), zap.Error(err))
			break
		}
		if !ok {
			break
		}

		rec := normalize(group, raw)
		records = append(records, rec)

		cls := in.classifier.Classify(rec.Text)
		msgRows = append(msgRows, []string{
			rec.Date,
			group,
			strconv.FormatInt(rec.ID, 10),
			strconv.FormatInt(rec.SenderID, 10),
			export.CleanCell(rec.Text),
			formatScore(cls.Score),
		})
		if cls.IsJobPost {
			res.JobPosts++
			metrics.IncJobPosts()
			jobRows = append(jobRows, []string{
				group,
				rec.Date,
				formatScore(cls.Score),
				cls.Location,
				strconv.FormatBool(cls.RemoteFriendly),
				strconv.FormatBool(cls.FresherFriendly),
				joinSkills(cls.Skills),
				cls.Contact,
			})
		}

		if err := in.gov.BeforeMessageRead(ctx); err != nil {
			return res, err
		}
	}

	res.Messages = len(records)
	if len(records) == 0 {
		in.log.Info("no messages found", zap.String("group", group))
		return res, nil
	}

	// Fan out to every sink; one sink's failure must not stop the rest.
	if err := in.ledger.RecordMessages(ctx, group, records); err != nil {
		in.log.Error("store sink failed", zap.String("group", group), zap.Error(err))
		metrics.IncError("sink")
		res.SinkErrors++
	}
	if err := in.snapshots.Write(group, records); err != nil {
		in.log.Error("snapshot sink failed", zap.String("group", group), zap.Error(err))
		metrics.IncError("sink")
		res.SinkErrors++
	}
	if err := in.messages.Append(msgRows...); err != nil {
		in.log.Error("messages csv sink failed", zap.String("group", group), zap.Error(err))
		metrics.IncError("sink")
		res.SinkErrors++
	}
	if len(jobRows) > 0 {
		if err := in.jobs.Append(jobRows...); err != nil {
			in.log.Error("jobs csv sink failed", zap.String("group", group), zap.Error(err))
			metrics.IncError("sink")
			res.SinkErrors++
		}
	}

	metrics.AddMessages(res.Messages)
	in.log.Info("group scraped",
		zap.String("group", group),
		zap.Int("messages", res.Messages),
		zap.Int("job_posts", res.JobPosts),
		zap.Bool("flood_waited", res.FloodWaited))
	return res, nil
}

func normalize(group string, raw telegram.RawMessage) store.MessageRecord {
	return store.MessageRecord{
		ID:        raw.ID,
		GroupLink: group,
		Date:      raw.Date.UTC().Format(time.RFC3339),
		SenderID:  raw.SenderID,
		Text:      raw.Text,
	}
}

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 2, 64)
}

func joinSkills(skills []string) string {
	out := ""
	for i, s := range skills {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}
