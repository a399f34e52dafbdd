// Package store defines the interfaces for persisting crawl results.
// By using an interface, we decouple the scheduler from a specific
// database implementation, allowing a serialized local store in
// production and an in-memory one in tests.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jobscout/telegram-job-crawler/internal/clock"
)

// MessageRecord is one normalized message row. Uniqueness is the pair
// (ID, GroupLink); duplicate inserts are no-ops.
type MessageRecord struct {
	ID        int64
	GroupLink string
	Date      string
	SenderID  int64
	Text      string
}

// GroupCount pairs a group link with its stored message count.
type GroupCount struct {
	Link     string `json:"link"`
	Messages int    `json:"messages"`
}

// Stats summarizes what the store holds, for the read-only surfaces.
type Stats struct {
	TotalGroups   int          `json:"total_groups"`
	TotalMessages int          `json:"total_messages"`
	JoinsToday    int          `json:"joins_today"`
	TopGroups     []GroupCount `json:"top_groups"`
}

// Error marks an unrecoverable persistence failure. Quota and dedupe
// writes surface it to the caller; best-effort sinks only log it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Provider is the common interface for the relational store. It is the
// source of truth for the daily join quota and the authoritative record
// of joined groups.
type Provider interface {
	// RecordJoin upserts the join row for link. A re-join updates the
	// timestamp and owning account instead of inserting a duplicate.
	RecordJoin(ctx context.Context, link, accountPhone string, at time.Time) error

	// CountJoinsToday counts join rows whose timestamp falls on the
	// current UTC date. An empty accountPhone means all accounts.
	CountJoinsToday(ctx context.Context, accountPhone string) (int, error)

	// RecordMessages inserts message rows idempotently.
	RecordMessages(ctx context.Context, groupLink string, msgs []MessageRecord) error

	// JoinedLinks returns every group link ever recorded as joined.
	JoinedLinks(ctx context.Context) (map[string]struct{}, error)

	// Stats reports read-only aggregates for viewers.
	Stats(ctx context.Context) (Stats, error)

	Close() error
}

// dayOf formats a timestamp as the UTC calendar day used for quota
// accounting.
func dayOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Memory is an in-memory Provider for tests and local development.
type Memory struct {
	mu       sync.Mutex
	clk      clock.Clock
	joins    map[string]joinRow
	messages map[string]map[int64]MessageRecord
}

type joinRow struct {
	phone string
	at    time.Time
}

// NewMemory constructs an empty in-memory store.
func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.System{}
	}
	return &Memory{
		clk:      clk,
		joins:    make(map[string]joinRow),
		messages: make(map[string]map[int64]MessageRecord),
	}
}

// RecordJoin upserts the join row for link.
func (m *Memory) RecordJoin(_ context.Context, link, accountPhone string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joins[link] = joinRow{phone: accountPhone, at: at}
	return nil
}

// CountJoinsToday counts today's joins, optionally per account.
func (m *Memory) CountJoinsToday(_ context.Context, accountPhone string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	today := dayOf(m.clk.Now())
	n := 0
	for _, row := range m.joins {
		if dayOf(row.at) != today {
			continue
		}
		if accountPhone != "" && row.phone != accountPhone {
			continue
		}
		n++
	}
	return n, nil
}

// RecordMessages inserts message rows, ignoring duplicates.
func (m *Memory) RecordMessages(_ context.Context, groupLink string, msgs []MessageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byID := m.messages[groupLink]
	if byID == nil {
		byID = make(map[int64]MessageRecord)
		m.messages[groupLink] = byID
	}
	for _, msg := range msgs {
		if _, dup := byID[msg.ID]; dup {
			continue
		}
		byID[msg.ID] = msg
	}
	return nil
}

// JoinedLinks returns all recorded group links.
func (m *Memory) JoinedLinks(_ context.Context) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	links := make(map[string]struct{}, len(m.joins))
	for link := range m.joins {
		links[link] = struct{}{}
	}
	return links, nil
}

// Stats reports aggregates over the in-memory state.
func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	joinsToday, err := m.CountJoinsToday(ctx, "")
	if err != nil {
		return Stats{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{
		TotalGroups: len(m.joins),
		JoinsToday:  joinsToday,
	}
	for link, byID := range m.messages {
		s.TotalMessages += len(byID)
		s.TopGroups = append(s.TopGroups, GroupCount{Link: link, Messages: len(byID)})
	}
	sort.Slice(s.TopGroups, func(i, j int) bool {
		if s.TopGroups[i].Messages != s.TopGroups[j].Messages {
			return s.TopGroups[i].Messages > s.TopGroups[j].Messages
		}
		return s.TopGroups[i].Link < s.TopGroups[j].Link
	})
	if len(s.TopGroups) > 10 {
		s.TopGroups = s.TopGroups[:10]
	}
	return s, nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }

// JoinOwner reports the account that currently owns a join row, for
// tests that assert overwrite-on-conflict behavior.
func (m *Memory) JoinOwner(link string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.joins[link]
	return row.phone, ok
}
