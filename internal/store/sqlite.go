package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/jobscout/telegram-job-crawler/internal/clock"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS groups (
	link TEXT PRIMARY KEY,
	joined_at TEXT,
	account_phone TEXT
);
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER,
	group_link TEXT,
	date TEXT,
	sender_id INTEGER,
	text TEXT,
	PRIMARY KEY (id, group_link),
	FOREIGN KEY (group_link) REFERENCES groups(link)
);
CREATE INDEX IF NOT EXISTS idx_messages_group ON messages(group_link);
CREATE INDEX IF NOT EXISTS idx_messages_date ON messages(date);
CREATE INDEX IF NOT EXISTS idx_groups_phone ON groups(account_phone);
`

// SQLite is the default Provider: a single serialized connection to a
// local database file. One writer at a time is all the scheduler
// needs, and it guarantees read-your-writes within the process.
type SQLite struct {
	db  *sql.DB
	clk clock.Clock
}

// NewSQLite opens (creating if needed) the database at path and
// ensures the schema exists.
func NewSQLite(ctx context.Context, path string, clk clock.Clock) (*SQLite, error) {
	if clk == nil {
		clk = clock.System{}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &Error{Op: "open", Err: err}
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}
	// Serialize all access through one connection.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, &Error{Op: "pragma", Err: err}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, &Error{Op: "migrate", Err: err}
	}
	return &SQLite{db: db, clk: clk}, nil
}

// RecordJoin upserts the join row for link.
func (s *SQLite) RecordJoin(ctx context.Context, link, accountPhone string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO groups (link, joined_at, account_phone)
VALUES (?, ?, ?)
ON CONFLICT(link) DO UPDATE SET joined_at=excluded.joined_at, account_phone=excluded.account_phone;`,
		link, at.UTC().Format(time.RFC3339), accountPhone)
	if err != nil {
		return &Error{Op: "record join", Err: err}
	}
	return nil
}

// CountJoinsToday counts rows whose joined_at date is today (UTC).
func (s *SQLite) CountJoinsToday(ctx context.Context, accountPhone string) (int, error) {
	day := dayOf(s.clk.Now())
	var (
		row *sql.Row
	)
	if accountPhone == "" {
		row = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM groups WHERE substr(joined_at,1,10)=?;", day)
	} else {
		row = s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM groups WHERE substr(joined_at,1,10)=? AND account_phone=?;",
			day, accountPhone)
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, &Error{Op: "count joins", Err: err}
	}
	return n, nil
}

// RecordMessages inserts message rows, ignoring duplicates.
func (s *SQLite) RecordMessages(ctx context.Context, groupLink string, msgs []MessageRecord) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Op: "record messages", Err: err}
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO messages (id, group_link, date, sender_id, text)
VALUES (?, ?, ?, ?, ?);`)
	if err != nil {
		return &Error{Op: "record messages", Err: err}
	}
	defer stmt.Close() //nolint:errcheck

	for _, m := range msgs {
		if _, err := stmt.ExecContext(ctx, m.ID, groupLink, m.Date, m.SenderID, m.Text); err != nil {
			return &Error{Op: "record messages", Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return &Error{Op: "record messages", Err: err}
	}
	return nil
}

// JoinedLinks returns every group link recorded as joined.
func (s *SQLite) JoinedLinks(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT link FROM groups;")
	if err != nil {
		return nil, &Error{Op: "joined links", Err: err}
	}
	defer rows.Close() //nolint:errcheck

	links := make(map[string]struct{})
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, &Error{Op: "joined links", Err: err}
		}
		links[link] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "joined links", Err: err}
	}
	return links, nil
}

// Stats reports read-only aggregates for viewers.
func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM groups;").Scan(&st.TotalGroups); err != nil {
		return Stats{}, &Error{Op: "stats", Err: err}
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages;").Scan(&st.TotalMessages); err != nil {
		return Stats{}, &Error{Op: "stats", Err: err}
	}
	joinsToday, err := s.CountJoinsToday(ctx, "")
	if err != nil {
		return Stats{}, err
	}
	st.JoinsToday = joinsToday

	rows, err := s.db.QueryContext(ctx, `
SELECT group_link, COUNT(*) AS n
FROM messages
GROUP BY group_link
ORDER BY n DESC, group_link ASC
LIMIT 10;`)
	if err != nil {
		return Stats{}, &Error{Op: "stats", Err: err}
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var gc GroupCount
		if err := rows.Scan(&gc.Link, &gc.Messages); err != nil {
			return Stats{}, &Error{Op: "stats", Err: err}
		}
		st.TopGroups = append(st.TopGroups, gc)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, &Error{Op: "stats", Err: err}
	}
	return st, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}
