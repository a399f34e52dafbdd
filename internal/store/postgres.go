package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobscout/telegram-job-crawler/internal/clock"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS groups (
	link TEXT PRIMARY KEY,
	joined_at TIMESTAMPTZ,
	account_phone TEXT
);
CREATE TABLE IF NOT EXISTS messages (
	id BIGINT,
	group_link TEXT,
	date TEXT,
	sender_id BIGINT,
	text TEXT,
	PRIMARY KEY (id, group_link)
);
CREATE INDEX IF NOT EXISTS idx_messages_group ON messages(group_link);
CREATE INDEX IF NOT EXISTS idx_groups_phone ON groups(account_phone);
`

// pgxPool is the narrow pool surface the store needs, so pgxmock can
// stand in during tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres implements Provider on a pgx connection pool, for
// deployments that want the crawl results in a shared database.
type Postgres struct {
	pool pgxPool
	clk  clock.Clock
}

// PostgresConfig controls the pgx pool.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// NewPostgres connects a pool and ensures the schema exists.
func NewPostgres(ctx context.Context, cfg PostgresConfig, clk clock.Clock) (*Postgres, error) {
	if clk == nil {
		clk = clock.System{}
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, &Error{Op: "parse dsn", Err: err}
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, &Error{Op: "connect", Err: err}
	}
	p := &Postgres{pool: pool, clk: clk}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, &Error{Op: "migrate", Err: err}
	}
	return p, nil
}

// NewPostgresWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostgresWithPool(pool pgxPool, clk clock.Clock) *Postgres {
	if clk == nil {
		clk = clock.System{}
	}
	return &Postgres{pool: pool, clk: clk}
}

// RecordJoin upserts the join row for link.
func (p *Postgres) RecordJoin(ctx context.Context, link, accountPhone string, at time.Time) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO groups (link, joined_at, account_phone)
VALUES ($1, $2, $3)
ON CONFLICT (link) DO UPDATE SET joined_at = EXCLUDED.joined_at, account_phone = EXCLUDED.account_phone`,
		link, at.UTC(), accountPhone)
	if err != nil {
		return &Error{Op: "record join", Err: err}
	}
	return nil
}

// CountJoinsToday counts rows whose joined_at date is today (UTC).
func (p *Postgres) CountJoinsToday(ctx context.Context, accountPhone string) (int, error) {
	day := dayOf(p.clk.Now())
	var (
		row pgx.Row
	)
	if accountPhone == "" {
		row = p.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM groups WHERE (joined_at AT TIME ZONE 'UTC')::date = $1::date`, day)
	} else {
		row = p.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM groups WHERE (joined_at AT TIME ZONE 'UTC')::date = $1::date AND account_phone = $2`,
			day, accountPhone)
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, &Error{Op: "count joins", Err: err}
	}
	return n, nil
}

// RecordMessages inserts message rows, ignoring duplicates.
func (p *Postgres) RecordMessages(ctx context.Context, groupLink string, msgs []MessageRecord) error {
	for _, m := range msgs {
		_, err := p.pool.Exec(ctx, `
INSERT INTO messages (id, group_link, date, sender_id, text)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id, group_link) DO NOTHING`,
			m.ID, groupLink, m.Date, m.SenderID, m.Text)
		if err != nil {
			return &Error{Op: "record messages", Err: err}
		}
	}
	return nil
}

// JoinedLinks returns every group link recorded as joined.
func (p *Postgres) JoinedLinks(ctx context.Context) (map[string]struct{}, error) {
	rows, err := p.pool.Query(ctx, `SELECT link FROM groups`)
	if err != nil {
		return nil, &Error{Op: "joined links", Err: err}
	}
	defer rows.Close()

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
func (p *Postgres) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM groups`).Scan(&st.TotalGroups); err != nil {
		return Stats{}, &Error{Op: "stats", Err: err}
	}
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&st.TotalMessages); err != nil {
		return Stats{}, &Error{Op: "stats", Err: err}
	}
	joinsToday, err := p.CountJoinsToday(ctx, "")
	if err != nil {
		return Stats{}, err
	}
	st.JoinsToday = joinsToday

	rows, err := p.pool.Query(ctx, `
SELECT group_link, COUNT(*) AS n
FROM messages
GROUP BY group_link
ORDER BY n DESC, group_link ASC
LIMIT 10`)
	if err != nil {
		return Stats{}, &Error{Op: "stats", Err: err}
	}
	defer rows.Close()
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

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
