package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRecordJoinUpserts(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	p := NewPostgresWithPool(mock, stubClock{now: now})

	mock.ExpectExec("INSERT INTO groups").
		WithArgs("devjobs", now, "+15550001").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, p.RecordJoin(context.Background(), "devjobs", "+15550001", now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCountJoinsToday(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	p := NewPostgresWithPool(mock, stubClock{now: now})

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("2026-08-28").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	n, err := p.CountJoinsToday(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("2026-08-28", "+15550001").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	n, err = p.CountJoinsToday(context.Background(), "+15550001")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordMessagesIgnoresConflicts(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := NewPostgresWithPool(mock, stubClock{now: time.Now()})

	mock.ExpectExec("INSERT INTO messages").
		WithArgs(int64(1), "devjobs", "2026-08-28T10:00:00Z", int64(7), "hiring").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO messages").
		WithArgs(int64(2), "devjobs", "2026-08-28T10:05:00Z", int64(8), "still hiring").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err = p.RecordMessages(context.Background(), "devjobs", []MessageRecord{
		{ID: 1, Date: "2026-08-28T10:00:00Z", SenderID: 7, Text: "hiring"},
		{ID: 2, Date: "2026-08-28T10:05:00Z", SenderID: 8, Text: "still hiring"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJoinedLinks(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := NewPostgresWithPool(mock, stubClock{now: time.Now()})

	mock.ExpectQuery("SELECT link FROM groups").
		WillReturnRows(pgxmock.NewRows([]string{"link"}).AddRow("a").AddRow("b"))

	links, err := p.JoinedLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}}, links)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordJoinError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p := NewPostgresWithPool(mock, stubClock{now: time.Now()})

	mock.ExpectExec("INSERT INTO groups").
		WithArgs("devjobs", pgxmock.AnyArg(), "+1").
		WillReturnError(assert.AnError)

	err = p.RecordJoin(context.Background(), "devjobs", "+1", time.Now())
	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "record join", storeErr.Op)
}
