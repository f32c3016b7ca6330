package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	value time.Time
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*time.Time)) = r.value
	return nil
}

type fakeDB struct {
	sql  string
	args []any
	row  fakeRow
	tag  pgconn.CommandTag
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql, f.args = sql, args
	return f.tag, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.sql, f.args = sql, args
	return f.row
}

func TestPGStoreInsertEvent(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	db := &fakeDB{row: fakeRow{value: at}}
	store := NewPGStore(db)

	ev, err := store.InsertEvent(context.Background(), TopicQuoteIssued, "s-1", []byte(`{"x":1}`))
	require.NoError(t, err)
	require.Equal(t, insertEvent, db.sql)
	require.Len(t, db.args, 4)
	require.Equal(t, ev.ID, db.args[0])
	require.Equal(t, "s-1", db.args[2])
	require.Equal(t, at, ev.OccurredAt)
	require.JSONEq(t, `{"x":1}`, string(ev.Payload))
}

func TestPGStoreInsertEventError(t *testing.T) {
	store := NewPGStore(&fakeDB{row: fakeRow{err: errors.New("boom")}})
	_, err := store.InsertEvent(context.Background(), TopicQuoteIssued, "s-1", nil)
	require.Error(t, err)
}

func TestPGStorePurgeBefore(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("DELETE 3")}
	n, err := NewPGStore(db).PurgeBefore(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.Equal(t, deleteEventsBefore, db.sql)
}
