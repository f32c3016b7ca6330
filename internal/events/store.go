package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx used by PGStore; *pgxpool.Pool satisfies it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore persists events into the quote_events table.
type PGStore struct {
	db DBTX
}

// NewPGStore constructs a PGStore.
func NewPGStore(db DBTX) *PGStore {
	return &PGStore{db: db}
}

const insertEvent = `INSERT INTO quote_events (id, topic, session_id, payload)
VALUES ($1, $2, $3, $4)
RETURNING occurred_at`

// InsertEvent stores one event and returns it with its database timestamp.
func (s *PGStore) InsertEvent(ctx context.Context, topic, sessionID string, payload []byte) (Event, error) {
	id := uuid.New()
	var occurredAt time.Time
	if err := s.db.QueryRow(ctx, insertEvent, id, topic, sessionID, payload).Scan(&occurredAt); err != nil {
		return Event{}, err
	}
	return Event{
		ID:         id,
		Topic:      topic,
		SessionID:  sessionID,
		Payload:    append([]byte(nil), payload...),
		OccurredAt: occurredAt,
	}, nil
}

const deleteEventsBefore = `DELETE FROM quote_events WHERE occurred_at < $1`

// PurgeBefore deletes events older than cutoff and reports how many were removed.
func (s *PGStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, deleteEventsBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
