package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"weddinglink/internal/domain/repository"
	"weddinglink/pkg/errors"
)

type sqliteReadStateRepository struct {
	db *sql.DB
}

// NewSqliteReadStateRepository opens (or creates) the local read-state
// cache. Read markers are the one piece of state allowed to outlive a
// session, and only as a best-effort hint.
func NewSqliteReadStateRepository(path string) (repository.ReadStateRepository, error) {
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Internal("Failed to open read-state cache", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Internal("Failed to connect to read-state cache", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS read_state (
		user_id TEXT NOT NULL,
		conversation_id TEXT NOT NULL,
		last_read_at TEXT NOT NULL,
		PRIMARY KEY (user_id, conversation_id)
	)`
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, errors.Internal("Failed to prepare read-state schema", err)
	}

	return &sqliteReadStateRepository{db: db}, nil
}

func (r *sqliteReadStateRepository) MarkRead(ctx context.Context, userID, conversationID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO read_state (user_id, conversation_id, last_read_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, conversation_id) DO UPDATE SET last_read_at = excluded.last_read_at`,
		userID, conversationID, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return errors.Internal("Failed to persist read marker", err)
	}
	return nil
}

func (r *sqliteReadStateRepository) LastRead(ctx context.Context, userID, conversationID string) (time.Time, bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		`SELECT last_read_at FROM read_state WHERE user_id = ? AND conversation_id = ?`,
		userID, conversationID).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.Internal("Failed to read read marker", err)
	}

	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// A corrupt marker is treated as absent; the cache is advisory.
		return time.Time{}, false, nil
	}
	return at, true, nil
}

func (r *sqliteReadStateRepository) Close() error {
	return r.db.Close()
}
