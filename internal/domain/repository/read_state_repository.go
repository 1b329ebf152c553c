package repository

import (
	"context"
	"time"
)

// ReadStateRepository is a best-effort local cache of read markers. It is
// the only state allowed to survive a session teardown; it is never
// authoritative: on disagreement the backend's unread counts win upward
// (a cached marker can only suppress unread for messages older than it).
type ReadStateRepository interface {
	MarkRead(ctx context.Context, userID, conversationID string, at time.Time) error
	LastRead(ctx context.Context, userID, conversationID string) (time.Time, bool, error)
	Close() error
}
