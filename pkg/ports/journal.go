package ports

import (
	"context"

	"github.com/aretw0/vista/pkg/domain"
)

// Journal persists records of completed transitions.
type Journal interface {
	// Record appends a record.
	Record(ctx context.Context, rec domain.Record) error

	// History returns the newest records for a session, newest first.
	// A limit <= 0 returns every record.
	History(ctx context.Context, sessionID string, limit int) ([]domain.Record, error)
}

// Notifier delivers completion events to bindings living outside the process.
type Notifier interface {
	Notify(ctx context.Context, ev domain.CompletionEvent) error
}
