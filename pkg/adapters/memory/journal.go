package memory

import (
	"context"
	"sync"

	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
)

// Journal implements ports.Journal in memory.
// Safe for concurrent use.
type Journal struct {
	data map[string][]domain.Record
	mu   sync.RWMutex
}

var _ ports.Journal = (*Journal)(nil)

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{
		data: make(map[string][]domain.Record),
	}
}

// Record appends rec to its session's history.
func (j *Journal) Record(ctx context.Context, rec domain.Record) error {
	// Copy the slice so callers can't mutate stored records through it
	rec.Names = append([]string(nil), rec.Names...)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.data[rec.SessionID] = append(j.data[rec.SessionID], rec)
	return nil
}

// History returns up to limit records of sessionID, newest first.
func (j *Journal) History(ctx context.Context, sessionID string, limit int) ([]domain.Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	recs := j.data[sessionID]
	n := len(recs)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]domain.Record, 0, n)
	for i := len(recs) - 1; i >= 0 && len(out) < n; i-- {
		rec := recs[i]
		rec.Names = append([]string(nil), rec.Names...)
		out = append(out, rec)
	}
	return out, nil
}

// Sessions returns the session IDs that have at least one record.
func (j *Journal) Sessions() []string {
	j.mu.RLock()
	defer j.mu.RUnlock()

	ids := make([]string, 0, len(j.data))
	for id := range j.data {
		ids = append(ids, id)
	}
	return ids
}
