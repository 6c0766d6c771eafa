package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/vista/pkg/adapters/sqlite"
	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
)

func TestSQLiteJournal_Contract(t *testing.T) {
	journal, err := sqlite.Open(sqlite.MemoryPath)
	require.NoError(t, err)
	defer journal.Close()

	ports.RunJournalContract(t, journal)
}

func TestSQLiteJournal_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	journal, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, journal.Record(ctx, domain.Record{
		SessionID:  "s1",
		Names:      []string{"a", "b"},
		Applied:    4,
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
	}))
	require.NoError(t, journal.Record(ctx, domain.Record{
		SessionID: "s1",
		Degraded:  true,
		Error:     "flush: boom",
		StartedAt: start,
	}))
	require.NoError(t, journal.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	history, err := reopened.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, []string{"a", "b"}, history[1].Names)
	assert.True(t, history[1].StartedAt.Equal(start))
	assert.True(t, history[0].FinishedAt.IsZero())

	stats, err := reopened.Stats(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sqlite.Stats{Transitions: 2, Degraded: 1, Failed: 1, Applied: 4}, stats)
}
