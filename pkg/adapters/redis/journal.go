package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
)

// Journal implements ports.Journal with one Redis list per session, newest
// record at the head.
type Journal struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	max    int64
}

var _ ports.Journal = (*Journal)(nil)

// Option configures a Journal.
type Option func(*Journal)

// WithTTL expires a session's history after ttl without new records.
func WithTTL(ttl time.Duration) Option {
	return func(j *Journal) {
		j.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(j *Journal) {
		j.prefix = prefix
	}
}

// WithMaxRecords caps the history kept per session.
func WithMaxRecords(n int) Option {
	return func(j *Journal) {
		j.max = int64(n)
	}
}

// NewJournal creates a journal from an existing client.
func NewJournal(client *backend.Client, opts ...Option) *Journal {
	j := &Journal{
		client: client,
		prefix: "vista:",
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Journal) key(sessionID string) string {
	return j.prefix + "journal:" + sessionID
}

func (j *Journal) indexKey() string {
	return j.prefix + "journal:index"
}

// Record pushes rec onto its session's list.
func (j *Journal) Record(ctx context.Context, rec domain.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	key := j.key(rec.SessionID)
	pipe := j.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	if j.max > 0 {
		pipe.LTrim(ctx, key, 0, j.max-1)
	}
	if j.ttl > 0 {
		pipe.Expire(ctx, key, j.ttl)
	}
	pipe.ZAdd(ctx, j.indexKey(), backend.Z{
		Score:  float64(rec.FinishedAt.Unix()),
		Member: rec.SessionID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save record to redis: %w", err)
	}
	return nil
}

// History returns up to limit records, newest first.
func (j *Journal) History(ctx context.Context, sessionID string, limit int) ([]domain.Record, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	vals, err := j.client.LRange(ctx, j.key(sessionID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history from redis: %w", err)
	}

	out := make([]domain.Record, 0, len(vals))
	for _, v := range vals {
		var rec domain.Record
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Sessions returns the sessions that recorded at least one transition, most
// recently active first.
func (j *Journal) Sessions(ctx context.Context) ([]string, error) {
	ids, err := j.client.ZRevRange(ctx, j.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list journal sessions: %w", err)
	}
	return ids, nil
}
