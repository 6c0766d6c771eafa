package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/vista/pkg/domain"
)

// EventSource streams the completion events of one session.
type EventSource interface {
	Subscribe(ctx context.Context, sessionID string) (<-chan domain.CompletionEvent, error)
}

// ConnectRedis dials addr and checks the connection.
func ConnectRedis(ctx context.Context, addr string) (*backend.Client, error) {
	client := backend.NewClient(&backend.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// FollowEvents writes the completion events of sessionID as JSON lines until
// ctx is done or limit events were written. A limit <= 0 follows until ctx is
// done. ready, if not nil, is called once the subscription is live.
func FollowEvents(ctx context.Context, src EventSource, sessionID string, w io.Writer, limit int, ready func()) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := src.Subscribe(ctx, sessionID)
	if err != nil {
		return err
	}
	if ready != nil {
		ready()
	}

	enc := json.NewEncoder(w)
	written := 0
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
		written++
		if limit > 0 && written >= limit {
			return nil
		}
	}
	return nil
}
