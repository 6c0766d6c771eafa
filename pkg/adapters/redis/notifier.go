package redis

import (
	"context"
	"encoding/json"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/vista/pkg/domain"
	"github.com/aretw0/vista/pkg/ports"
)

// Notifier publishes completion events on Redis and streams them back to
// processes that do not host the session, such as `vista events`.
type Notifier struct {
	client *backend.Client
	prefix string
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier creates a notifier publishing on <prefix>events:<session>.
func NewNotifier(client *backend.Client, prefix string) *Notifier {
	return &Notifier{client: client, prefix: prefix}
}

// Channel returns the channel name for a session.
func (n *Notifier) Channel(sessionID string) string {
	return n.prefix + "events:" + sessionID
}

// Notify publishes ev as JSON.
func (n *Notifier) Notify(ctx context.Context, ev domain.CompletionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal completion event: %w", err)
	}
	if err := n.client.Publish(ctx, n.Channel(ev.SessionID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish completion event: %w", err)
	}
	return nil
}

// Subscribe streams the completion events of sessionID until ctx is done.
// The returned channel is closed when the subscription ends.
func (n *Notifier) Subscribe(ctx context.Context, sessionID string) (<-chan domain.CompletionEvent, error) {
	sub := n.client.Subscribe(ctx, n.Channel(sessionID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan domain.CompletionEvent)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev domain.CompletionEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
