package redis

import (
	"context"
	"encoding/json"

	"campus-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel prefix when none is configured.
const DefaultChannel = "quiz:events"

// Notifier publishes quiz events to a Redis pub/sub channel. It is a
// best-effort sink: callers ignore its errors, so a Redis outage never fails
// the operation being notified about.
type Notifier struct {
	client  *redis.Client
	channel string
}

func NewNotifier(client *redis.Client, channel string) *Notifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Notifier{client: client, channel: channel}
}

func (n *Notifier) Publish(ctx context.Context, event domain.Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, raw).Err()
}

// Channel returns the channel events are published on, for subscribers.
func (n *Notifier) Channel() string {
	return n.channel
}
