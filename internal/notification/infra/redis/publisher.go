package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cristianortiz/auctionMarket/internal/notification"
	"github.com/go-redis/redis/v8"
)

// Publisher pushes notification events to a Redis pub/sub channel as JSON documents,
// delivery to users (push, email, in-app feed) is done by whoever subscribes.
type Publisher struct {
	client  *redis.Client
	channel string
}

func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

var _ notification.Dispatcher = (*Publisher)(nil)

// Dispatch publishes the events in order through a single pipeline round trip
func (p *Publisher) Dispatch(ctx context.Context, events []notification.Event) error {
	if len(events) == 0 {
		return nil
	}
	pipe := p.client.Pipeline()
	for _, e := range events {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("redis publisher: marshal %s event: %w", e.Kind, err)
		}
		pipe.Publish(ctx, p.channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publisher: publish to %s: %w", p.channel, err)
	}
	return nil
}
