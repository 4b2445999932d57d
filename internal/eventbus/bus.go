// Package eventbus implements the job event bus (C9): a Redis Pub/Sub
// channel per job id, backing the server-push stream clients subscribe to.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Bus publishes and subscribes to per-job event channels.
type Bus struct {
	client *redis.Client
}

func New(client *redis.Client) *Bus {
	return &Bus{client: client}
}

func channelName(jobID uuid.UUID) string {
	return fmt.Sprintf("ai:job-events:%s", jobID)
}

// Publish serializes event and publishes it on the job's channel. Publish
// failures are the caller's to handle — unlike the structured-input cache,
// a dropped event here means a client never learns a job finished, so
// workers log and move on rather than silently swallowing it.
func (b *Bus) Publish(ctx context.Context, jobID uuid.UUID, event any) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.client.Publish(ctx, channelName(jobID), raw).Err()
}

// Subscription wraps a Redis Pub/Sub subscription for one job's channel.
type Subscription struct {
	pubsub *redis.PubSub
}

// Subscribe opens a subscription to a job's event channel. Callers must
// call Close when done, typically via defer immediately after Subscribe
// returns successfully.
func (b *Bus) Subscribe(ctx context.Context, jobID uuid.UUID) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, channelName(jobID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe to job channel: %w", err)
	}
	return &Subscription{pubsub: ps}, nil
}

// Channel returns the receive-only channel of raw published payloads.
func (s *Subscription) Channel() <-chan *redis.Message {
	return s.pubsub.Channel()
}

// Close unsubscribes and releases the underlying connection. Safe to call
// more than once.
func (s *Subscription) Close() error {
	return s.pubsub.Close()
}
