package invalidation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/goliatone/go-catalog-cache/repositoryevents"
)

// DefaultChannel is the Redis channel used when none is configured.
const DefaultChannel = "catalog:invalidation"

// RedisClient is the part of a go-redis client the broadcaster uses.
// *redis.Client and redis.UniversalClient satisfy it.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// RedisBroadcaster republishes local change events on a Redis channel and
// applies events published by other processes to the local invalidator.
type RedisBroadcaster struct {
	client  RedisClient
	channel string
	origin  string
	target  *Invalidator
	logger  *zap.Logger
}

// NewRedisBroadcaster builds a broadcaster and registers it as the forwarder of
// target. Every instance gets a random origin so it can skip its own messages.
func NewRedisBroadcaster(client RedisClient, channel string, target *Invalidator, logger *zap.Logger) *RedisBroadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &RedisBroadcaster{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		target:  target,
		logger:  logger.Named("broadcast").With(zap.String("channel", channel)),
	}
	target.SetForwarder(b)
	return b
}

// Origin identifies this process in published messages.
func (b *RedisBroadcaster) Origin() string {
	return b.origin
}

// Forward publishes event stamped with this origin.
func (b *RedisBroadcaster) Forward(ctx context.Context, event repositoryevents.Event) error {
	event.Origin = b.origin
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Receive decodes one channel message and applies it unless it came from this
// process.
func (b *RedisBroadcaster) Receive(ctx context.Context, payload string) error {
	var event repositoryevents.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if event.Origin == b.origin {
		return nil
	}
	return b.target.Apply(ctx, event)
}

// Listen consumes the channel until ctx is done. Bad messages are logged and
// skipped.
func (b *RedisBroadcaster) Listen(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := b.Receive(ctx, msg.Payload); err != nil {
				b.logger.Warn("remote event dropped", zap.Error(err))
			}
		}
	}
}
