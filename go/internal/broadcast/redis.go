package broadcast

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisTransport carries channels over Redis PUBLISH/SUBSCRIBE.
type RedisTransport struct {
	client *redis.Client
	prefix string
}

// NewRedisTransport uses client for both publishing and subscribing. The client
// is owned by the caller.
func NewRedisTransport(client *redis.Client, prefix string) *RedisTransport {
	return &RedisTransport{client: client, prefix: prefix}
}

func (t *RedisTransport) channel(name string) string {
	if t.prefix == "" {
		return name
	}
	return t.prefix + ":" + name
}

// Open subscribes a new handle and waits for Redis to confirm the subscription.
func (t *RedisTransport) Open(ctx context.Context, name string) (Channel, error) {
	c := &redisChannel{handle: newHandle(name), client: t.client, channel: t.channel(name)}

	ps := t.client.Subscribe(ctx, c.channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", c.channel, err)
	}
	c.pubsub = ps
	c.stopped = make(chan struct{})

	go c.receive()

	log.Debug().Str("redis_channel", c.channel).Str("handle_id", c.id).Msg("redis handle opened")
	return c, nil
}

// Close is a no-op; the caller owns the client.
func (t *RedisTransport) Close() error {
	return nil
}

type redisChannel struct {
	*handle
	client  *redis.Client
	channel string
	pubsub  *redis.PubSub
	stopped chan struct{}
}

func (c *redisChannel) receive() {
	defer close(c.stopped)
	for m := range c.pubsub.Channel() {
		c.dispatch([]byte(m.Payload))
	}
}

func (c *redisChannel) Publish(ctx context.Context, msg Message) error {
	data, err := c.encode(msg)
	if err != nil {
		return err
	}
	if err := c.client.Publish(ctx, c.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Type(), err)
	}
	return nil
}

func (c *redisChannel) Close() error {
	c.closeAll()
	err := c.pubsub.Close()
	<-c.stopped
	if err != nil {
		return fmt.Errorf("close subscription %s: %w", c.channel, err)
	}
	return nil
}
