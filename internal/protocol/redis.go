/**
 * Redis pub/sub transport
 *
 * Production transport between the page and agent contexts. Channels map to
 * Redis pub/sub channels; PUBLISH's receiver count gives the no-listener
 * signal the protocol needs for TRANSPORT failures.
 */

package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/extractext/extractext/internal/logging"
)

const defaultConnectTimeout = 5 * time.Second

// RedisTransport implements Transport over a shared Redis instance.
type RedisTransport struct {
	client *redis.Client
	log    *logging.Logger
}

// NewRedisTransport connects to Redis and verifies the connection.
func NewRedisTransport(redisURL string) (*RedisTransport, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisTransport{
		client: client,
		log:    logging.NewLogger("transport:redis"),
	}, nil
}

// Publish sends one frame; zero receivers is a no-listener failure.
func (t *RedisTransport) Publish(ctx context.Context, channel string, data []byte) error {
	receivers, err := t.client.Publish(ctx, channel, data).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	if receivers == 0 {
		return fmt.Errorf("%w: %s", ErrNoListener, channel)
	}
	return nil
}

// Subscribe attaches a callback to the channel. Frames are delivered in order
// from the subscription's receive loop.
func (t *RedisTransport) Subscribe(ctx context.Context, channel string, fn func(data []byte)) (func(), error) {
	sub := t.client.Subscribe(ctx, channel)

	// Force the subscription onto the wire before returning, so a Publish
	// issued right after Subscribe sees the listener.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", channel, err)
	}

	go func() {
		for msg := range sub.Channel() {
			fn([]byte(msg.Payload))
		}
	}()

	unsubscribe := func() {
		if err := sub.Close(); err != nil {
			t.log.Warn("failed to close subscription", "channel", channel, "error", err)
		}
	}
	return unsubscribe, nil
}

// Close releases the underlying Redis client.
func (t *RedisTransport) Close() error {
	return t.client.Close()
}
