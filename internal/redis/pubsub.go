package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"

	"go-handshake/internal/models"
)

// Tail follows every mirrored channel and hands decoded events to fn until ctx is done.
func (c *Client) Tail(ctx context.Context, fn func(models.Event)) error {
	if c.rdb == nil {
		return errors.New("redis: client has no connection")
	}

	slog.Info("[REDIS] Starting Redis pub/sub subscription...")

	pubsub := c.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis: subscribe: %w", err)
	}

	slog.Info("[REDIS] Subscription confirmed, listening for messages...", "pattern", channelPrefix+"*")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				slog.Info("[REDIS] Redis pub/sub channel closed")
				return nil
			}
			dispatch(msg.Channel, msg.Payload, fn)
		}
	}
}

func dispatch(channel, payload string, fn func(models.Event)) bool {
	var event models.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		slog.Error("[REDIS] Error unmarshaling event", "channel", channel, "error", err, "payload", payload)
		return false
	}
	fn(event)
	return true
}
