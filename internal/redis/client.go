package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"

	"go-handshake/internal/models"
)

const (
	channelPrefix = "channel:"
	// UserChannel carries events that are not tied to one room.
	UserChannel = "user"
)

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Client mirrors channel events onto Redis pub/sub so other local processes can follow
// the session.
type Client struct {
	rdb *redis.Client
	pub publisher
	ctx context.Context
}

func NewClient(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}

	rdb := redis.NewClient(opt)
	ctx := context.Background()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	slog.Info("[REDIS] Connected", "addr", opt.Addr)

	return &Client{
		rdb: rdb,
		pub: rdb,
		ctx: ctx,
	}, nil
}

func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func (c *Client) PublishMessageReceived(msg models.ChatMessage) error {
	return c.publishEvent(roomChannel(msg.RoomID), models.EventMessageReceived, msg)
}

func (c *Client) PublishRoomUpdated(update models.RoomUpdate) error {
	return c.publishEvent(roomChannel(update.ChatRoomID), models.EventRoomUpdated, update)
}

func (c *Client) PublishNotification(n models.Notification) error {
	return c.publishEvent(UserChannel, models.EventNotification, n)
}

func (c *Client) PublishBadgeCount(b models.BadgeCount) error {
	return c.publishEvent(UserChannel, models.EventBadgeCount, b)
}

func (c *Client) PublishSignal(sig *models.ChannelError) error {
	return c.publishEvent(UserChannel, models.EventSignal, models.SignalData{
		Kind:    string(sig.Kind),
		Code:    sig.Code,
		Message: sig.Message,
	})
}

func (c *Client) PublishStatus(status string, cause error) error {
	data := models.StatusData{Status: status}
	if cause != nil {
		data.Error = cause.Error()
	}
	return c.publishEvent(UserChannel, models.EventStatusChanged, data)
}

func (c *Client) publishEvent(channelId, eventType string, data any) error {
	event := models.Event{
		Type:      eventType,
		ChannelId: channelId,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("[REDIS] Failed to marshal event", "type", event.Type, "channel", channelId, "error", err)
		return err
	}

	channel := channelPrefix + channelId
	if err := c.pub.Publish(c.ctx, channel, payload).Err(); err != nil {
		slog.Error("[REDIS] Failed to publish event", "type", event.Type, "channel", channel, "error", err)
		return err
	}

	return nil
}

func roomChannel(roomID int64) string {
	return strconv.FormatInt(roomID, 10)
}
