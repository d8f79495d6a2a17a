package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-handshake/internal/models"
)

type published struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.sent = append(f.sent, published{channel: channel, payload: message.([]byte)})
	return redis.NewIntResult(1, f.err)
}

func newTestClient() (*Client, *fakePublisher) {
	pub := &fakePublisher{}
	return &Client{pub: pub, ctx: context.Background()}, pub
}

func decodeSent(t *testing.T, p published) models.Event {
	t.Helper()
	var ev models.Event
	require.NoError(t, json.Unmarshal(p.payload, &ev))
	return ev
}

func TestPublishMessageReceived(t *testing.T) {
	c, pub := newTestClient()

	require.NoError(t, c.PublishMessageReceived(models.ChatMessage{ID: "m1", RoomID: 12, Content: "hi"}))

	require.Len(t, pub.sent, 1)
	assert.Equal(t, "channel:12", pub.sent[0].channel)
	ev := decodeSent(t, pub.sent[0])
	assert.Equal(t, models.EventMessageReceived, ev.Type)
	assert.Equal(t, "12", ev.ChannelId)
	assert.NotZero(t, ev.Timestamp)
	assert.Equal(t, "hi", ev.Data.(map[string]any)["content"])
}

func TestPublishUserScopedEvents(t *testing.T) {
	c, pub := newTestClient()

	require.NoError(t, c.PublishNotification(models.Notification{NotificationID: 3}))
	require.NoError(t, c.PublishBadgeCount(models.BadgeCount{ChatUnreadCount: 2}))
	require.NoError(t, c.PublishSignal(&models.ChannelError{Kind: models.KindCounterpartLeft, Code: models.CodePartnerExited}))
	require.NoError(t, c.PublishStatus("ERROR", errors.New("reset by peer")))

	var types []string
	for _, p := range pub.sent {
		assert.Equal(t, "channel:"+UserChannel, p.channel)
		types = append(types, decodeSent(t, p).Type)
	}
	assert.Equal(t, []string{
		models.EventNotification,
		models.EventBadgeCount,
		models.EventSignal,
		models.EventStatusChanged,
	}, types)

	status := decodeSent(t, pub.sent[3]).Data.(map[string]any)
	assert.Equal(t, "reset by peer", status["error"])
}

func TestPublishRoomUpdated(t *testing.T) {
	c, pub := newTestClient()

	require.NoError(t, c.PublishRoomUpdated(models.RoomUpdate{ChatRoomID: 4, UnreadCount: 1}))

	assert.Equal(t, "channel:4", pub.sent[0].channel)
	assert.Equal(t, models.EventRoomUpdated, decodeSent(t, pub.sent[0]).Type)
}

func TestPublishError(t *testing.T) {
	c, pub := newTestClient()
	pub.err = errors.New("connection refused")

	assert.Error(t, c.PublishStatus("CONNECTED", nil))
}

func TestDispatch(t *testing.T) {
	var got []models.Event
	collect := func(ev models.Event) { got = append(got, ev) }

	assert.True(t, dispatch("channel:1", `{"type":"message:received","channelId":"1","timestamp":5,"data":{}}`, collect))
	assert.False(t, dispatch("channel:1", `{not json`, collect))

	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ChannelId)
	assert.Equal(t, int64(5), got[0].Timestamp)
}

func TestTailWithoutConnection(t *testing.T) {
	c, _ := newTestClient()
	assert.Error(t, c.Tail(context.Background(), func(models.Event) {}))
	assert.NoError(t, c.Close())
}
