package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-handshake/internal/models"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

type recorder struct {
	connects    atomic.Int32
	disconnects atomic.Int32

	mu       sync.Mutex
	errors   []*models.ChannelError
	statuses []Status
}

func (r *recorder) listeners() Listeners {
	return Listeners{
		OnConnect:    func() { r.connects.Add(1) },
		OnDisconnect: func() { r.disconnects.Add(1) },
		OnError: func(err *models.ChannelError) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errors = append(r.errors, err)
		},
		OnStatus: func(s Status) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.statuses = append(r.statuses, s)
		},
	}
}

func (r *recorder) errorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

func newConnectedClient(t *testing.T, b *fakeBroker) (*Client, *recorder) {
	t.Helper()
	c := NewClient(Config{URL: b.URL(), Token: "token", MaxErrors: 5})
	rec := &recorder{}
	c.SetListeners(rec.listeners())
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(c.Disconnect)
	return c, rec
}

func TestConnect(t *testing.T) {
	b := newFakeBroker(t)
	c, rec := newConnectedClient(t, b)

	assert.Equal(t, StatusConnected, c.Status())
	assert.EqualValues(t, 1, rec.connects.Load())
	assert.Equal(t, []Status{StatusConnecting, StatusConnected}, rec.statuses)

	connects := b.received(frame.CONNECT)
	require.Len(t, connects, 1)
	assert.Equal(t, "Bearer token", connects[0].Header.Get(headerAuthorization))
}

func TestConnectWhileConnectedIsNoOp(t *testing.T) {
	b := newFakeBroker(t)
	c, rec := newConnectedClient(t, b)

	require.NoError(t, c.Connect(context.Background()))

	assert.EqualValues(t, 1, rec.connects.Load())
	assert.Len(t, b.received(frame.CONNECT), 1)
}

func TestConnectWhileConnectingIsNoOp(t *testing.T) {
	b := newFakeBroker(t)
	hold := make(chan struct{})
	b.holdConnected = hold
	c := NewClient(Config{URL: b.URL(), Token: "token"})
	rec := &recorder{}
	c.SetListeners(rec.listeners())
	t.Cleanup(c.Disconnect)

	first := make(chan error, 1)
	go func() { first <- c.Connect(context.Background()) }()
	require.Eventually(t, func() bool { return len(b.received(frame.CONNECT)) == 1 }, waitFor, tick)
	assert.Equal(t, StatusConnecting, c.Status())

	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, StatusConnecting, c.Status())

	close(hold)
	require.NoError(t, <-first)
	assert.Equal(t, StatusConnected, c.Status())
	assert.EqualValues(t, 1, rec.connects.Load())
	assert.Len(t, b.received(frame.CONNECT), 1)
}

func TestPublish(t *testing.T) {
	b := newFakeBroker(t)
	c, _ := newConnectedClient(t, b)

	require.NoError(t, c.Publish("/pub/chat/7/send", models.SendPayload{Content: "hello"}))

	require.Eventually(t, func() bool { return len(b.received(frame.SEND)) == 1 }, waitFor, tick)
	sent := b.received(frame.SEND)[0]
	assert.Equal(t, "/pub/chat/7/send", sent.Header.Get(frame.Destination))
	assert.JSONEq(t, `{"content":"hello"}`, string(sent.Body))
}

func TestPublishWhenDisconnected(t *testing.T) {
	c := NewClient(Config{URL: "ws://127.0.0.1:1/ws"})

	err := c.Publish("/pub/chat/enter", models.RoomRef{ChatRoomID: 1})

	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSubscribeDeliversMessages(t *testing.T) {
	b := newFakeBroker(t)
	c, _ := newConnectedClient(t, b)

	got := make(chan string, 1)
	sub, err := c.Subscribe("/user/queue/chat/7", func(body []byte) { got <- string(body) })
	require.NoError(t, err)
	assert.Equal(t, "/user/queue/chat/7", sub.Destination())
	assert.True(t, c.IsSubscribed("/user/queue/chat/7"))

	require.Eventually(t, func() bool { return len(b.received(frame.SUBSCRIBE)) == 1 }, waitFor, tick)
	b.push("/user/queue/chat/7", `{"isMine":false}`)

	select {
	case body := <-got:
		assert.Equal(t, `{"isMine":false}`, body)
	case <-time.After(waitFor):
		t.Fatal("message not delivered")
	}
}

func TestResubscribeReplacesHandler(t *testing.T) {
	b := newFakeBroker(t)
	c, _ := newConnectedClient(t, b)

	var first, second atomic.Int32
	_, err := c.Subscribe("/user/queue/errors", func([]byte) { first.Add(1) })
	require.NoError(t, err)
	_, err = c.Subscribe("/user/queue/errors", func([]byte) { second.Add(1) })
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(b.received(frame.SUBSCRIBE)) == 2 && len(b.received(frame.UNSUBSCRIBE)) == 1
	}, waitFor, tick)
	subs := b.received(frame.SUBSCRIBE)
	assert.Equal(t, subs[0].Header.Get(frame.Id), b.received(frame.UNSUBSCRIBE)[0].Header.Get(frame.Id))

	b.push("/user/queue/errors", `{}`)

	require.Eventually(t, func() bool { return second.Load() == 1 }, waitFor, tick)
	assert.Zero(t, first.Load())
}

func TestStaleHandleDoesNotRemoveReplacement(t *testing.T) {
	b := newFakeBroker(t)
	c, _ := newConnectedClient(t, b)

	old, err := c.Subscribe("/user/queue/notification", func([]byte) {})
	require.NoError(t, err)
	_, err = c.Subscribe("/user/queue/notification", func([]byte) {})
	require.NoError(t, err)

	old.Unsubscribe()

	assert.True(t, c.IsSubscribed("/user/queue/notification"))
}

func TestUnsubscribeUnknownIsNoOp(t *testing.T) {
	b := newFakeBroker(t)
	c, _ := newConnectedClient(t, b)

	c.Unsubscribe("/user/queue/chat/404")
	Subscription{}.Unsubscribe()

	assert.Empty(t, b.received(frame.UNSUBSCRIBE))
	assert.Equal(t, StatusConnected, c.Status())
}

func TestDisconnectIsIdempotent(t *testing.T) {
	b := newFakeBroker(t)
	c, rec := newConnectedClient(t, b)
	_, err := c.Subscribe("/user/queue/chat-list/update", func([]byte) {})
	require.NoError(t, err)

	c.Disconnect()
	c.Disconnect()

	assert.Equal(t, StatusDisconnected, c.Status())
	assert.EqualValues(t, 1, rec.disconnects.Load())
	assert.False(t, c.IsSubscribed("/user/queue/chat-list/update"))
	require.Eventually(t, func() bool { return len(b.received(frame.DISCONNECT)) == 1 }, waitFor, tick)

	_, err = c.Subscribe("/user/queue/chat-list/update", func([]byte) {})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestErrorFrameReportsTransportError(t *testing.T) {
	b := newFakeBroker(t)
	c, rec := newConnectedClient(t, b)

	b.pushError("session expired")

	require.Eventually(t, func() bool { return rec.errorCount() == 1 }, waitFor, tick)
	assert.Equal(t, StatusError, c.Status())
	assert.Equal(t, models.KindTransport, rec.errors[0].Kind)
	assert.Contains(t, rec.errors[0].Error(), "session expired")

	// the embedding shell may connect again after an error
	require.NoError(t, c.Connect(context.Background()))
	assert.Equal(t, StatusConnected, c.Status())
}

func TestConnectRejected(t *testing.T) {
	b := newFakeBroker(t)
	b.rejectConnect = true
	c := NewClient(Config{URL: b.URL(), MaxErrors: 5})
	rec := &recorder{}
	c.SetListeners(rec.listeners())

	err := c.Connect(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")
	assert.Equal(t, StatusError, c.Status())
	assert.Equal(t, 1, rec.errorCount())
	assert.Zero(t, rec.connects.Load())
}

func TestForcedDisconnectAfterMaxErrors(t *testing.T) {
	b := newFakeBroker(t)
	b.rejectConnect = true
	c := NewClient(Config{URL: b.URL(), MaxErrors: 2})
	rec := &recorder{}
	c.SetListeners(rec.listeners())

	require.Error(t, c.Connect(context.Background()))
	assert.Equal(t, StatusError, c.Status())
	require.Error(t, c.Connect(context.Background()))

	assert.Equal(t, StatusDisconnected, c.Status())
	assert.Equal(t, 2, rec.errorCount())
	assert.EqualValues(t, 1, rec.disconnects.Load())
}

func TestServerDropReportsError(t *testing.T) {
	b := newFakeBroker(t)
	c, rec := newConnectedClient(t, b)
	_, err := c.Subscribe("/user/queue/chat/1", func([]byte) {})
	require.NoError(t, err)

	b.dropAll()

	require.Eventually(t, func() bool { return c.Status() == StatusError }, waitFor, tick)
	assert.Equal(t, 1, rec.errorCount())
	assert.False(t, c.IsSubscribed("/user/queue/chat/1"))
}

func TestCleanCloseByServer(t *testing.T) {
	b := newFakeBroker(t)
	c, rec := newConnectedClient(t, b)

	b.closeNormally()

	require.Eventually(t, func() bool { return c.Status() == StatusDisconnected }, waitFor, tick)
	assert.EqualValues(t, 1, rec.disconnects.Load())
	assert.Zero(t, rec.errorCount())
}

func TestHandlerPanicIsRecovered(t *testing.T) {
	b := newFakeBroker(t)
	c, _ := newConnectedClient(t, b)

	var calls atomic.Int32
	_, err := c.Subscribe("/user/queue/chat/3", func([]byte) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return b.subscriptionID("/user/queue/chat/3") != "" }, waitFor, tick)

	b.push("/user/queue/chat/3", `{}`)
	b.push("/user/queue/chat/3", `{}`)

	require.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, tick)
	assert.Equal(t, StatusConnected, c.Status())
}

func TestNegotiateHeartBeat(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		out, in time.Duration
	}{
		{"both sides", "5000,20000", 20 * time.Second, 10 * time.Second},
		{"server disables", "0,0", 0, 0},
		{"server sends only", "15000,0", 0, 15 * time.Second},
		{"malformed", "fast", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, in := negotiateHeartBeat(tt.header, 10*time.Second, 10*time.Second)
			assert.Equal(t, tt.out, out)
			assert.Equal(t, tt.in, in)
		})
	}
}

func TestDecodeFrameHeartBeat(t *testing.T) {
	f, err := decodeFrame([]byte("\n"))

	require.NoError(t, err)
	assert.Nil(t, f)
}
