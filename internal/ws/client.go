package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"go-handshake/internal/models"
	"go-handshake/internal/observability"
)

const (
	// Time allowed to write a frame
	writeWait = 10 * time.Second

	// Max inbound frame size
	maxMessageSize = 512 * 1024 // 512 KB

	// Outbound frames buffered per connection
	sendBufferSize = 256
)

type Status string

const (
	StatusConnecting   Status = "CONNECTING"
	StatusConnected    Status = "CONNECTED"
	StatusDisconnected Status = "DISCONNECTED"
	StatusError        Status = "ERROR"
)

var (
	ErrNotConnected   = errors.New("ws: not connected")
	ErrSendBufferFull = errors.New("ws: send buffer full")
	errConnectAborted = errors.New("ws: connect aborted by disconnect")
)

type Config struct {
	URL   string
	Token string
	// Host sent in the CONNECT frame; defaults to the URL host
	Host              string
	HeartbeatIncoming time.Duration
	HeartbeatOutgoing time.Duration
	ConnectTimeout    time.Duration
	// Consecutive error events tolerated before a forced Disconnect, 0 for unbounded
	MaxErrors int
}

// Listeners is the single lifecycle slot of a Client. Setting it replaces the previous set.
type Listeners struct {
	OnConnect    func()
	OnDisconnect func()
	OnError      func(*models.ChannelError)
	OnStatus     func(Status)
}

// Handler receives the body of each MESSAGE frame delivered on a destination.
type Handler func(body []byte)

type subscription struct {
	id      string
	handler Handler
}

// session is one live socket; a new one is created on every successful connect.
type session struct {
	conn   *websocket.Conn
	send   chan []byte
	closed bool
}

// Client owns one STOMP-over-WebSocket connection and its subscriptions.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer

	mu        sync.Mutex
	status    Status
	sess      *session
	subs      map[string]*subscription // destination -> subscription
	byID      map[string]string        // subscription id -> destination
	listeners Listeners
	errCount  int
}

func NewClient(cfg Config) *Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.ConnectTimeout,
		},
		status: StatusDisconnected,
		subs:   make(map[string]*subscription),
		byID:   make(map[string]string),
	}
}

func (c *Client) SetListeners(l Listeners) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = l
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Client) Connected() bool {
	return c.Status() == StatusConnected
}

// Connect dials and completes the STOMP handshake. It returns nil immediately when a
// connection is already established or in progress.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.status == StatusConnecting || c.status == StatusConnected {
		c.mu.Unlock()
		return nil
	}
	c.status = StatusConnecting
	l := c.listeners
	c.mu.Unlock()
	c.emitStatus(l, StatusConnecting)

	slog.Info("[WS] Connecting", "url", c.cfg.URL)
	conn, out, in, err := c.handshake(ctx)
	if err != nil {
		c.fail(nil, err)
		return err
	}

	c.mu.Lock()
	if c.status != StatusConnecting {
		c.mu.Unlock()
		conn.Close()
		return errConnectAborted
	}
	sess := &session{conn: conn, send: make(chan []byte, sendBufferSize)}
	c.sess = sess
	c.status = StatusConnected
	c.errCount = 0
	l = c.listeners
	c.mu.Unlock()

	go c.writePump(sess, out)
	go c.readPump(sess, in)

	slog.Info("[WS] Connected", "url", c.cfg.URL, "heartbeatOut", out, "heartbeatIn", in)
	c.emitStatus(l, StatusConnected)
	if l.OnConnect != nil {
		l.OnConnect()
	}
	return nil
}

// Disconnect drops every subscription and closes the connection. Calling it while
// already disconnected does nothing.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.status == StatusDisconnected {
		c.mu.Unlock()
		return
	}
	c.dropSessionLocked(true)
	c.status = StatusDisconnected
	c.errCount = 0
	l := c.listeners
	c.mu.Unlock()

	slog.Info("[WS] Disconnected", "url", c.cfg.URL)
	c.emitStatus(l, StatusDisconnected)
	if l.OnDisconnect != nil {
		l.OnDisconnect()
	}
}

// Publish sends payload as JSON to destination.
func (c *Client) Publish(destination string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ws: encode payload for %s: %w", destination, err)
	}
	data, err := encodeFrame(sendFrame(destination, body))
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusConnected {
		return ErrNotConnected
	}
	return c.enqueueLocked(data)
}

// Subscribe registers handler for destination. An existing subscription on the same
// destination is replaced.
func (c *Client) Subscribe(destination string, handler Handler) (Subscription, error) {
	id := uuid.NewString()
	data, err := encodeFrame(subscribeFrame(id, destination))
	if err != nil {
		return Subscription{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusConnected {
		return Subscription{}, ErrNotConnected
	}
	if old, ok := c.subs[destination]; ok {
		slog.Warn("[WS] Replacing existing subscription", "destination", destination, "id", old.id)
		c.removeLocked(destination, old)
	}
	if err := c.enqueueLocked(data); err != nil {
		return Subscription{}, err
	}
	c.subs[destination] = &subscription{id: id, handler: handler}
	c.byID[id] = destination

	slog.Debug("[WS] Subscribed", "destination", destination, "id", id)
	return Subscription{client: c, destination: destination, id: id}, nil
}

// Unsubscribe is a no-op for destinations without an active subscription.
func (c *Client) Unsubscribe(destination string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub, ok := c.subs[destination]; ok {
		c.removeLocked(destination, sub)
	}
}

func (c *Client) IsSubscribed(destination string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.subs[destination]
	return ok && c.status == StatusConnected
}

func (c *Client) handshake(ctx context.Context) (*websocket.Conn, time.Duration, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set(headerAuthorization, "Bearer "+c.cfg.Token)
	}
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("ws: dial %s: %w", c.cfg.URL, err)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	host := c.cfg.Host
	if host == "" {
		if u, err := url.Parse(c.cfg.URL); err == nil {
			host = u.Hostname()
		}
	}
	data, err := encodeFrame(connectFrame(host, c.cfg.Token, c.cfg.HeartbeatOutgoing, c.cfg.HeartbeatIncoming))
	if err != nil {
		conn.Close()
		return nil, 0, 0, err
	}

	deadline, _ := ctx.Deadline()
	conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		conn.Close()
		return nil, 0, 0, fmt.Errorf("ws: send CONNECT: %w", err)
	}

	conn.SetReadDeadline(deadline)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			return nil, 0, 0, fmt.Errorf("ws: await CONNECTED: %w", err)
		}
		f, err := decodeFrame(msg)
		if err != nil {
			conn.Close()
			return nil, 0, 0, fmt.Errorf("ws: decode handshake frame: %w", err)
		}
		if f == nil {
			continue
		}

		switch f.Command {
		case frame.CONNECTED:
			conn.SetReadDeadline(time.Time{})
			conn.SetWriteDeadline(time.Time{})
			out, in := negotiateHeartBeat(f.Header.Get(frame.HeartBeat), c.cfg.HeartbeatOutgoing, c.cfg.HeartbeatIncoming)
			return conn, out, in, nil
		case frame.ERROR:
			conn.Close()
			return nil, 0, 0, fmt.Errorf("ws: connect rejected: %s", f.Header.Get(frame.Message))
		default:
			slog.Warn("[WS] Unexpected frame during handshake", "command", f.Command)
		}
	}
}

// readPump pumps frames from the socket to subscription handlers
func (c *Client) readPump(sess *session, heartbeat time.Duration) {
	conn := sess.conn
	conn.SetReadLimit(maxMessageSize)
	extend := func() {
		if heartbeat > 0 {
			conn.SetReadDeadline(time.Now().Add(2 * heartbeat))
		}
	}
	extend()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleReadError(sess, err)
			return
		}
		extend()

		f, err := decodeFrame(data)
		if err != nil {
			slog.Warn("[WS] Dropping malformed frame", "error", err)
			observability.IncDroppedFrame("malformed")
			continue
		}
		if f == nil {
			continue
		}

		switch f.Command {
		case frame.MESSAGE:
			c.dispatch(f)
		case frame.ERROR:
			c.fail(sess, fmt.Errorf("stomp error: %s %s", f.Header.Get(frame.Message), f.Body))
			return
		case frame.RECEIPT:
			slog.Debug("[WS] Receipt", "id", f.Header.Get(frame.ReceiptId))
		default:
			slog.Warn("[WS] Unknown frame command", "command", f.Command)
		}
	}
}

// writePump pumps queued frames and heart-beats to the socket
func (c *Client) writePump(sess *session, heartbeat time.Duration) {
	var tick <-chan time.Time
	if heartbeat > 0 {
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer sess.conn.Close()

	for {
		select {
		case message, ok := <-sess.send:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sess.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := sess.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.fail(sess, fmt.Errorf("ws: write frame: %w", err))
				return
			}

		case <-tick:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.TextMessage, []byte("\n")); err != nil {
				c.fail(sess, fmt.Errorf("ws: write heart-beat: %w", err))
				return
			}
		}
	}
}

func (c *Client) dispatch(f *frame.Frame) {
	id := f.Header.Get(frame.Subscription)

	c.mu.Lock()
	var handler Handler
	destination, ok := c.byID[id]
	if ok {
		handler = c.subs[destination].handler
	}
	c.mu.Unlock()

	if handler == nil {
		slog.Debug("[WS] Frame for inactive subscription", "subscription", id, "destination", f.Header.Get(frame.Destination))
		observability.IncDroppedFrame("unsubscribed")
		return
	}
	c.invoke(destination, handler, f.Body)
}

func (c *Client) invoke(destination string, handler Handler, body []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[WS] Handler panicked", "destination", destination, "panic", r)
			observability.IncDroppedFrame("handler_panic")
		}
	}()
	handler(body)
}

func (c *Client) handleReadError(sess *session, err error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.closedByPeer(sess)
		return
	}
	c.fail(sess, fmt.Errorf("ws: read: %w", err))
}

func (c *Client) closedByPeer(sess *session) {
	c.mu.Lock()
	if c.sess != sess {
		c.mu.Unlock()
		return
	}
	c.dropSessionLocked(false)
	c.status = StatusDisconnected
	c.errCount = 0
	l := c.listeners
	c.mu.Unlock()

	slog.Info("[WS] Connection closed by server", "url", c.cfg.URL)
	c.emitStatus(l, StatusDisconnected)
	if l.OnDisconnect != nil {
		l.OnDisconnect()
	}
}

// fail records one error event. sess is nil for a failed connect attempt; events from a
// session that is no longer current are ignored.
func (c *Client) fail(sess *session, err error) {
	c.mu.Lock()
	if (sess == nil && c.status != StatusConnecting) || (sess != nil && c.sess != sess) {
		c.mu.Unlock()
		return
	}
	if sess != nil {
		c.dropSessionLocked(false)
	}
	c.status = StatusError
	c.errCount++
	count := c.errCount
	forced := c.cfg.MaxErrors > 0 && count >= c.cfg.MaxErrors
	l := c.listeners
	c.mu.Unlock()

	slog.Error("[WS] Transport error", "error", err, "consecutive", count)
	c.emitStatus(l, StatusError)
	if l.OnError != nil {
		l.OnError(models.TransportError(err))
	}
	if forced {
		slog.Warn("[WS] Too many consecutive errors, forcing disconnect", "count", count)
		c.Disconnect()
	}
}

// dropSessionLocked forgets all subscriptions and shuts the current socket. A graceful
// drop sends DISCONNECT and lets the write pump close the socket after flushing.
func (c *Client) dropSessionLocked(graceful bool) {
	sess := c.sess
	c.sess = nil
	clear(c.subs)
	clear(c.byID)
	if sess == nil || sess.closed {
		return
	}
	sess.closed = true

	if graceful {
		if data, err := encodeFrame(frame.New(frame.DISCONNECT)); err == nil {
			select {
			case sess.send <- data:
			default:
			}
		}
		close(sess.send)
		return
	}
	close(sess.send)
	sess.conn.Close()
}

func (c *Client) removeLocked(destination string, sub *subscription) {
	delete(c.subs, destination)
	delete(c.byID, sub.id)

	data, err := encodeFrame(unsubscribeFrame(sub.id))
	if err != nil {
		return
	}
	if err := c.enqueueLocked(data); err != nil && !errors.Is(err, ErrNotConnected) {
		slog.Warn("[WS] Failed to queue UNSUBSCRIBE", "destination", destination, "error", err)
	}
}

func (c *Client) enqueueLocked(data []byte) error {
	if c.sess == nil || c.sess.closed {
		return ErrNotConnected
	}
	select {
	case c.sess.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) emitStatus(l Listeners, s Status) {
	observability.SetConnectionStatus(string(s))
	if l.OnStatus != nil {
		l.OnStatus(s)
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	client      *Client
	destination string
	id          string
}

func (s Subscription) Destination() string {
	return s.destination
}

// Unsubscribe removes the subscription unless it has since been replaced.
func (s Subscription) Unsubscribe() {
	if s.client == nil {
		return
	}
	c := s.client
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub, ok := c.subs[s.destination]; ok && sub.id == s.id {
		c.removeLocked(s.destination, sub)
	}
}
