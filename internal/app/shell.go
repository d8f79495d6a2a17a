package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"go-handshake/internal/chat"
	"go-handshake/internal/models"
	"go-handshake/internal/observability"
	"go-handshake/internal/registry"
	"go-handshake/internal/signals"
	"go-handshake/internal/ws"
)

var errGaveUp = errors.New("app: transport disconnected, reconnect abandoned")

// Transport is the channel client the shell owns.
type Transport interface {
	registry.Transport
	chat.Channel
	Connect(ctx context.Context) error
	Status() ws.Status
	SetListeners(l ws.Listeners)
}

// Mirror receives a copy of every event the shell observes.
type Mirror interface {
	PublishMessageReceived(msg models.ChatMessage) error
	PublishRoomUpdated(update models.RoomUpdate) error
	PublishNotification(n models.Notification) error
	PublishBadgeCount(b models.BadgeCount) error
	PublishSignal(sig *models.ChannelError) error
	PublishStatus(status string, cause error) error
}

type Options struct {
	ReconcileInterval time.Duration
	ReconnectInitial  time.Duration
	ReconnectMax      time.Duration
	// ReconnectRetries bounds one reconnect loop, 0 for unbounded
	ReconnectRetries int
	// Mirror is optional
	Mirror Mirror
	// NewBackOff overrides the reconnect policy built from the fields above
	NewBackOff func() backoff.BackOff
}

type openRoom struct {
	session     *chat.Session
	unsubscribe func()
}

// Shell owns the transport lifecycle: it wires the transport to the registry and the
// signal bus, reconnects after transport errors and tears everything down on Close.
type Shell struct {
	transport Transport
	registry  *registry.Registry
	signals   *signals.Bus
	mirror    Mirror
	opts      Options

	mu           sync.Mutex
	ctx          context.Context
	cancel       context.CancelFunc
	started      bool
	closed       bool
	reconnecting bool
	rooms        map[int64]*openRoom
	roomChange   func(*chat.Session)
	unmirror     func()
	wg           sync.WaitGroup
}

func New(transport Transport, opts Options) *Shell {
	bus := signals.NewBus()
	if opts.Mirror == nil {
		opts.Mirror = noopMirror{}
	}
	s := &Shell{
		transport: transport,
		registry:  registry.New(transport, bus, opts.ReconcileInterval),
		signals:   bus,
		mirror:    opts.Mirror,
		opts:      opts,
		rooms:     make(map[int64]*openRoom),
	}
	s.unmirror = bus.Subscribe(func(sig *models.ChannelError) {
		_ = s.mirror.PublishSignal(sig)
	})
	return s
}

func (s *Shell) Registry() *registry.Registry {
	return s.registry
}

func (s *Shell) Signals() *signals.Bus {
	return s.signals
}

// OnRoomChange sets a callback run after every state change of a room opened later.
func (s *Shell) OnRoomChange(fn func(*chat.Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomChange = fn
}

// Start installs the transport listeners and connects. A failed first connect is
// returned and also starts the reconnect loop.
func (s *Shell) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx
	s.mu.Unlock()

	s.transport.SetListeners(ws.Listeners{
		OnConnect:    s.handleConnect,
		OnDisconnect: s.handleDisconnect,
		OnError:      s.handleError,
		OnStatus:     s.handleStatus,
	})

	return s.transport.Connect(runCtx)
}

func (s *Shell) handleConnect() {
	// subscriptions first, so the room queue is live before the server sees the enter
	s.registry.HandleConnect()
	for _, sess := range s.sessions() {
		sess.Reenter()
		sess.ConnectionRestored()
	}
}

func (s *Shell) handleDisconnect() {
	s.registry.HandleDisconnect()
}

func (s *Shell) handleError(err *models.ChannelError) {
	s.signals.PublishTransport(err)
	s.scheduleReconnect()
}

func (s *Shell) handleStatus(status ws.Status) {
	_ = s.mirror.PublishStatus(string(status), nil)
}

// scheduleReconnect starts the reconnect loop unless one is already running.
func (s *Shell) scheduleReconnect() {
	s.mu.Lock()
	if s.closed || !s.started || s.reconnecting {
		s.mu.Unlock()
		return
	}
	s.reconnecting = true
	ctx := s.ctx
	s.wg.Add(1)
	s.mu.Unlock()

	go s.reconnectLoop(ctx)
}

func (s *Shell) reconnectLoop(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.reconnecting = false
		s.mu.Unlock()
	}()

	attempt := 0
	op := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		switch s.transport.Status() {
		case ws.StatusConnected:
			return nil
		case ws.StatusDisconnected:
			// the transport gave up after too many errors, or was closed on purpose
			return backoff.Permanent(errGaveUp)
		}
		attempt++
		slog.Info("[SHELL] Reconnecting", "attempt", attempt)
		if err := s.transport.Connect(ctx); err != nil {
			observability.IncReconnect("failure")
			return err
		}
		observability.IncReconnect("success")
		return nil
	}

	b := backoff.WithContext(s.newBackOff(), ctx)
	err := backoff.RetryNotify(op, b, func(err error, next time.Duration) {
		slog.Warn("[SHELL] Reconnect attempt failed", "attempt", attempt, "error", err, "retryIn", next)
	})
	if err != nil {
		slog.Error("[SHELL] Reconnect stopped", "attempts", attempt, "error", err)
		return
	}
	slog.Info("[SHELL] Reconnected", "attempts", attempt)
}

func (s *Shell) newBackOff() backoff.BackOff {
	if s.opts.NewBackOff != nil {
		return s.opts.NewBackOff()
	}
	exp := backoff.NewExponentialBackOff()
	if s.opts.ReconnectInitial > 0 {
		exp.InitialInterval = s.opts.ReconnectInitial
	}
	if s.opts.ReconnectMax > 0 {
		exp.MaxInterval = s.opts.ReconnectMax
	}
	exp.MaxElapsedTime = 0
	exp.Reset()
	if s.opts.ReconnectRetries > 0 {
		return backoff.WithMaxRetries(exp, uint64(s.opts.ReconnectRetries))
	}
	return exp
}

// WatchRooms keeps list current from the room-list queue. Updates for rooms the list
// does not know trigger a refresh.
func (s *Shell) WatchRooms(ctx context.Context, list *chat.RoomList) {
	s.registry.SetRoomListHandler(func(u models.RoomUpdate) {
		if !list.Apply(u) {
			s.goRefresh(ctx, list)
		}
		_ = s.mirror.PublishRoomUpdated(u)
	})
}

func (s *Shell) goRefresh(ctx context.Context, list *chat.RoomList) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	go func() {
		defer s.wg.Done()
		_ = list.Refresh(ctx)
	}()
}

func (s *Shell) WatchNotifications(fn func(models.Notification)) {
	s.registry.SetNotificationHandler(func(n models.Notification) {
		if fn != nil {
			fn(n)
		}
		_ = s.mirror.PublishNotification(n)
	})
}

func (s *Shell) WatchBadgeCount(fn func(models.BadgeCount)) {
	s.registry.SetBadgeCountHandler(func(b models.BadgeCount) {
		if fn != nil {
			fn(b)
		}
		_ = s.mirror.PublishBadgeCount(b)
	})
}

// OpenRoom enters a room and routes signals to its session. list may be nil; when set,
// a departed counterpart also disables sending in the room list.
func (s *Shell) OpenRoom(ctx context.Context, roomID int64, history chat.History, list *chat.RoomList) *chat.Session {
	s.mu.Lock()
	if r, ok := s.rooms[roomID]; ok {
		s.mu.Unlock()
		return r.session
	}
	onChange := s.roomChange
	s.mu.Unlock()

	sess := chat.NewSession(roomID, s.transport, mirroredRooms{Registry: s.registry, mirror: s.mirror}, history)
	if onChange != nil {
		sess.OnChange(func() { onChange(sess) })
	}
	if list != nil {
		if room, ok := list.Room(roomID); ok {
			sess.SetCanSend(room.CanSendMessage)
		}
	}
	unsubscribe := s.signals.Subscribe(func(sig *models.ChannelError) {
		sess.HandleSignal(sig)
		if sig.Kind == models.KindCounterpartLeft && list != nil {
			list.DisableSend(roomID)
		}
	})

	s.mu.Lock()
	s.rooms[roomID] = &openRoom{session: sess, unsubscribe: unsubscribe}
	s.mu.Unlock()

	sess.Open(ctx)
	if list != nil {
		list.MarkRead(roomID)
	}
	return sess
}

// CloseRoom leaves a room opened with OpenRoom.
func (s *Shell) CloseRoom(roomID int64) {
	s.mu.Lock()
	r, ok := s.rooms[roomID]
	delete(s.rooms, roomID)
	s.mu.Unlock()
	if !ok {
		return
	}
	r.unsubscribe()
	r.session.Leave()
}

// Close leaves every room, clears all handlers and disconnects the transport. It waits
// for a running reconnect loop to stop.
func (s *Shell) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	ids := make([]int64, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.CloseRoom(id)
	}
	s.registry.Reset()
	s.wg.Wait()
	s.unmirror()
	slog.Info("[SHELL] Closed")
}

func (s *Shell) sessions() []*chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*chat.Session, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r.session)
	}
	return out
}

// mirroredRooms copies every live room message to the mirror before the session sees it.
type mirroredRooms struct {
	*registry.Registry
	mirror Mirror
}

func (m mirroredRooms) RegisterRoomHandler(roomID int64, handler func(models.ReceivedMessage)) {
	m.Registry.RegisterRoomHandler(roomID, func(rm models.ReceivedMessage) {
		_ = m.mirror.PublishMessageReceived(rm.ToChatMessage())
		handler(rm)
	})
}

type noopMirror struct{}

func (noopMirror) PublishMessageReceived(models.ChatMessage) error { return nil }
func (noopMirror) PublishRoomUpdated(models.RoomUpdate) error      { return nil }
func (noopMirror) PublishNotification(models.Notification) error   { return nil }
func (noopMirror) PublishBadgeCount(models.BadgeCount) error       { return nil }
func (noopMirror) PublishSignal(*models.ChannelError) error        { return nil }
func (noopMirror) PublishStatus(string, error) error               { return nil }
