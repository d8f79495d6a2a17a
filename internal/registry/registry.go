package registry

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"go-handshake/internal/models"
	"go-handshake/internal/observability"
	"go-handshake/internal/ws"
)

const (
	QueueRoomPrefix   = "/user/queue/chat/"
	QueueRoomList     = "/user/queue/chat-list/update"
	QueueNotification = "/user/queue/notification"
	QueueBadgeCount   = "/user/queue/home/badge-count"
	QueueErrors       = "/user/queue/errors"

	DefaultInterval = 5 * time.Second
)

func RoomQueue(roomID int64) string {
	return QueueRoomPrefix + strconv.FormatInt(roomID, 10)
}

// Transport is the part of the channel client the registry drives.
type Transport interface {
	Connected() bool
	Subscribe(destination string, handler ws.Handler) (ws.Subscription, error)
	Unsubscribe(destination string)
	IsSubscribed(destination string) bool
	Disconnect()
}

// SignalSink receives raw error-queue frames.
type SignalSink interface {
	HandleFrame(body []byte)
}

type topic struct {
	kind        string
	destination string
	handler     ws.Handler
}

// Registry keeps the desired subscriptions independent of the connection and is the only
// component that subscribes on the transport.
type Registry struct {
	transport Transport
	signals   SignalSink
	interval  time.Duration

	mu          sync.Mutex
	topics      map[string]*topic // destination -> desired topic
	stopMonitor context.CancelFunc
}

func New(transport Transport, signals SignalSink, interval time.Duration) *Registry {
	if interval <= 0 {
		interval = DefaultInterval
	}
	r := &Registry{
		transport: transport,
		signals:   signals,
		interval:  interval,
		topics:    make(map[string]*topic),
	}
	r.seedLocked()
	return r
}

// RegisterRoomHandler subscribes the room queue now when connected, otherwise on the next
// connect. A second registration for the same room replaces the handler.
func (r *Registry) RegisterRoomHandler(roomID int64, handler func(models.ReceivedMessage)) {
	r.set("room", RoomQueue(roomID), decoded("room", handler))
}

func (r *Registry) UnregisterRoomHandler(roomID int64) {
	r.remove(RoomQueue(roomID))
}

func (r *Registry) HasRoomHandler(roomID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.topics[RoomQueue(roomID)]
	return ok
}

func (r *Registry) SetRoomListHandler(handler func(models.RoomUpdate)) {
	r.set("rooms", QueueRoomList, decoded("rooms", handler))
}

func (r *Registry) ClearRoomListHandler() {
	r.remove(QueueRoomList)
}

func (r *Registry) SetNotificationHandler(handler func(models.Notification)) {
	r.set("notifications", QueueNotification, decoded("notifications", handler))
}

func (r *Registry) ClearNotificationHandler() {
	r.remove(QueueNotification)
}

func (r *Registry) SetBadgeCountHandler(handler func(models.BadgeCount)) {
	r.set("badge", QueueBadgeCount, decoded("badge", handler))
}

func (r *Registry) ClearBadgeCountHandler() {
	r.remove(QueueBadgeCount)
}

// Destinations lists the desired destinations in sorted order.
func (r *Registry) Destinations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.topics))
	for dest := range r.topics {
		out = append(out, dest)
	}
	sort.Strings(out)
	return out
}

// HandleConnect restores every desired topic and starts the repair loop.
func (r *Registry) HandleConnect() {
	r.mu.Lock()
	defer r.mu.Unlock()

	restored := 0
	for _, t := range r.topics {
		if r.subscribeLocked(t, "connect") {
			restored++
		}
	}
	slog.Info("[REGISTRY] Restored subscriptions", "count", restored, "desired", len(r.topics))
	r.startMonitorLocked()
}

// HandleDisconnect stops the repair loop. Desired topics are kept for the next connect.
func (r *Registry) HandleDisconnect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopMonitorLocked()
}

// Reconcile runs one repair pass and returns how many topics were resubscribed.
// STOMP has no per-subscription failure signal, so a dropped subscription is only
// visible as a desired topic the transport no longer reports.
func (r *Registry) Reconcile() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.transport.Connected() {
		return 0
	}

	repaired := 0
	for _, t := range r.topics {
		if r.transport.IsSubscribed(t.destination) {
			continue
		}
		if r.subscribeLocked(t, "reconcile") {
			repaired++
		}
	}
	if repaired > 0 {
		slog.Warn("[REGISTRY] Repaired dropped subscriptions", "count", repaired)
	}
	return repaired
}

// Reset forgets every handler and disconnects the transport.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.stopMonitorLocked()
	clear(r.topics)
	r.seedLocked()
	r.mu.Unlock()

	slog.Info("[REGISTRY] Reset, disconnecting transport")
	r.transport.Disconnect()
}

func (r *Registry) set(kind, destination string, handler ws.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := &topic{kind: kind, destination: destination, handler: handler}
	r.topics[destination] = t
	slog.Debug("[REGISTRY] Registered", "destination", destination)
	if r.transport.Connected() {
		r.subscribeLocked(t, "register")
	}
}

func (r *Registry) remove(destination string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.topics[destination]; !ok {
		return
	}
	delete(r.topics, destination)
	r.transport.Unsubscribe(destination)
	slog.Debug("[REGISTRY] Unregistered", "destination", destination)
}

func (r *Registry) subscribeLocked(t *topic, trigger string) bool {
	if _, err := r.transport.Subscribe(t.destination, t.handler); err != nil {
		slog.Warn("[REGISTRY] Subscribe failed", "destination", t.destination, "trigger", trigger, "error", err)
		return false
	}
	observability.IncResubscribe(trigger)
	return true
}

func (r *Registry) seedLocked() {
	r.topics[QueueErrors] = &topic{
		kind:        "errors",
		destination: QueueErrors,
		handler: func(body []byte) {
			observability.IncFrame("errors")
			r.signals.HandleFrame(body)
		},
	}
}

func (r *Registry) startMonitorLocked() {
	if r.stopMonitor != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.stopMonitor = cancel
	go r.monitor(ctx)
}

func (r *Registry) stopMonitorLocked() {
	if r.stopMonitor == nil {
		return
	}
	r.stopMonitor()
	r.stopMonitor = nil
}

func (r *Registry) monitor(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Reconcile()
		}
	}
}

func decoded[T any](kind string, handler func(T)) ws.Handler {
	return func(body []byte) {
		var v T
		if err := models.UnwrapData(body, &v); err != nil {
			slog.Warn("[REGISTRY] Dropping malformed frame", "topic", kind, "error", err)
			observability.IncDroppedFrame("malformed")
			return
		}
		observability.IncFrame(kind)
		handler(v)
	}
}
