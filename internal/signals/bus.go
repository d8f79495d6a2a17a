package signals

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go-handshake/internal/models"
	"go-handshake/internal/observability"
)

var errMissingCode = errors.New("signals: error frame without errorCode")

// Decode maps an error-queue frame body to a typed channel error.
func Decode(body []byte) (*models.ChannelError, error) {
	var f models.ErrorFrame
	if err := models.UnwrapData(body, &f); err != nil {
		return nil, fmt.Errorf("signals: decode error frame: %w", err)
	}
	if f.ErrorCode == "" {
		return nil, errMissingCode
	}

	kind := models.KindApplication
	if f.ErrorCode == models.CodePartnerExited {
		kind = models.KindCounterpartLeft
	}
	return &models.ChannelError{Kind: kind, Code: f.ErrorCode, Message: f.Message}, nil
}

type Listener func(*models.ChannelError)

// Bus fans decoded signals out to every subscribed listener.
type Bus struct {
	mu        sync.RWMutex
	listeners map[uint64]Listener
	next      uint64
}

func NewBus() *Bus {
	return &Bus{listeners: make(map[uint64]Listener)}
}

// Subscribe adds l and returns a function that removes it.
func (b *Bus) Subscribe(l Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	b.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.listeners, id)
		})
	}
}

func (b *Bus) Publish(sig *models.ChannelError) {
	b.mu.RLock()
	listeners := make([]Listener, 0, len(b.listeners))
	for _, l := range b.listeners {
		listeners = append(listeners, l)
	}
	b.mu.RUnlock()

	observability.IncSignal(string(sig.Kind))
	for _, l := range listeners {
		b.deliver(l, sig)
	}
}

// HandleFrame decodes an error-queue frame and publishes it. Malformed frames are logged
// and dropped.
func (b *Bus) HandleFrame(body []byte) {
	sig, err := Decode(body)
	if err != nil {
		slog.Warn("[SIGNALS] Dropping malformed error frame", "error", err, "body", string(body))
		observability.IncDroppedFrame("malformed_signal")
		return
	}
	slog.Info("[SIGNALS] Received", "kind", sig.Kind, "code", sig.Code)
	b.Publish(sig)
}

// PublishTransport forwards a transport failure that the shell wants shown to listeners.
func (b *Bus) PublishTransport(err error) {
	var ce *models.ChannelError
	if errors.As(err, &ce) && ce.Kind == models.KindTransport {
		b.Publish(ce)
		return
	}
	b.Publish(models.TransportError(err))
}

func (b *Bus) deliver(l Listener, sig *models.ChannelError) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("[SIGNALS] Listener panicked", "kind", sig.Kind, "panic", r)
		}
	}()
	l(sig)
}
