package ws

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// fakeBroker is a minimal STOMP server over gorilla/websocket for transport tests.
type fakeBroker struct {
	srv *httptest.Server

	mu            sync.Mutex
	conns         []*websocket.Conn
	frames        []*frame.Frame
	rejectConnect bool
	// holdConnected, when set, delays the CONNECTED reply until it is closed
	holdConnected chan struct{}

	writeMu sync.Mutex
}

func newFakeBroker(t *testing.T) *fakeBroker {
	b := &fakeBroker{}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.serve(conn)
	}))
	t.Cleanup(func() {
		b.dropAll()
		b.srv.Close()
	})
	return b
}

func (b *fakeBroker) URL() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http")
}

func (b *fakeBroker) serve(conn *websocket.Conn) {
	b.mu.Lock()
	b.conns = append(b.conns, conn)
	b.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		f, err := frame.NewReader(bytes.NewReader(data)).Read()
		if err != nil || f == nil {
			continue
		}

		b.mu.Lock()
		b.frames = append(b.frames, f)
		reject := b.rejectConnect
		hold := b.holdConnected
		b.mu.Unlock()

		if f.Command != frame.CONNECT {
			continue
		}
		if reject {
			b.write(conn, frame.New(frame.ERROR, frame.Message, "bad credentials"))
			conn.Close()
			return
		}
		if hold != nil {
			<-hold
		}
		b.write(conn, frame.New(frame.CONNECTED, frame.Version, "1.2", frame.HeartBeat, "0,0"))
	}
}

func (b *fakeBroker) write(conn *websocket.Conn, f *frame.Frame) {
	data, err := encodeFrame(f)
	if err != nil {
		return
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	conn.WriteMessage(websocket.TextMessage, data)
}

func (b *fakeBroker) last() *websocket.Conn {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.conns) == 0 {
		return nil
	}
	return b.conns[len(b.conns)-1]
}

// push delivers body on the newest subscription for destination.
func (b *fakeBroker) push(destination, body string) {
	id := b.subscriptionID(destination)
	f := frame.New(frame.MESSAGE,
		frame.Destination, destination,
		frame.Subscription, id,
		frame.MessageId, uuid.NewString(),
	)
	f.Body = []byte(body)
	b.write(b.last(), f)
}

func (b *fakeBroker) pushError(message string) {
	b.write(b.last(), frame.New(frame.ERROR, frame.Message, message))
}

func (b *fakeBroker) closeNormally() {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	b.last().WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
}

func (b *fakeBroker) dropAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, conn := range b.conns {
		conn.Close()
	}
}

func (b *fakeBroker) subscriptionID(destination string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.frames) - 1; i >= 0; i-- {
		f := b.frames[i]
		if f.Command == frame.SUBSCRIBE && f.Header.Get(frame.Destination) == destination {
			return f.Header.Get(frame.Id)
		}
	}
	return ""
}

func (b *fakeBroker) received(command string) []*frame.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*frame.Frame
	for _, f := range b.frames {
		if f.Command == command {
			out = append(out, f)
		}
	}
	return out
}
