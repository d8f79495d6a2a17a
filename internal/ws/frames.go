package ws

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
)

const (
	headerAuthorization = "Authorization"
	contentTypeJSON     = "application/json"
)

func encodeFrame(f *frame.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeFrame returns nil for a heart-beat.
func decodeFrame(data []byte) (*frame.Frame, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return frame.NewReader(bytes.NewReader(data)).Read()
}

func connectFrame(host, token string, out, in time.Duration) *frame.Frame {
	f := frame.New(frame.CONNECT,
		frame.AcceptVersion, "1.2,1.1",
		frame.Host, host,
		frame.HeartBeat, fmt.Sprintf("%d,%d", out.Milliseconds(), in.Milliseconds()),
	)
	if token != "" {
		f.Header.Add(headerAuthorization, "Bearer "+token)
	}
	return f
}

func subscribeFrame(id, destination string) *frame.Frame {
	return frame.New(frame.SUBSCRIBE,
		frame.Id, id,
		frame.Destination, destination,
		frame.Ack, "auto",
	)
}

func unsubscribeFrame(id string) *frame.Frame {
	return frame.New(frame.UNSUBSCRIBE, frame.Id, id)
}

func sendFrame(destination string, body []byte) *frame.Frame {
	f := frame.New(frame.SEND,
		frame.Destination, destination,
		frame.ContentType, contentTypeJSON,
		frame.ContentLength, strconv.Itoa(len(body)),
	)
	f.Body = body
	return f
}

// negotiateHeartBeat applies the STOMP heart-beat rule to our wanted intervals and the
// server's CONNECTED header. A zero result disables that direction.
func negotiateHeartBeat(header string, wantOut, wantIn time.Duration) (out, in time.Duration) {
	parts := strings.Split(header, ",")
	if len(parts) != 2 {
		return 0, 0
	}
	serverOut, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	serverIn, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	if wantOut > 0 && serverIn > 0 {
		out = max(wantOut, time.Duration(serverIn)*time.Millisecond)
	}
	if wantIn > 0 && serverOut > 0 {
		in = max(wantIn, time.Duration(serverOut)*time.Millisecond)
	}
	return out, in
}
