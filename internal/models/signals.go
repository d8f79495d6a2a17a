package models

import "fmt"

type ErrorKind string

const (
	// KindCounterpartLeft means the other participant exited; the room stays readable.
	KindCounterpartLeft ErrorKind = "COUNTERPART_LEFT"
	// KindApplication covers any other server-pushed error code.
	KindApplication ErrorKind = "APPLICATION_ERROR"
	// KindTransport is a connection or protocol failure.
	KindTransport ErrorKind = "TRANSPORT_ERROR"
)

// CodePartnerExited is the error-queue code sent when the counterpart leaves a room.
const CodePartnerExited = "PARTNER_EXITED_CHAT_ROOM"

// ErrorFrame is the body of a frame on the error queue.
type ErrorFrame struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

// ChannelError is the decoded, typed form of every failure the channel reports.
type ChannelError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *ChannelError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Code != "":
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

func TransportError(err error) *ChannelError {
	return &ChannelError{Kind: KindTransport, Message: err.Error(), Err: err}
}
