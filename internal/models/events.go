package models

// Event is the envelope mirrored onto the relay bus.
type Event struct {
	Type      string `json:"type"`
	ChannelId string `json:"channelId"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

const (
	EventMessageReceived = "message:received"
	EventRoomUpdated     = "room:updated"
	EventNotification    = "notification:received"
	EventBadgeCount      = "badge:count"
	EventSignal          = "signal:received"
	EventStatusChanged   = "connection:status"
)

// Specific event data structures

type StatusData struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type SignalData struct {
	Kind    string `json:"kind"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
