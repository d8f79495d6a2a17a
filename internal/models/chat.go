package models

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// MaxMessageLength is the longest message body the server accepts, in characters.
const MaxMessageLength = 1000

// ChatMessage is one delivered chat line as the room view displays it.
type ChatMessage struct {
	ID                 string    `json:"id"`
	RoomID             int64     `json:"chatRoomId"`
	SenderID           int64     `json:"senderId"`
	Content            string    `json:"content"`
	SentAt             time.Time `json:"sentAt"`
	IsRead             bool      `json:"isRead"`
	IsMine             bool      `json:"isMine"`
	SenderName         string    `json:"senderName,omitempty"`
	SenderProfileImage string    `json:"senderProfileImage,omitempty"`
}

// HistoryMessage is a message as returned by the history endpoints.
type HistoryMessage struct {
	ID         string    `json:"id"`
	ChatRoomID int64     `json:"chatRoomId"`
	SenderID   int64     `json:"senderId"`
	Content    string    `json:"content"`
	SentAt     Timestamp `json:"sentAt"`
	IsRead     bool      `json:"isRead"`
}

// ToChatMessage resolves ownership against the local user id reported by the entry fetch.
func (h HistoryMessage) ToChatMessage(localUserID int64) ChatMessage {
	return ChatMessage{
		ID:       h.ID,
		RoomID:   h.ChatRoomID,
		SenderID: h.SenderID,
		Content:  h.Content,
		SentAt:   h.SentAt.Time,
		IsRead:   h.IsRead,
		IsMine:   localUserID != 0 && h.SenderID == localUserID,
	}
}

// LiveMessage is the message body pushed on a room queue.
type LiveMessage struct {
	MessageID             string    `json:"messageId"`
	ChatRoomID            int64     `json:"chatRoomId"`
	SenderID              int64     `json:"senderId"`
	SenderName            string    `json:"senderName"`
	SenderProfileImageURL string    `json:"senderProfileImageUrl"`
	Dsti                  string    `json:"dsti"`
	Content               string    `json:"content"`
	SentAt                Timestamp `json:"sentAt"`
	IsRead                bool      `json:"isRead"`
}

// ReceivedMessage is the room queue envelope. The server decides IsMine.
type ReceivedMessage struct {
	Message LiveMessage `json:"message"`
	IsMine  bool        `json:"isMine"`
}

func (r ReceivedMessage) ToChatMessage() ChatMessage {
	m := ChatMessage{
		ID:       r.Message.MessageID,
		RoomID:   r.Message.ChatRoomID,
		SenderID: r.Message.SenderID,
		Content:  r.Message.Content,
		SentAt:   r.Message.SentAt.Time,
		IsRead:   r.Message.IsRead,
		IsMine:   r.IsMine,
	}
	if !r.IsMine {
		m.SenderName = r.Message.SenderName
		m.SenderProfileImage = r.Message.SenderProfileImageURL
	}
	return m
}

// ChatRoom is one entry of the room list.
type ChatRoom struct {
	ChatRoomID          int64     `json:"chatRoomId"`
	PartnerID           int64     `json:"partnerId"`
	PartnerName         string    `json:"partnerName"`
	PartnerProfileImage string    `json:"partnerProfileImage"`
	LastMessage         string    `json:"lastMessage"`
	LastMessageTime     Timestamp `json:"lastMessageTime"`
	UnreadCount         int       `json:"unreadCount"`
	CanSendMessage      bool      `json:"canSendMessage"`
}

// RoomUpdate is pushed on the room-list queue whenever a room's preview changes.
type RoomUpdate struct {
	ChatRoomID      int64     `json:"chatRoomId"`
	LastMessage     string    `json:"lastMessage"`
	LastMessageTime Timestamp `json:"lastMessageTime"`
	UnreadCount     int       `json:"unreadCount"`
}

type Notification struct {
	NotificationID int64  `json:"notificationId"`
	TargetNickname string `json:"targetNickname"`
	TargetImageURL string `json:"targetImageUrl"`
}

type BadgeCount struct {
	ChatUnreadCount   int `json:"chatUnreadCount"`
	NotificationCount int `json:"notificationCount"`
}

// Page is the cursor-paged shape shared by the room and history endpoints.
type Page[T any] struct {
	Content []T  `json:"content"`
	Size    int  `json:"size"`
	HasNext bool `json:"hasNext"`
}

// EntryPage is returned when a room is entered.
type EntryPage struct {
	UserID  int64                `json:"userId"`
	Content Page[HistoryMessage] `json:"content"`
}

// Publish payloads

type RoomRef struct {
	ChatRoomID int64 `json:"chatRoomId"`
}

type SendPayload struct {
	Content string `json:"content"`
}

// Timestamp accepts both zoned and zone-less ISO 8601 values.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("models: unrecognized timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339Nano) + `"`), nil
}

// UnwrapData decodes body into v. Channel frames and REST responses are usually wrapped as
// {"statusCode", "message", "data": {...}}; a bare object is accepted as well.
func UnwrapData(body []byte, v any) error {
	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return err
	}
	data := bytes.TrimSpace(wrapped.Data)
	if len(data) > 0 && data[0] == '{' {
		return json.Unmarshal(data, v)
	}
	return json.Unmarshal(body, v)
}
