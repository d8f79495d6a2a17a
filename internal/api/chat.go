package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go-handshake/internal/models"
)

type reportRequest struct {
	ChatRoomID int64  `json:"chatRoomId"`
	Reason     string `json:"reason"`
}

func (c *Client) ListRooms(ctx context.Context) ([]models.ChatRoom, error) {
	var page models.Page[models.ChatRoom]
	if err := c.do(ctx, "list_rooms", http.MethodGet, "/chat/rooms", nil, nil, &page); err != nil {
		return nil, err
	}
	return page.Content, nil
}

// EnterRoom loads the newest page of a room and marks it read.
func (c *Client) EnterRoom(ctx context.Context, roomID int64) (*models.EntryPage, error) {
	var entry models.EntryPage
	path := fmt.Sprintf("/chat/messages/%d/enter", roomID)
	if err := c.do(ctx, "enter_room", http.MethodGet, path, nil, nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// FetchMessages loads the page of messages sent before cursor. An empty cursor asks for
// the newest page.
func (c *Client) FetchMessages(ctx context.Context, roomID int64, cursor string, size int) (*models.Page[models.HistoryMessage], error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	q.Set("size", strconv.Itoa(size))

	var page models.Page[models.HistoryMessage]
	path := fmt.Sprintf("/chat/messages/%d", roomID)
	if err := c.do(ctx, "fetch_messages", http.MethodGet, path, q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) ExitRoom(ctx context.Context, roomID int64) error {
	path := fmt.Sprintf("/chat/rooms/%d/exit", roomID)
	return c.do(ctx, "exit_room", http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) ReportRoom(ctx context.Context, roomID int64, reason string) error {
	path := fmt.Sprintf("/chat/rooms/%d/report", roomID)
	body := reportRequest{ChatRoomID: roomID, Reason: reason}
	return c.do(ctx, "report_room", http.MethodPost, path, nil, body, nil)
}

func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	var out []models.Notification
	if err := c.do(ctx, "notifications", http.MethodGet, "/notifications", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
