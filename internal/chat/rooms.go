package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"go-handshake/internal/models"
)

type RoomAPI interface {
	ListRooms(ctx context.Context) ([]models.ChatRoom, error)
	ExitRoom(ctx context.Context, roomID int64) error
	ReportRoom(ctx context.Context, roomID int64, reason string) error
}

// RoomList is the user's room list, newest activity first.
type RoomList struct {
	api RoomAPI

	mu    sync.Mutex
	rooms []models.ChatRoom
}

func NewRoomList(api RoomAPI) *RoomList {
	return &RoomList{api: api}
}

// Refresh reloads the list. On failure the current list is kept.
func (l *RoomList) Refresh(ctx context.Context) error {
	rooms, err := l.api.ListRooms(ctx)
	if err != nil {
		slog.Error("[ROOMS] Refresh failed", "error", err)
		return fmt.Errorf("chat: list rooms: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.rooms = append(l.rooms[:0], rooms...)
	l.sortLocked()
	return nil
}

// Apply merges a room-list update. It reports false for rooms not in the list so the
// caller can refresh.
func (l *RoomList) Apply(u models.RoomUpdate) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(u.ChatRoomID)
	if i < 0 {
		return false
	}
	r := &l.rooms[i]
	r.LastMessage = u.LastMessage
	r.LastMessageTime = u.LastMessageTime
	r.UnreadCount = u.UnreadCount
	l.sortLocked()
	return true
}

func (l *RoomList) MarkRead(roomID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexLocked(roomID); i >= 0 {
		l.rooms[i].UnreadCount = 0
	}
}

// DisableSend marks a room whose counterpart has left.
func (l *RoomList) DisableSend(roomID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexLocked(roomID); i >= 0 {
		l.rooms[i].CanSendMessage = false
	}
}

// Exit leaves the room on the server and removes it from the list.
func (l *RoomList) Exit(ctx context.Context, roomID int64) error {
	if err := l.api.ExitRoom(ctx, roomID); err != nil {
		slog.Error("[ROOMS] Exit failed", "room", roomID, "error", err)
		return fmt.Errorf("chat: exit room %d: %w", roomID, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexLocked(roomID); i >= 0 {
		l.rooms = append(l.rooms[:i], l.rooms[i+1:]...)
	}
	slog.Info("[ROOMS] Exited", "room", roomID)
	return nil
}

func (l *RoomList) Report(ctx context.Context, roomID int64, reason string) error {
	if err := l.api.ReportRoom(ctx, roomID, reason); err != nil {
		slog.Error("[ROOMS] Report failed", "room", roomID, "error", err)
		return fmt.Errorf("chat: report room %d: %w", roomID, err)
	}
	return nil
}

func (l *RoomList) Room(roomID int64) (models.ChatRoom, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexLocked(roomID); i >= 0 {
		return l.rooms[i], true
	}
	return models.ChatRoom{}, false
}

func (l *RoomList) Rooms() []models.ChatRoom {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.ChatRoom(nil), l.rooms...)
}

func (l *RoomList) TotalUnread() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, r := range l.rooms {
		total += r.UnreadCount
	}
	return total
}

func (l *RoomList) indexLocked(roomID int64) int {
	for i, r := range l.rooms {
		if r.ChatRoomID == roomID {
			return i
		}
	}
	return -1
}

func (l *RoomList) sortLocked() {
	sort.SliceStable(l.rooms, func(i, j int) bool {
		return l.rooms[i].LastMessageTime.After(l.rooms[j].LastMessageTime.Time)
	})
}
