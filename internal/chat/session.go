package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"go-handshake/internal/models"
	"go-handshake/internal/observability"
)

const (
	DestEnter = "/pub/chat/enter"
	DestLeave = "/pub/chat/leave"

	DefaultPageSize = 50

	bannerConnectionLost = "Connection lost. Messages will resume when the connection is back."
	errTextSendFailed    = "Message could not be sent. Please try again."
	errTextTooLong       = "Messages are limited to 1000 characters."
	errTextCannotSend    = "The other person has left this chat."
)

var (
	ErrNotOpen         = errors.New("chat: room is not open")
	ErrCounterpartLeft = errors.New("chat: counterpart has left the room")
	ErrMessageTooLong  = errors.New("chat: message exceeds length limit")
)

func SendDestination(roomID int64) string {
	return fmt.Sprintf("/pub/chat/%d/send", roomID)
}

// Channel is the publishing side of the transport.
type Channel interface {
	Publish(destination string, payload any) error
	Connected() bool
}

// Rooms registers per-room queue handlers.
type Rooms interface {
	RegisterRoomHandler(roomID int64, handler func(models.ReceivedMessage))
	UnregisterRoomHandler(roomID int64)
}

// History fetches stored messages.
type History interface {
	EnterRoom(ctx context.Context, roomID int64) (*models.EntryPage, error)
	FetchMessages(ctx context.Context, roomID int64, cursor string, size int) (*models.Page[models.HistoryMessage], error)
}

// View is a snapshot of everything a room screen renders.
type View struct {
	RoomID       int64
	Messages     []models.ChatMessage
	CanSend      bool
	Banner       string
	SendError    string
	Notice       string
	Draft        string
	LoadingOlder bool
	HasPrevious  bool
}

func (v View) Empty() bool {
	return len(v.Messages) == 0
}

// Session is the state of one open chat room.
type Session struct {
	roomID   int64
	channel  Channel
	rooms    Rooms
	history  History
	pageSize int
	onChange func()

	mu          sync.Mutex
	open        bool
	gen         uint64
	localUserID int64
	timeline    Timeline
	pager       Pager
	scroller    AutoScroller
	canSend     bool
	banner      string
	sendErr     string
	notice      string
	draft       string
}

func NewSession(roomID int64, channel Channel, rooms Rooms, history History) *Session {
	return &Session{
		roomID:   roomID,
		channel:  channel,
		rooms:    rooms,
		history:  history,
		pageSize: DefaultPageSize,
		canSend:  true,
	}
}

// OnChange sets a callback invoked after every state change. Call before Open.
func (s *Session) OnChange(fn func()) {
	s.onChange = fn
}

func (s *Session) RoomID() int64 {
	return s.roomID
}

// Open registers the room handler, announces the entry and loads the first page. A failed
// fetch leaves an empty room with no older history.
func (s *Session) Open(ctx context.Context) {
	s.mu.Lock()
	if s.open {
		s.mu.Unlock()
		return
	}
	s.open = true
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	// handler first, so a push triggered by the enter notification is not lost
	s.rooms.RegisterRoomHandler(s.roomID, s.HandleLive)
	s.enter()

	page, err := s.history.EnterRoom(ctx, s.roomID)
	if err != nil {
		slog.Error("[CHAT] Entry fetch failed", "room", s.roomID, "error", err)
		page = &models.EntryPage{}
	}

	s.mu.Lock()
	if !s.open || s.gen != gen {
		s.mu.Unlock()
		slog.Debug("[CHAT] Dropping entry page for closed room", "room", s.roomID)
		return
	}
	s.localUserID = page.UserID
	s.timeline.ApplyEntry(toChatMessages(page.Content.Content, page.UserID))
	s.pager.SetHasPrevious(page.Content.HasNext)
	s.mu.Unlock()

	slog.Info("[CHAT] Room opened", "room", s.roomID, "messages", len(page.Content.Content), "hasPrevious", page.Content.HasNext)
	s.changed()
}

// Reenter repeats the enter notification for an open room after a connect.
func (s *Session) Reenter() {
	s.mu.Lock()
	open := s.open
	s.mu.Unlock()
	if open {
		s.enter()
	}
}

func (s *Session) enter() {
	if err := s.channel.Publish(DestEnter, models.RoomRef{ChatRoomID: s.roomID}); err != nil {
		slog.Warn("[CHAT] Enter notification not sent", "room", s.roomID, "error", err)
	}
}

// HandleLive applies a pushed message. Duplicates and messages for other rooms are ignored.
func (s *Session) HandleLive(rm models.ReceivedMessage) {
	m := rm.ToChatMessage()
	if m.RoomID != 0 && m.RoomID != s.roomID {
		slog.Warn("[CHAT] Message for another room", "room", s.roomID, "messageRoom", m.RoomID)
		return
	}

	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return
	}
	added := s.timeline.ApplyLive(m)
	s.mu.Unlock()

	if added {
		s.changed()
	}
}

// LoadOlder fetches the page before the oldest loaded message and returns how many
// messages were added. It does nothing while a fetch runs or when no older page exists.
func (s *Session) LoadOlder(ctx context.Context) int {
	s.mu.Lock()
	if !s.open || !s.pager.Begin() {
		s.mu.Unlock()
		return 0
	}
	gen := s.gen
	cursor := s.timeline.Cursor()
	userID := s.localUserID
	s.mu.Unlock()

	page, err := s.history.FetchMessages(ctx, s.roomID, cursor, s.pageSize)
	if err != nil {
		slog.Error("[CHAT] Older page fetch failed", "room", s.roomID, "cursor", cursor, "error", err)
		page = &models.Page[models.HistoryMessage]{}
	}

	s.mu.Lock()
	if !s.open || s.gen != gen {
		s.mu.Unlock()
		return 0
	}
	added := s.timeline.ApplyOlder(toChatMessages(page.Content, userID))
	s.pager.End(page.HasNext)
	s.mu.Unlock()

	s.changed()
	return added
}

// MaybeLoadOlder loads older history when the viewport is near the top.
func (s *Session) MaybeLoadOlder(ctx context.Context, vp Viewport) int {
	if !vp.NearTop() {
		return 0
	}
	return s.LoadOlder(ctx)
}

func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
}

// Send publishes content. On failure the draft is kept and a dismissible error is set.
// Blank content is ignored.
func (s *Session) Send(content string) error {
	s.mu.Lock()
	s.draft = content
	switch {
	case !s.open:
		s.mu.Unlock()
		return ErrNotOpen
	case !s.canSend:
		s.sendErr = errTextCannotSend
		s.mu.Unlock()
		return ErrCounterpartLeft
	}
	text := strings.TrimSpace(content)
	if text == "" {
		s.mu.Unlock()
		return nil
	}
	if utf8.RuneCountInString(text) > models.MaxMessageLength {
		s.sendErr = errTextTooLong
		s.mu.Unlock()
		return ErrMessageTooLong
	}
	s.mu.Unlock()

	err := s.channel.Publish(SendDestination(s.roomID), models.SendPayload{Content: text})

	s.mu.Lock()
	if err != nil {
		s.sendErr = errTextSendFailed
		s.mu.Unlock()
		observability.IncSendFailure()
		slog.Warn("[CHAT] Send failed", "room", s.roomID, "error", err)
		s.changed()
		return fmt.Errorf("chat: send to room %d: %w", s.roomID, err)
	}
	s.draft = ""
	s.sendErr = ""
	s.mu.Unlock()

	s.changed()
	return nil
}

func (s *Session) DismissSendError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendErr = ""
}

// SetCanSend seeds the send state from the room list.
func (s *Session) SetCanSend(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canSend = v
}

// HandleSignal applies a decoded channel signal. A departed counterpart disables sending
// without a banner; transport errors show a banner and keep the history.
func (s *Session) HandleSignal(sig *models.ChannelError) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return
	}
	switch sig.Kind {
	case models.KindCounterpartLeft:
		s.canSend = false
	case models.KindTransport:
		s.banner = bannerConnectionLost
	default:
		s.notice = sig.Message
	}
	s.mu.Unlock()

	slog.Info("[CHAT] Signal applied", "room", s.roomID, "kind", sig.Kind, "code", sig.Code)
	s.changed()
}

// ConnectionRestored clears the connection banner.
func (s *Session) ConnectionRestored() {
	s.mu.Lock()
	s.banner = ""
	s.mu.Unlock()
	s.changed()
}

// ShouldScrollToNewest reports whether the renderer should jump to the newest message.
func (s *Session) ShouldScrollToNewest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	newest, ok := s.timeline.Newest()
	if !ok {
		return false
	}
	return s.scroller.Next(newest.ID, s.pager.Loading())
}

// Leave unregisters the room, announces the exit and drops all state. Responses still in
// flight are discarded.
func (s *Session) Leave() {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return
	}
	s.open = false
	s.gen++
	s.timeline.Reset()
	s.pager.Reset()
	s.scroller.Reset()
	s.banner, s.sendErr, s.notice, s.draft = "", "", "", ""
	s.mu.Unlock()

	s.rooms.UnregisterRoomHandler(s.roomID)
	if err := s.channel.Publish(DestLeave, models.RoomRef{ChatRoomID: s.roomID}); err != nil {
		slog.Warn("[CHAT] Leave notification not sent", "room", s.roomID, "error", err)
	}
	slog.Info("[CHAT] Room left", "room", s.roomID)
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		RoomID:       s.roomID,
		Messages:     s.timeline.Messages(),
		CanSend:      s.canSend,
		Banner:       s.banner,
		SendError:    s.sendErr,
		Notice:       s.notice,
		Draft:        s.draft,
		LoadingOlder: s.pager.Loading(),
		HasPrevious:  s.pager.HasPrevious(),
	}
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func toChatMessages(batch []models.HistoryMessage, localUserID int64) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(batch))
	for _, h := range batch {
		out = append(out, h.ToChatMessage(localUserID))
	}
	return out
}
