package chat

import (
	"sort"

	"go-handshake/internal/models"
)

// Merge combines history and live messages into the list a room displays: one entry per
// id (first occurrence wins) ordered by SentAt, ties kept in input order.
func Merge(history, live []models.ChatMessage) []models.ChatMessage {
	seen := make(map[string]struct{}, len(history)+len(live))
	out := make([]models.ChatMessage, 0, len(history)+len(live))
	for _, src := range [][]models.ChatMessage{history, live} {
		for _, m := range src {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	sortBySentAt(out)
	return out
}

func sortBySentAt(msgs []models.ChatMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].SentAt.Before(msgs[j].SentAt)
	})
}

// Timeline holds one room's two message sources. It is not safe for concurrent use;
// Session guards it.
type Timeline struct {
	history []models.ChatMessage
	live    []models.ChatMessage
	known   map[string]struct{}
}

func (t *Timeline) ensure() {
	if t.known == nil {
		t.known = make(map[string]struct{})
	}
}

// ApplyEntry replaces the history with the entry batch. Live messages received before the
// batch are kept.
func (t *Timeline) ApplyEntry(batch []models.ChatMessage) {
	t.ensure()
	t.history = nil
	clear(t.known)
	for _, m := range t.live {
		t.known[m.ID] = struct{}{}
	}
	t.ApplyOlder(batch)
}

// ApplyOlder prepends the messages of batch that are not loaded yet, oldest first, and
// returns how many were added.
func (t *Timeline) ApplyOlder(batch []models.ChatMessage) int {
	t.ensure()
	fresh := make([]models.ChatMessage, 0, len(batch))
	for _, m := range batch {
		if m.ID == "" {
			continue
		}
		if _, ok := t.known[m.ID]; ok {
			continue
		}
		t.known[m.ID] = struct{}{}
		fresh = append(fresh, m)
	}
	sortBySentAt(fresh)
	t.history = append(fresh, t.history...)
	return len(fresh)
}

// ApplyLive records a pushed message. It reports false when the id is already loaded.
func (t *Timeline) ApplyLive(m models.ChatMessage) bool {
	t.ensure()
	if m.ID == "" {
		return false
	}
	if _, ok := t.known[m.ID]; ok {
		return false
	}
	t.known[m.ID] = struct{}{}
	t.live = append(t.live, m)
	return true
}

func (t *Timeline) Messages() []models.ChatMessage {
	return Merge(t.history, t.live)
}

func (t *Timeline) Len() int {
	return len(t.known)
}

// Cursor is the id of the oldest loaded message, the key for the next backward page.
func (t *Timeline) Cursor() string {
	msgs := t.Messages()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[0].ID
}

func (t *Timeline) Newest() (models.ChatMessage, bool) {
	msgs := t.Messages()
	if len(msgs) == 0 {
		return models.ChatMessage{}, false
	}
	return msgs[len(msgs)-1], true
}

func (t *Timeline) Reset() {
	t.history = nil
	t.live = nil
	clear(t.known)
}
