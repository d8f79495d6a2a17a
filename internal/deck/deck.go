package deck

import (
	"sync"

	"go-handshake/internal/models"
)

// Deck is the ordered candidate queue. The active card is the last one; new arrivals
// queue up behind the cards already on screen.
type Deck struct {
	mu    sync.Mutex
	cards []models.Card
}

func NewDeck() *Deck {
	return &Deck{}
}

// Merge queues cards not already present, by UserID, and returns how many were added.
func (d *Deck) Merge(cards []models.Card) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	seen := make(map[int64]struct{}, len(d.cards)+len(cards))
	for _, c := range d.cards {
		seen[c.UserID] = struct{}{}
	}

	fresh := make([]models.Card, 0, len(cards))
	for _, c := range cards {
		if _, dup := seen[c.UserID]; dup {
			continue
		}
		seen[c.UserID] = struct{}{}
		fresh = append(fresh, c)
	}
	if len(fresh) == 0 {
		return 0
	}

	d.cards = append(fresh, d.cards...)
	return len(fresh)
}

func (d *Deck) Top() (models.Card, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.cards) == 0 {
		return models.Card{}, false
	}
	return d.cards[len(d.cards)-1], true
}

func (d *Deck) Pop() (models.Card, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.popLocked()
}

// popIf removes the active card only if it is still the given user.
func (d *Deck) popIf(userID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.cards) == 0 || d.cards[len(d.cards)-1].UserID != userID {
		return false
	}
	d.popLocked()
	return true
}

func (d *Deck) popLocked() (models.Card, bool) {
	n := len(d.cards)
	if n == 0 {
		return models.Card{}, false
	}
	top := d.cards[n-1]
	d.cards = d.cards[:n-1]
	return top, true
}

func (d *Deck) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.cards)
}

// Cards returns a copy of the queue, active card last.
func (d *Deck) Cards() []models.Card {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.Card(nil), d.cards...)
}

func (d *Deck) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cards = nil
}
