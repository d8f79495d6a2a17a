package deck

import (
	"log/slog"
	"sync"
	"time"

	"go-handshake/internal/models"
)

const (
	// ExitDuration is how long the committed card takes to leave the screen.
	ExitDuration = 300 * time.Millisecond

	exitOffsetX  = 1000.0
	exitOffsetY  = 50.0
	exitRotation = 45.0
)

// SwipeFunc receives a committed decision once the card has left the screen and been
// removed from the deck.
type SwipeFunc func(dir Direction, card models.Card)

// Controller routes pointer events to the active card. It performs no network calls.
type Controller struct {
	deck    *Deck
	onSwipe SwipeFunc
	after   func(time.Duration, func())

	mu      sync.Mutex
	gesture Gesture
	exiting Direction
}

func NewController(deck *Deck, onSwipe SwipeFunc) *Controller {
	return &Controller{
		deck:    deck,
		onSwipe: onSwipe,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// Active returns the card currently under the pointer.
func (c *Controller) Active() (models.Card, bool) {
	return c.deck.Top()
}

func (c *Controller) Down(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exiting != DirectionNone || c.deck.Len() == 0 {
		return
	}
	c.gesture.Down(x, y)
}

func (c *Controller) Move(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gesture.Move(x, y)
}

// Up releases the pointer. A committed swipe starts the exit animation and returns its
// direction.
func (c *Controller) Up() Direction {
	c.mu.Lock()
	dir := c.gesture.Up()
	if dir == DirectionNone {
		c.mu.Unlock()
		return DirectionNone
	}
	card, ok := c.deck.Top()
	if !ok {
		c.mu.Unlock()
		return DirectionNone
	}
	c.exiting = dir
	c.mu.Unlock()

	slog.Debug("[DECK] Swipe committed", "direction", dir.String(), "userId", card.UserID)
	c.after(ExitDuration, func() { c.finishExit(dir, card) })
	return dir
}

func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gesture.Cancel()
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gesture.Phase()
}

// Exiting reports whether a committed card is still animating off-screen.
func (c *Controller) Exiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exiting != DirectionNone
}

func (c *Controller) Transform() Transform {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exiting != DirectionNone {
		sign := float64(c.exiting)
		return Transform{
			X:        sign * exitOffsetX,
			Y:        exitOffsetY,
			Rotate:   sign * exitRotation,
			Animated: true,
		}
	}
	return c.gesture.Transform()
}

func (c *Controller) Overlay() Overlay {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exiting != DirectionNone {
		return overlayFor(float64(c.exiting))
	}
	return c.gesture.Overlay()
}

func (c *Controller) finishExit(dir Direction, card models.Card) {
	c.mu.Lock()
	c.exiting = DirectionNone
	c.mu.Unlock()

	// the deck may have been cleared by a reset while the card was leaving
	if !c.deck.popIf(card.UserID) {
		slog.Debug("[DECK] Swiped card already gone", "userId", card.UserID)
		return
	}
	if c.onSwipe != nil {
		c.onSwipe(dir, card)
	}
}
