package deck

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-handshake/internal/models"
)

type swipe struct {
	dir  Direction
	card models.Card
}

type manualTimer struct {
	delays  []time.Duration
	pending []func()
}

func (m *manualTimer) after(d time.Duration, f func()) {
	m.delays = append(m.delays, d)
	m.pending = append(m.pending, f)
}

func (m *manualTimer) fire() {
	fns := m.pending
	m.pending = nil
	for _, f := range fns {
		f()
	}
}

func newTestController(cards ...models.Card) (*Controller, *Deck, *manualTimer, *[]swipe) {
	d := NewDeck()
	d.Merge(cards)
	var got []swipe
	c := NewController(d, func(dir Direction, card models.Card) {
		got = append(got, swipe{dir, card})
	})
	timer := &manualTimer{}
	c.after = timer.after
	return c, d, timer, &got
}

func TestControllerCallbackAfterExitAnimation(t *testing.T) {
	c, d, timer, got := newTestController(card(1), card(2))

	c.Down(0, 0)
	c.Move(50, 0)
	c.Move(100, 0)
	require.Equal(t, DirectionLike, c.Up())

	assert.True(t, c.Exiting())
	assert.Empty(t, *got, "no decision before the card leaves")
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []time.Duration{ExitDuration}, timer.delays)
	tr := c.Transform()
	assert.Equal(t, exitOffsetX, tr.X)
	assert.True(t, tr.Animated)

	timer.fire()

	require.Len(t, *got, 1)
	assert.Equal(t, DirectionLike, (*got)[0].dir)
	assert.Equal(t, int64(2), (*got)[0].card.UserID)
	assert.Equal(t, 1, d.Len())
	assert.False(t, c.Exiting())
}

func TestControllerSpringBack(t *testing.T) {
	c, d, timer, got := newTestController(card(1))

	c.Down(0, 0)
	c.Move(40, 0)
	c.Move(70, 0)
	assert.Equal(t, DirectionNone, c.Up())

	assert.Empty(t, timer.pending)
	assert.Empty(t, *got)
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, Transform{Animated: true}, c.Transform())
}

func TestControllerPassDirection(t *testing.T) {
	c, _, timer, got := newTestController(card(1))

	c.Down(200, 0)
	c.Move(150, 0)
	c.Move(100, 5)
	require.Equal(t, DirectionPass, c.Up())
	timer.fire()

	require.Len(t, *got, 1)
	assert.Equal(t, DirectionPass, (*got)[0].dir)
	assert.Equal(t, models.ActionPass, (*got)[0].dir.Action())
}

func TestControllerIgnoresInputWhileExiting(t *testing.T) {
	c, _, timer, _ := newTestController(card(1), card(2))

	c.Down(0, 0)
	c.Move(90, 0)
	c.Up()

	c.Down(0, 0)
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Len(t, timer.pending, 1)
}

func TestControllerEmptyDeck(t *testing.T) {
	c, _, timer, got := newTestController()

	c.Down(0, 0)
	c.Move(120, 0)
	assert.Equal(t, DirectionNone, c.Up())
	assert.Empty(t, timer.pending)
	assert.Empty(t, *got)
}

func TestControllerDeckClearedDuringExit(t *testing.T) {
	c, d, timer, got := newTestController(card(1))

	c.Down(0, 0)
	c.Move(100, 0)
	c.Up()
	d.Clear()
	timer.fire()

	assert.Empty(t, *got)
}

func TestControllerCancel(t *testing.T) {
	c, _, timer, got := newTestController(card(1))

	c.Down(0, 0)
	c.Move(140, 0)
	c.Cancel()

	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Equal(t, DirectionNone, c.Up())
	assert.Empty(t, timer.pending)
	assert.Empty(t, *got)
}
