package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnchorRestoreKeepsVisibleContent(t *testing.T) {
	tests := []struct {
		name      string
		vp        Viewport
		newHeight float64
		want      float64
	}{
		{"at top", Viewport{ScrollTop: 0, ScrollHeight: 2000, ClientHeight: 600}, 2480, 480},
		{"slightly scrolled", Viewport{ScrollTop: 35, ScrollHeight: 1200, ClientHeight: 600}, 1900, 735},
		{"nothing added", Viewport{ScrollTop: 12, ScrollHeight: 900, ClientHeight: 600}, 900, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			anchor := tt.vp.Anchor()
			got := anchor.Restore(tt.newHeight)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.newHeight-tt.vp.ScrollHeight, got-tt.vp.ScrollTop)
		})
	}
}

func TestViewportNearTop(t *testing.T) {
	assert.True(t, Viewport{ScrollTop: 0}.NearTop())
	assert.True(t, Viewport{ScrollTop: 50}.NearTop())
	assert.False(t, Viewport{ScrollTop: 51}.NearTop())
}

func TestAutoScroller(t *testing.T) {
	var a AutoScroller

	assert.False(t, a.Next("", false), "nothing loaded")
	assert.True(t, a.Next("m1", false), "first load")
	assert.False(t, a.Next("m1", false), "re-render without new content")
	assert.True(t, a.Next("m2", false), "live arrival")
	assert.False(t, a.Next("m3", true), "older page loading")
	assert.True(t, a.Next("m3", false), "load finished")

	a.Reset()
	assert.True(t, a.Next("m3", true), "first load after reset")
}

func TestPager(t *testing.T) {
	var p Pager
	assert.False(t, p.Begin(), "no previous page")

	p.SetHasPrevious(true)
	assert.True(t, p.Begin())
	assert.True(t, p.Loading())
	assert.False(t, p.Begin(), "already in flight")

	p.End(false)
	assert.False(t, p.Loading())
	assert.False(t, p.Begin(), "server reported no older page")
}
