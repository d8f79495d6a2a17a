package chat

// NearTopThreshold is the scroll offset, in pixels, below which older history is requested.
const NearTopThreshold = 50.0

// Viewport is the scroll geometry of a room's message list.
type Viewport struct {
	ScrollTop    float64
	ScrollHeight float64
	ClientHeight float64
}

func (v Viewport) NearTop() bool {
	return v.ScrollTop <= NearTopThreshold
}

// Anchor captures the geometry before older messages are prepended.
func (v Viewport) Anchor() Anchor {
	return Anchor{ScrollTop: v.ScrollTop, ScrollHeight: v.ScrollHeight}
}

type Anchor struct {
	ScrollTop    float64
	ScrollHeight float64
}

// Restore returns the scroll offset that keeps the previously visible messages in place
// once the content has grown to newScrollHeight.
func (a Anchor) Restore(newScrollHeight float64) float64 {
	return a.ScrollTop + (newScrollHeight - a.ScrollHeight)
}

// AutoScroller decides when the view should jump to the newest message.
type AutoScroller struct {
	settled bool
	lastID  string
}

// Next reports whether to scroll to newestID. The first non-empty load always scrolls;
// after that only new ids do, and never while older history is loading.
func (a *AutoScroller) Next(newestID string, loadingOlder bool) bool {
	if newestID == "" || newestID == a.lastID {
		return false
	}
	if a.settled && loadingOlder {
		return false
	}
	a.settled = true
	a.lastID = newestID
	return true
}

func (a *AutoScroller) Reset() {
	*a = AutoScroller{}
}
