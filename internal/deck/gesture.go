package deck

import (
	"math"

	"go-handshake/internal/models"
)

const (
	// DeadZone is how far, in pixels, a pointer must travel on either axis before the
	// gesture locks to swiping or scrolling.
	DeadZone = 12.0
	// SwipeDistance is the horizontal travel that maps to full progress.
	SwipeDistance = 150.0
	// CommitProgress is the minimum |progress| on release that commits a swipe.
	CommitProgress = 0.5

	verticalDamping = 0.2
	rotationSpan    = 600.0
	rotationDegrees = -30.0
	tintFactor      = 0.4
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseSwiping
	PhaseScrolling
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseSwiping:
		return "swiping"
	case PhaseScrolling:
		return "scrolling"
	default:
		return "idle"
	}
}

// Direction is the outcome of a released swipe.
type Direction int

const (
	DirectionNone Direction = 0
	DirectionPass Direction = -1
	DirectionLike Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionLike:
		return "right"
	case DirectionPass:
		return "left"
	default:
		return "none"
	}
}

func (d Direction) Action() models.ActionType {
	if d == DirectionLike {
		return models.ActionLike
	}
	return models.ActionPass
}

// Transform is the card's visual placement. Animated is false while the card tracks
// the pointer directly.
type Transform struct {
	X        float64
	Y        float64
	Rotate   float64
	Animated bool
}

// Overlay holds the badge and tint opacities for both decisions. At most one side is
// non-zero.
type Overlay struct {
	LikeBadge float64
	LikeTint  float64
	PassBadge float64
	PassTint  float64
}

// Gesture tracks one pointer interaction on the active card.
type Gesture struct {
	phase    Phase
	startX   float64
	startY   float64
	dx       float64
	dy       float64
	progress float64
}

func (g *Gesture) Phase() Phase {
	return g.phase
}

func (g *Gesture) Progress() float64 {
	return g.progress
}

func (g *Gesture) Down(x, y float64) {
	*g = Gesture{phase: PhasePending, startX: x, startY: y}
}

func (g *Gesture) Move(x, y float64) {
	switch g.phase {
	case PhaseIdle, PhaseScrolling:
		return
	}

	dx := x - g.startX
	dy := y - g.startY

	if g.phase == PhasePending {
		absX, absY := math.Abs(dx), math.Abs(dy)
		if absX < DeadZone && absY < DeadZone {
			return
		}
		if absY > absX {
			g.phase = PhaseScrolling
			return
		}
		g.phase = PhaseSwiping
	}

	g.dx = dx
	g.dy = dy
	g.progress = clamp(dx/SwipeDistance, -1, 1)
}

// Up ends the interaction and reports the committed direction, or DirectionNone when
// the card springs back.
func (g *Gesture) Up() Direction {
	dir := DirectionNone
	if g.phase == PhaseSwiping && math.Abs(g.progress) >= CommitProgress {
		dir = DirectionLike
		if g.progress < 0 {
			dir = DirectionPass
		}
	}
	*g = Gesture{}
	return dir
}

// Cancel abandons the interaction without a decision.
func (g *Gesture) Cancel() {
	*g = Gesture{}
}

func (g *Gesture) Transform() Transform {
	switch g.phase {
	case PhaseSwiping:
		return Transform{
			X:      g.dx,
			Y:      g.dy * verticalDamping,
			Rotate: g.dx / rotationSpan * rotationDegrees,
		}
	case PhasePending, PhaseScrolling:
		return Transform{}
	default:
		return Transform{Animated: true}
	}
}

func (g *Gesture) Overlay() Overlay {
	return overlayFor(g.progress)
}

func overlayFor(progress float64) Overlay {
	switch {
	case progress > 0:
		return Overlay{LikeBadge: progress, LikeTint: progress * tintFactor}
	case progress < 0:
		p := -progress
		return Overlay{PassBadge: p, PassTint: p * tintFactor}
	default:
		return Overlay{}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
