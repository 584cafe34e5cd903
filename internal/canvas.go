package internal

import "math"

const (
	CanvasWidth  = 1000
	CanvasHeight = 700
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Segment is a line to render between two consecutive samples.
type Segment struct {
	From  Point  `json:"from"`
	To    Point  `json:"to"`
	Color string `json:"color"`
}

// NormalizeCoordinates maps a position on a client surface of the given size
// into the logical canvas, clamped to its bounds.
func NormalizeCoordinates(x, y, clientWidth, clientHeight float64) Point {
	if clientWidth <= 0 || clientHeight <= 0 {
		return Point{}
	}
	p := Point{
		X: x * CanvasWidth / clientWidth,
		Y: y * CanvasHeight / clientHeight,
	}
	p.X = math.Min(math.Max(p.X, 0), CanvasWidth)
	p.Y = math.Min(math.Max(p.Y, 0), CanvasHeight)
	return p
}

func InCanvas(x, y float64) bool {
	return x >= 0 && x <= CanvasWidth && y >= 0 && y <= CanvasHeight
}

// StrokeTracker turns remote draw samples into segments. Samples carry no
// stroke id, so the most recent point is the only connecting state.
type StrokeTracker struct {
	last *Point
}

// Apply consumes a draw sample. The first sample after a reset only anchors
// the stroke and yields no segment.
func (t *StrokeTracker) Apply(d DrawData) (Segment, bool) {
	next := Point{X: d.X, Y: d.Y}
	prev := t.last
	t.last = &next
	if prev == nil {
		return Segment{}, false
	}
	return Segment{From: *prev, To: next, Color: d.Color}, true
}

func (t *StrokeTracker) Reset() {
	t.last = nil
}

// ClearsCanvas reports whether ev wipes the shared canvas: a round starting
// or ending, or a correct guess.
func ClearsCanvas(ev Event) bool {
	switch e := ev.(type) {
	case GameStartData, RoundEndData:
		return true
	case GuessData:
		return e.Correct
	}
	return false
}
