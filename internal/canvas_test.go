package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCoordinates(t *testing.T) {
	cases := []struct {
		name       string
		x, y, w, h float64
		want       Point
	}{
		{name: "half size surface", x: 250, y: 175, w: 500, h: 350, want: Point{X: 500, Y: 350}},
		{name: "clamps below zero", x: -10, y: -1, w: 1000, h: 700, want: Point{X: 0, Y: 0}},
		{name: "clamps past edge", x: 1200, y: 900, w: 1000, h: 700, want: Point{X: 1000, Y: 700}},
		{name: "degenerate surface", x: 5, y: 5, w: 0, h: 0, want: Point{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeCoordinates(tc.x, tc.y, tc.w, tc.h))
		})
	}
}

func TestInCanvas(t *testing.T) {
	assert.True(t, InCanvas(0, 0))
	assert.True(t, InCanvas(1000, 700))
	assert.False(t, InCanvas(1000.5, 10))
	assert.False(t, InCanvas(10, -0.1))
}

func TestStrokeTracker_ConnectsConsecutiveSamples(t *testing.T) {
	var tr StrokeTracker

	_, ok := tr.Apply(DrawData{X: 1, Y: 1, Color: "#000"})
	assert.False(t, ok, "first sample only anchors the stroke")

	seg, ok := tr.Apply(DrawData{X: 5, Y: 6, Color: "#ff0000"})
	assert.True(t, ok)
	assert.Equal(t, Segment{From: Point{1, 1}, To: Point{5, 6}, Color: "#ff0000"}, seg)

	seg, ok = tr.Apply(DrawData{X: 7, Y: 8, Color: "#ff0000"})
	assert.True(t, ok)
	assert.Equal(t, Point{5, 6}, seg.From)

	tr.Reset()
	_, ok = tr.Apply(DrawData{X: 9, Y: 9, Color: "#000"})
	assert.False(t, ok)
}

func TestClearsCanvas(t *testing.T) {
	assert.True(t, ClearsCanvas(GameStartData{}))
	assert.True(t, ClearsCanvas(RoundEndData{}))
	assert.True(t, ClearsCanvas(GuessData{Correct: true, Word: "cat"}))
	assert.False(t, ClearsCanvas(GuessData{Correct: false}))
	assert.False(t, ClearsCanvas(DrawData{}))
	assert.False(t, ClearsCanvas(TimeUpdateData{TimeRemaining: 3}))
}
