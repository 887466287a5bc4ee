// Package snake models the snake body: an ordered list of cells from head to
// tail that moves one cell per tick on a toroidal board.
//
// The snake never decides whether a collision ends the game. IsCollision only
// reports it; the caller owns that policy.
package snake

import "github.com/vovakirdan/snake-qlearn/internal/core"

// Snake is the body of a single snake. Head at index 0.
type Snake struct {
	body     []core.Point
	dir      Direction
	growNext bool // If true, keep the tail on the next Update
}

// New creates a one-segment snake at (x, y) heading right.
func New(x, y int) *Snake {
	return &Snake{
		body: []core.Point{{X: x, Y: y}},
		dir:  Right,
	}
}

// SetDir changes the heading. A request for the exact opposite of the
// current heading, or for an unknown direction, is silently ignored.
func (s *Snake) SetDir(d Direction) {
	if !d.Valid() || d == s.dir.Opposite() {
		return
	}
	s.dir = d
}

// Dir returns the current heading.
func (s *Snake) Dir() Direction {
	return s.dir
}

// Update moves the snake one cell in its heading on a width x height torus.
// The new head is prepended. The tail is dropped unless growth is pending.
func (s *Snake) Update(width, height int) {
	dx, dy := s.dir.Delta()
	newHead := s.body[0].Add(dx, dy).Wrap(width, height)

	s.body = append(s.body, core.Point{})
	copy(s.body[1:], s.body[:len(s.body)-1])
	s.body[0] = newHead

	if s.growNext {
		s.growNext = false
	} else {
		s.body = s.body[:len(s.body)-1]
	}
}

// Grow schedules one segment of growth. It takes effect on the next Update.
func (s *Snake) Grow() {
	s.growNext = true
}

// Head returns the head position.
func (s *Snake) Head() core.Point {
	return s.body[0]
}

// Body returns a copy of the segments, head first.
func (s *Snake) Body() []core.Point {
	out := make([]core.Point, len(s.body))
	copy(out, s.body)
	return out
}

// Len returns the number of segments.
func (s *Snake) Len() int {
	return len(s.body)
}

// IsCollision reports whether p overlaps any segment other than the head.
func (s *Snake) IsCollision(p core.Point) bool {
	for _, seg := range s.body[1:] {
		if seg == p {
			return true
		}
	}
	return false
}
