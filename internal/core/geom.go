// Package core provides fundamental types and utilities shared by the
// simulation packages. It contains no external dependencies to keep the
// game and learning logic pure and testable.
package core

// Point identifies a grid cell. Valid points satisfy 0 <= X < width and
// 0 <= Y < height for the board they belong to.
type Point struct {
	X, Y int
}

// Add returns the point translated by (dx, dy) without wrapping.
func (p Point) Add(dx, dy int) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Wrap maps p onto a width x height torus. Moving past one edge re-enters
// from the opposite edge. Width and height must be positive.
func (p Point) Wrap(width, height int) Point {
	return Point{X: Mod(p.X, width), Y: Mod(p.Y, height)}
}

// In reports whether p lies inside [0,width) x [0,height).
func (p Point) In(width, height int) bool {
	return p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height
}

// Manhattan returns the plain (non-wrapped) Manhattan distance between a and b.
func Manhattan(a, b Point) int {
	return Abs(a.X-b.X) + Abs(a.Y-b.Y)
}

// Mod returns the non-negative remainder of a divided by n.
func Mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

// Abs returns the absolute value of an integer.
func Abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
