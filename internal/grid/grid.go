// Package grid implements the board the snake lives on: a fixed-size array of
// cells marked empty, snake, food or wall.
//
// Cell marks are a derived cache. Snake cells are rewritten from the snake
// body by SyncSnake after every move and the grid never decides collisions
// on its own.
package grid

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/vovakirdan/snake-qlearn/internal/core"
)

// MaxDimension bounds width and height accepted by New.
const MaxDimension = 4096

// Cell is the content of one board position.
type Cell uint8

const (
	Empty Cell = iota
	SnakeSegment
	Food
	Wall
)

func (c Cell) String() string {
	switch c {
	case Empty:
		return "empty"
	case SnakeSegment:
		return "snake"
	case Food:
		return "food"
	case Wall:
		return "wall"
	default:
		return "unknown"
	}
}

// Grid holds the board cells. The backing array has one spare row and
// column; only [0,width) x [0,height) is addressed.
type Grid struct {
	width  int
	height int
	cells  [][]Cell
}

// New allocates a width x height grid of empty cells.
func New(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("grid: invalid dimensions %dx%d", width, height)
	}

	g := &Grid{width: width, height: height}
	g.cells = make([][]Cell, height+1)
	for y := range g.cells {
		g.cells[y] = make([]Cell, width+1)
	}
	return g, nil
}

// Size returns the board width and height.
func (g *Grid) Size() (int, int) {
	return g.width, g.height
}

// SetCell overwrites the cell at (x, y).
// Coordinates outside the board are ignored.
func (g *Grid) SetCell(x, y int, c Cell) {
	if !g.inBounds(x, y) {
		return
	}
	g.cells[y][x] = c
}

// Cell returns the content at (x, y). Out-of-range reads return Empty.
func (g *Grid) Cell(x, y int) Cell {
	if !g.inBounds(x, y) {
		return Empty
	}
	return g.cells[y][x]
}

// At is Cell for a point.
func (g *Grid) At(p core.Point) Cell {
	return g.Cell(p.X, p.Y)
}

// SyncSnake clears every snake cell and marks the given positions.
// Wall cells keep their value. Call once per tick after the snake moves.
func (g *Grid) SyncSnake(positions []core.Point) {
	for y := range g.cells {
		for x := range g.cells[y] {
			if g.cells[y][x] == SnakeSegment {
				g.cells[y][x] = Empty
			}
		}
	}
	for _, p := range positions {
		if g.At(p) == Wall {
			continue
		}
		g.SetCell(p.X, p.Y, SnakeSegment)
	}
}

// PlaceFood marks a uniformly chosen free cell as food and returns it.
// A cell is free when it is not in forbidden and holds neither a wall nor
// food. When no cell is free the grid is left unchanged and ok is false.
func (g *Grid) PlaceFood(rng *rand.Rand, forbidden []core.Point) (p core.Point, ok bool) {
	blocked := make(map[core.Point]struct{}, len(forbidden))
	for _, f := range forbidden {
		blocked[f] = struct{}{}
	}

	// Collect all free cells
	var available []core.Point
	for x := 0; x < g.width; x++ {
		for y := 0; y < g.height; y++ {
			c := core.Point{X: x, Y: y}
			if _, taken := blocked[c]; taken {
				continue
			}
			if cell := g.cells[y][x]; cell == Wall || cell == Food {
				continue
			}
			available = append(available, c)
		}
	}

	if len(available) == 0 {
		return core.Point{}, false
	}

	p = available[rng.Intn(len(available))]
	g.cells[p.Y][p.X] = Food
	return p, true
}

// ClearFood resets p to Empty if it currently holds food.
func (g *Grid) ClearFood(p core.Point) {
	if g.At(p) == Food {
		g.cells[p.Y][p.X] = Empty
	}
}

// Foods returns every food cell in row-major order.
func (g *Grid) Foods() []core.Point {
	var out []core.Point
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			if g.cells[y][x] == Food {
				out = append(out, core.Point{X: x, Y: y})
			}
		}
	}
	return out
}

// Count returns how many addressable cells hold c.
func (g *Grid) Count(c Cell) int {
	n := 0
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			if g.cells[y][x] == c {
				n++
			}
		}
	}
	return n
}

// Reset empties every cell.
func (g *Grid) Reset() {
	for y := range g.cells {
		for x := range g.cells[y] {
			g.cells[y][x] = Empty
		}
	}
}

func (g *Grid) inBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}
