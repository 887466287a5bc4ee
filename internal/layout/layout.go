// Package layout provides a global registry of named wall layouts.
// Layouts register themselves in init() functions, allowing the config
// layer to look them up by name without hardcoded dependencies.
package layout

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vovakirdan/snake-qlearn/internal/core"
)

// Factory returns the wall cells of a layout for a width x height board.
// Cells outside the board are dropped by Walls.
type Factory func(width, height int) []core.Point

// Info contains metadata about a registered layout.
type Info struct {
	ID    string
	Title string
}

type entry struct {
	title   string
	factory Factory
}

var (
	layouts = make(map[string]entry)
	mu      sync.RWMutex
)

// Register adds a layout to the registry.
// Panics if a layout with the same ID is already registered.
func Register(id, title string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := layouts[id]; exists {
		panic(fmt.Sprintf("layout: %q already registered", id))
	}
	layouts[id] = entry{title: title, factory: f}
}

// List returns information about all registered layouts, sorted by ID.
func List() []Info {
	mu.RLock()
	defer mu.RUnlock()

	result := make([]Info, 0, len(layouts))
	for id, e := range layouts {
		result = append(result, Info{ID: id, Title: e.title})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result
}

// Exists checks if a layout with the given ID is registered.
func Exists(id string) bool {
	mu.RLock()
	defer mu.RUnlock()

	_, ok := layouts[id]
	return ok
}

// Walls returns the walls of layout id on a width x height board, with
// duplicates and off-board cells removed and skip left free.
// Returns an error if the layout ID is not registered.
func Walls(id string, width, height int, skip ...core.Point) ([]core.Point, error) {
	mu.RLock()
	e, ok := layouts[id]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("layout: unknown layout %q", id)
	}

	free := make(map[core.Point]bool, len(skip))
	for _, p := range skip {
		free[p] = true
	}

	seen := make(map[core.Point]bool)
	var out []core.Point
	for _, p := range e.factory(width, height) {
		if !p.In(width, height) || free[p] || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}

func init() {
	Register("open", "Open torus, no walls", func(int, int) []core.Point {
		return nil
	})

	Register("box", "Walled border, wraparound blocked", func(w, h int) []core.Point {
		var out []core.Point
		for x := 0; x < w; x++ {
			out = append(out, core.Point{X: x, Y: 0}, core.Point{X: x, Y: h - 1})
		}
		for y := 1; y < h-1; y++ {
			out = append(out, core.Point{X: 0, Y: y}, core.Point{X: w - 1, Y: y})
		}
		return out
	})

	Register("pillars", "Single-cell pillars every fourth cell", func(w, h int) []core.Point {
		var out []core.Point
		for y := 2; y < h; y += 4 {
			for x := 2; x < w; x += 4 {
				out = append(out, core.Point{X: x, Y: y})
			}
		}
		return out
	})

	Register("bars", "Two horizontal bars with a gap in the middle", func(w, h int) []core.Point {
		var out []core.Point
		gapLo, gapHi := w/2-1, w/2+1
		for _, y := range []int{h / 4, h - 1 - h/4} {
			for x := 0; x < w; x++ {
				if x >= gapLo && x <= gapHi {
					continue
				}
				out = append(out, core.Point{X: x, Y: y})
			}
		}
		return out
	})
}
