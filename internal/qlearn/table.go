package qlearn

import (
	"math"

	"github.com/vovakirdan/snake-qlearn/internal/snake"
)

type tableKey struct {
	State  StateKey
	Action snake.Direction
}

// Table stores one value estimate per (state, action). Missing entries read
// as zero and are only created on write.
type Table struct {
	values map[tableKey]float64
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{values: make(map[tableKey]float64)}
}

// Get returns Q(s, a), or 0 when absent.
func (t *Table) Get(s StateKey, a snake.Direction) float64 {
	return t.values[tableKey{State: s, Action: a}]
}

// Set stores Q(s, a).
func (t *Table) Set(s StateKey, a snake.Direction, v float64) {
	t.values[tableKey{State: s, Action: a}] = v
}

// Best returns the action with the highest value for s and that value.
// Ties go to the first action in snake.Directions order.
func (t *Table) Best(s StateKey) (snake.Direction, float64) {
	best := snake.Directions[0]
	bestQ := math.Inf(-1)
	for _, a := range snake.Directions {
		if q := t.Get(s, a); q > bestQ {
			bestQ = q
			best = a
		}
	}
	return best, bestQ
}

// Max returns max over actions of Q(s, a).
func (t *Table) Max(s StateKey) float64 {
	_, q := t.Best(s)
	return q
}

// Len returns the number of stored entries.
func (t *Table) Len() int {
	return len(t.values)
}
