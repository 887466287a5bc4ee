package qlearn

import (
	"math"

	"github.com/vovakirdan/snake-qlearn/internal/core"
	"github.com/vovakirdan/snake-qlearn/internal/snake"
)

// Feature indices into State.
const (
	FeatDangerAhead = iota
	FeatDangerLeft
	FeatDangerRight
	FeatHeadX
	FeatHeadY
	FeatFoodDX
	FeatFoodDY
	FeatLength
	FeatDirUp
	FeatDirDown
	FeatDirLeft
	FeatDirRight

	NumFeatures
)

// State is the feature vector the agent observes.
type State [NumFeatures]float64

// StateKey is a State quantized to integers so it can be hashed exactly.
type StateKey [NumFeatures]int64

// Key rounds every feature multiplied by quantization to the nearest integer.
// Equal states always produce equal keys; states closer than 1/quantization
// in every feature share a key.
func (s State) Key(quantization int32) StateKey {
	var k StateKey
	q := float64(quantization)
	for i, v := range s {
		k[i] = int64(math.Round(v * q))
	}
	return k
}

// Encode builds the State for snake s on a width x height torus.
//
// Dangers look one cell ahead, left and right of the heading and flag a body
// segment (head excluded). The food vector points at the nearest food by
// Manhattan distance; the first of several equally near foods wins.
func Encode(s *snake.Snake, foods []core.Point, width, height int) State {
	var st State

	head := s.Head()
	dir := s.Dir()
	w, h := float64(width), float64(height)

	danger := func(d snake.Direction) float64 {
		dx, dy := d.Delta()
		if s.IsCollision(head.Add(dx, dy).Wrap(width, height)) {
			return 1
		}
		return 0
	}
	st[FeatDangerAhead] = danger(dir)
	st[FeatDangerLeft] = danger(dir.TurnLeft())
	st[FeatDangerRight] = danger(dir.TurnRight())

	st[FeatHeadX] = float64(head.X) / w
	st[FeatHeadY] = float64(head.Y) / h

	if food, ok := nearestFood(head, foods); ok {
		st[FeatFoodDX] = float64(food.X-head.X) / w
		st[FeatFoodDY] = float64(food.Y-head.Y) / h
	}

	st[FeatLength] = float64(s.Len())

	switch dir {
	case snake.Up:
		st[FeatDirUp] = 1
	case snake.Down:
		st[FeatDirDown] = 1
	case snake.Left:
		st[FeatDirLeft] = 1
	case snake.Right:
		st[FeatDirRight] = 1
	}

	return st
}

func nearestFood(head core.Point, foods []core.Point) (core.Point, bool) {
	var best core.Point
	bestDist := math.MaxInt
	for _, f := range foods {
		if d := core.Manhattan(head, f); d < bestDist {
			bestDist = d
			best = f
		}
	}
	return best, bestDist != math.MaxInt
}
