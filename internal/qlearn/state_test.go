package qlearn

import (
	"testing"

	"github.com/vovakirdan/snake-qlearn/internal/core"
	"github.com/vovakirdan/snake-qlearn/internal/snake"
)

// longSnake builds a snake heading right whose body trails to the left of (x, y).
func longSnake(x, y, length, width, height int) *snake.Snake {
	s := snake.New(x-length+1, y)
	for i := 0; i < length-1; i++ {
		s.Grow()
		s.Update(width, height)
	}
	return s
}

func TestEncodeSingleSegment(t *testing.T) {
	s := snake.New(5, 5)
	st := Encode(s, []core.Point{{X: 8, Y: 3}}, 10, 10)

	expected := State{0, 0, 0, 0.5, 0.5, 0.3, -0.2, 1, 0, 0, 0, 1}
	for i := range expected {
		if st[i] != expected[i] {
			t.Errorf("feature %d = %v, expected %v", i, st[i], expected[i])
		}
	}
}

func TestEncodeNoFood(t *testing.T) {
	s := snake.New(2, 7)
	st := Encode(s, nil, 10, 10)

	if st[FeatFoodDX] != 0 || st[FeatFoodDY] != 0 {
		t.Errorf("Expected zero food vector, got (%v, %v)", st[FeatFoodDX], st[FeatFoodDY])
	}
}

func TestEncodeNearestFoodFirstWins(t *testing.T) {
	s := snake.New(5, 5)
	foods := []core.Point{
		{X: 9, Y: 9}, // distance 8
		{X: 5, Y: 7}, // distance 2, first minimum
		{X: 7, Y: 5}, // distance 2, later
	}
	st := Encode(s, foods, 10, 10)

	if st[FeatFoodDX] != 0 || st[FeatFoodDY] != 0.2 {
		t.Errorf("Expected vector to (5,7), got (%v, %v)", st[FeatFoodDX], st[FeatFoodDY])
	}
}

func TestEncodeDangers(t *testing.T) {
	// Hook-shaped body with the head at (6,5) heading down.
	s := snake.New(5, 5)
	s.SetDir(snake.Up)
	s.Grow()
	s.Update(10, 10) // (5,4),(5,5)
	s.SetDir(snake.Right)
	s.Grow()
	s.Update(10, 10) // (6,4),(5,4),(5,5)
	s.SetDir(snake.Down)
	s.Grow()
	s.Update(10, 10) // (6,5),(6,4),(5,4),(5,5)

	st := Encode(s, nil, 10, 10)

	// Heading down: ahead (6,6) free, left of down is right (7,5) free,
	// right of down is left (5,5) occupied.
	if st[FeatDangerAhead] != 0 {
		t.Errorf("danger ahead = %v, expected 0", st[FeatDangerAhead])
	}
	if st[FeatDangerLeft] != 0 {
		t.Errorf("danger left = %v, expected 0", st[FeatDangerLeft])
	}
	if st[FeatDangerRight] != 1 {
		t.Errorf("danger right = %v, expected 1", st[FeatDangerRight])
	}
	if st[FeatDirDown] != 1 || st[FeatDirUp]+st[FeatDirLeft]+st[FeatDirRight] != 0 {
		t.Error("Direction one-hot should mark only down")
	}
	if st[FeatLength] != 4 {
		t.Errorf("length = %v, expected 4", st[FeatLength])
	}
}

func TestEncodeDangerWraps(t *testing.T) {
	// Head at x=0 heading right with the body wrapped onto x=9.
	s := longSnake(9, 3, 3, 10, 10) // (9,3),(8,3),(7,3)
	s.Update(10, 10)                // (0,3),(9,3),(8,3)

	s.SetDir(snake.Up)
	s.Update(10, 10) // (0,2),(0,3),(9,3)
	s.SetDir(snake.Left)
	st := Encode(s, nil, 10, 10)

	// Heading left from (0,2): ahead wraps to (9,2), free. Left of left is
	// down (0,3), occupied.
	if st[FeatDangerAhead] != 0 {
		t.Errorf("danger ahead = %v, expected 0", st[FeatDangerAhead])
	}
	if st[FeatDangerLeft] != 1 {
		t.Errorf("danger left = %v, expected 1", st[FeatDangerLeft])
	}
}

func TestEncodeDeterministic(t *testing.T) {
	s := longSnake(6, 4, 4, 12, 9)
	foods := []core.Point{{X: 1, Y: 1}, {X: 11, Y: 8}}

	a := Encode(s, foods, 12, 9)
	b := Encode(s, foods, 12, 9)
	if a != b {
		t.Errorf("Encode is not deterministic: %v vs %v", a, b)
	}
	if a.Key(DefaultQuantization) != b.Key(DefaultQuantization) {
		t.Error("Keys of equal states differ")
	}
}

func TestStateKeyQuantization(t *testing.T) {
	st := State{1, 0, 0, 1.0 / 3.0, 0.5, -0.25, 0.1, 3, 0, 0, 0, 1}
	k := st.Key(1000)

	expected := StateKey{1000, 0, 0, 333, 500, -250, 100, 3000, 0, 0, 0, 1000}
	if k != expected {
		t.Errorf("Key() = %v, expected %v", k, expected)
	}

	// Values differing by less than half a step share a key.
	near := st
	near[FeatHeadX] += 1e-7
	if near.Key(1000) != k {
		t.Error("Nearly equal states should share a key")
	}
}

func TestStateKeyLargeLength(t *testing.T) {
	// Longest possible snake on the largest board
	var st State
	st[FeatLength] = 4096 * 4096

	k := st.Key(DefaultQuantization)
	if want := int64(4096*4096) * int64(DefaultQuantization); k[FeatLength] != want {
		t.Errorf("Length key = %d, expected %d", k[FeatLength], want)
	}
}
