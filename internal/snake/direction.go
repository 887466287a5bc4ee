package snake

// Direction represents the snake's movement direction.
type Direction uint8

// The declaration order is the enumeration order used for tie breaking.
const (
	Up Direction = iota
	Down
	Left
	Right
)

// Directions lists every direction in enumeration order.
var Directions = [4]Direction{Up, Down, Left, Right}

// Opposite returns the direction pointing the other way.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

// TurnLeft returns the direction after a 90° counter-clockwise turn.
func (d Direction) TurnLeft() Direction {
	switch d {
	case Up:
		return Left
	case Down:
		return Right
	case Left:
		return Down
	default:
		return Up
	}
}

// TurnRight returns the direction after a 90° clockwise turn.
func (d Direction) TurnRight() Direction {
	switch d {
	case Up:
		return Right
	case Down:
		return Left
	case Left:
		return Up
	default:
		return Down
	}
}

// Delta returns the unit step for the direction. Y grows downwards.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	default:
		return 1, 0
	}
}

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	return d <= Right
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}
