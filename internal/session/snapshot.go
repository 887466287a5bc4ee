package session

import (
	"github.com/vovakirdan/snake-qlearn/internal/core"
	"github.com/vovakirdan/snake-qlearn/internal/snake"
)

// Snapshot captures the episode state for determinism testing and reporting.
type Snapshot struct {
	Episode   int
	Tick      int
	Score     int // Food eaten this episode
	Reward    float64
	SnakeLen  int
	HeadX     int
	HeadY     int
	Dir       snake.Direction
	Foods     []core.Point
	Epsilon   float64
	TableSize int
	Reason    core.EndReason
}

// Snapshot returns the current episode snapshot.
func (s *Session) Snapshot() Snapshot {
	head := s.snake.Head()
	return Snapshot{
		Episode:   s.episode,
		Tick:      s.tick,
		Score:     s.score,
		Reward:    s.reward,
		SnakeLen:  s.snake.Len(),
		HeadX:     head.X,
		HeadY:     head.Y,
		Dir:       s.snake.Dir(),
		Foods:     s.Foods(),
		Epsilon:   s.agent.Epsilon(),
		TableSize: s.agent.TableSize(),
		Reason:    s.ended,
	}
}
