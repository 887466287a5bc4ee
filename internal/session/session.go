// Package session drives one snake and one agent through training episodes.
//
// A Session owns the grid, the snake and the food set. Each Step is one tick:
// the agent observes, picks a direction, the snake moves, collisions and food
// are resolved, and the agent learns from the reward.
package session

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/exp/rand"

	"github.com/vovakirdan/snake-qlearn/internal/core"
	"github.com/vovakirdan/snake-qlearn/internal/grid"
	"github.com/vovakirdan/snake-qlearn/internal/qlearn"
	"github.com/vovakirdan/snake-qlearn/internal/snake"
)

// Rewards is the flat reward signal handed to the agent.
type Rewards struct {
	Food      float64
	Collision float64
	Step      float64
}

// DefaultRewards returns +10 for food, -10 for a collision and 0 otherwise.
func DefaultRewards() Rewards {
	return Rewards{Food: 10, Collision: -10}
}

// Config describes the board a session plays on.
type Config struct {
	Width     int
	Height    int
	MaxTicks  int // Ticks per episode, 0 = unlimited
	FoodCount int // Food kept on the board
	Start     core.Point
	Walls     []core.Point
	Rewards   Rewards
}

// DefaultConfig returns a 20x20 board with one food and the snake in the center.
func DefaultConfig() Config {
	return FromRuntime(core.DefaultConfig())
}

// FromRuntime builds a Config for rt's board with one food, default rewards
// and the snake in the center.
func FromRuntime(rt core.RuntimeConfig) Config {
	return Config{
		Width:     rt.Width,
		Height:    rt.Height,
		MaxTicks:  rt.MaxTicks,
		FoodCount: 1,
		Start:     core.Point{X: rt.Width / 2, Y: rt.Height / 2},
		Rewards:   DefaultRewards(),
	}
}

// Transition is one learning step as seen by the agent.
type Transition struct {
	Episode int
	Tick    int
	State   qlearn.State
	Action  snake.Direction
	Reward  float64
	Next    qlearn.State
	Done    bool
}

// Observer receives every transition after the agent has learned from it.
type Observer func(Transition)

// StepResult reports the outcome of one tick.
type StepResult struct {
	Action snake.Direction
	Reward float64
	Ate    bool
	Done   bool
	Reason core.EndReason
}

// Session runs episodes for a single agent. It is not safe for concurrent use.
type Session struct {
	cfg   Config
	agent *qlearn.Agent
	rng   *rand.Rand

	grid  *grid.Grid
	snake *snake.Snake
	foods []core.Point

	episode  int
	tick     int
	score    int
	reward   float64 // Cumulative reward in the current episode
	ended    core.EndReason
	observer Observer
}

// New creates a session and starts its first episode.
func New(cfg Config, agent *qlearn.Agent, rng *rand.Rand) (*Session, error) {
	g, err := grid.New(cfg.Width, cfg.Height)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if !cfg.Start.In(cfg.Width, cfg.Height) {
		return nil, fmt.Errorf("session: start (%d, %d) is outside the board", cfg.Start.X, cfg.Start.Y)
	}
	if cfg.MaxTicks < 0 || cfg.FoodCount < 0 {
		return nil, fmt.Errorf("session: negative max ticks or food count")
	}
	if agent == nil || rng == nil {
		return nil, fmt.Errorf("session: agent and rng are required")
	}

	s := &Session{
		cfg:   cfg,
		agent: agent,
		rng:   rng,
		grid:  g,
	}
	s.Reset()
	return s, nil
}

// SetObserver installs fn to receive transitions. Nil removes it.
func (s *Session) SetObserver(fn Observer) {
	s.observer = fn
}

// Reset starts a new episode: fresh snake at the start point, walls and
// food restored, and the agent's step memory cleared.
func (s *Session) Reset() {
	s.episode++
	s.tick = 0
	s.score = 0
	s.reward = 0
	s.ended = core.EndNone

	s.grid.Reset()
	for _, w := range s.cfg.Walls {
		s.grid.SetCell(w.X, w.Y, grid.Wall)
	}

	s.snake = snake.New(s.cfg.Start.X, s.cfg.Start.Y)
	s.grid.SyncSnake(s.snake.Body())

	s.foods = s.foods[:0]
	s.replenishFood()

	s.agent.Forget()
}

// Step advances the episode by one tick. Calling Step after the episode has
// ended does nothing and reports the end again.
func (s *Session) Step() StepResult {
	if s.ended.Done() {
		return StepResult{Action: s.snake.Dir(), Done: true, Reason: s.ended}
	}

	state := qlearn.Encode(s.snake, s.foods, s.cfg.Width, s.cfg.Height)
	action := s.agent.Decide(state)
	s.agent.RememberAction(action)
	s.snake.SetDir(action)
	s.snake.Update(s.cfg.Width, s.cfg.Height)
	s.tick++

	head := s.snake.Head()
	reason := core.EndNone
	switch {
	case s.snake.IsCollision(head):
		reason = core.EndCollision
	case s.grid.At(head) == grid.Wall:
		reason = core.EndWall
	}

	ate := false
	if !reason.Done() {
		if i := slices.Index(s.foods, head); i >= 0 {
			s.foods = slices.Delete(s.foods, i, i+1)
			s.grid.ClearFood(head)
			s.snake.Grow()
			s.score++
			ate = true
		}
	}

	s.grid.SyncSnake(s.snake.Body())
	s.replenishFood()

	if !reason.Done() && s.cfg.FoodCount > 0 && len(s.foods) == 0 {
		reason = core.EndBoardFull
	}
	if !reason.Done() && s.cfg.MaxTicks > 0 && s.tick >= s.cfg.MaxTicks {
		reason = core.EndTimeout
	}

	next := qlearn.Encode(s.snake, s.foods, s.cfg.Width, s.cfg.Height)

	var reward float64
	switch {
	case reason == core.EndCollision || reason == core.EndWall:
		reward = s.cfg.Rewards.Collision
	case ate:
		reward = s.cfg.Rewards.Food
	default:
		reward = s.cfg.Rewards.Step
	}
	s.agent.Learn(next, reward)
	s.reward += reward

	if reason.Done() {
		s.ended = reason
		s.agent.Forget()
	}

	if s.observer != nil {
		s.observer(Transition{
			Episode: s.episode,
			Tick:    s.tick,
			State:   state,
			Action:  action,
			Reward:  reward,
			Next:    next,
			Done:    reason.Done(),
		})
	}

	return StepResult{
		Action: action,
		Reward: reward,
		Ate:    ate,
		Done:   reason.Done(),
		Reason: reason,
	}
}

// ctxCheckTicks is how many ticks RunEpisode plays between context checks.
const ctxCheckTicks = 1024

// RunEpisode steps until the current episode ends and returns its snapshot.
// With MaxTicks 0 the episode may never end on its own, so ctx is polled
// every ctxCheckTicks ticks. On cancellation the episode is left unfinished
// and ctx.Err() is returned with the snapshot so far.
func (s *Session) RunEpisode(ctx context.Context) (Snapshot, error) {
	for !s.ended.Done() {
		if s.tick%ctxCheckTicks == 0 {
			if err := ctx.Err(); err != nil {
				return s.Snapshot(), err
			}
		}
		s.Step()
	}
	return s.Snapshot(), nil
}

// replenishFood places food until FoodCount is reached or the board is full.
func (s *Session) replenishFood() {
	for len(s.foods) < s.cfg.FoodCount {
		p, ok := s.grid.PlaceFood(s.rng, s.snake.Body())
		if !ok {
			return
		}
		s.foods = append(s.foods, p)
	}
}

// Grid returns the board. Callers must not modify it.
func (s *Session) Grid() *grid.Grid {
	return s.grid
}

// Body returns a copy of the snake body, head first.
func (s *Session) Body() []core.Point {
	return s.snake.Body()
}

// Foods returns a copy of the current food positions.
func (s *Session) Foods() []core.Point {
	return slices.Clone(s.foods)
}

// Agent returns the agent the session trains.
func (s *Session) Agent() *qlearn.Agent {
	return s.agent
}

// Episode returns the 1-based index of the current episode.
func (s *Session) Episode() int {
	return s.episode
}

// Done reports whether the current episode has ended.
func (s *Session) Done() bool {
	return s.ended.Done()
}
