// Package qlearn contains the state encoder and the tabular Q-learning agent
// that steers the snake.
//
// The agent is driven by its caller once per tick in a fixed order:
//
//	Decide -> RememberAction -> (apply move) -> Encode -> Learn
//
// Calling out of order pairs the wrong state with an action. The agent is not
// safe for concurrent use.
package qlearn

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/vovakirdan/snake-qlearn/internal/snake"
)

// DefaultQuantization is the number of key steps per unit of feature value.
const DefaultQuantization int32 = 10000

// Params are the agent hyperparameters.
type Params struct {
	Alpha        float64 // Learning rate
	Gamma        float64 // Discount factor
	Epsilon      float64 // Exploration rate
	EpsilonMin   float64 // Floor for DecayEpsilon
	EpsilonDecay float64 // Multiplier applied by DecayEpsilon (1 = no decay)
	Quantization int32   // State key resolution
}

// DefaultParams returns α=0.1, γ=0.9, ε=0.1 with decay disabled.
func DefaultParams() Params {
	return Params{
		Alpha:        0.1,
		Gamma:        0.9,
		Epsilon:      0.1,
		EpsilonMin:   0.0,
		EpsilonDecay: 1.0,
		Quantization: DefaultQuantization,
	}
}

// Validate checks that the parameters describe a usable agent.
func (p Params) Validate() error {
	switch {
	case p.Alpha <= 0 || p.Alpha > 1:
		return fmt.Errorf("qlearn: alpha must be in (0, 1], got %v", p.Alpha)
	case p.Gamma < 0 || p.Gamma > 1:
		return fmt.Errorf("qlearn: gamma must be in [0, 1], got %v", p.Gamma)
	case p.Epsilon < 0 || p.Epsilon > 1:
		return fmt.Errorf("qlearn: epsilon must be in [0, 1], got %v", p.Epsilon)
	case p.EpsilonMin < 0 || p.EpsilonMin > 1:
		return fmt.Errorf("qlearn: epsilon_min must be in [0, 1], got %v", p.EpsilonMin)
	case p.EpsilonDecay <= 0 || p.EpsilonDecay > 1:
		return fmt.Errorf("qlearn: epsilon_decay must be in (0, 1], got %v", p.EpsilonDecay)
	case p.Quantization <= 0:
		return fmt.Errorf("qlearn: quantization must be positive, got %d", p.Quantization)
	}
	return nil
}

// Agent is an epsilon-greedy tabular Q-learner.
type Agent struct {
	table  *Table
	params Params
	rng    *rand.Rand

	// Single-slot memory of the previous step
	lastState  StateKey
	hasState   bool
	lastAction snake.Direction
	hasAction  bool
}

// NewAgent creates an agent with DefaultParams.
func NewAgent(rng *rand.Rand) *Agent {
	return NewAgentWithParams(DefaultParams(), rng)
}

// NewAgentWithParams creates an agent with the given hyperparameters.
// A zero Quantization falls back to DefaultQuantization.
func NewAgentWithParams(p Params, rng *rand.Rand) *Agent {
	if p.Quantization <= 0 {
		p.Quantization = DefaultQuantization
	}
	return &Agent{
		table:  NewTable(),
		params: p,
		rng:    rng,
	}
}

// Decide picks the next direction for state.
// With probability ε a uniformly random direction is explored; otherwise
// the best known action is exploited.
func (a *Agent) Decide(state State) snake.Direction {
	if a.rng.Float64() < a.params.Epsilon {
		return snake.Directions[a.rng.Intn(len(snake.Directions))]
	}
	best, _ := a.table.Best(a.key(state))
	return best
}

// RememberAction records the action taken from the most recently learned state.
func (a *Agent) RememberAction(d snake.Direction) {
	a.lastAction = d
	a.hasAction = true
}

// Learn applies the one-step TD update to the remembered (state, action)
// using reward and newState, then remembers newState. On the first call
// there is nothing to update and only the state is stored.
func (a *Agent) Learn(newState State, reward float64) {
	key := a.key(newState)

	if a.hasState && a.hasAction {
		old := a.table.Get(a.lastState, a.lastAction)
		future := a.table.Max(key)
		updated := old + a.params.Alpha*(reward+a.params.Gamma*future-old)
		a.table.Set(a.lastState, a.lastAction, updated)
	}

	a.lastState = key
	a.hasState = true
}

// Forget clears the previous (state, action) memory. Call between episodes
// so the last step of one episode is not paired with the next.
func (a *Agent) Forget() {
	a.hasState = false
	a.hasAction = false
}

// DecayEpsilon multiplies ε by the decay factor, never going below EpsilonMin.
func (a *Agent) DecayEpsilon() {
	a.params.Epsilon = math.Max(a.params.EpsilonMin, a.params.Epsilon*a.params.EpsilonDecay)
}

// Q returns the current estimate for (state, d).
func (a *Agent) Q(state State, d snake.Direction) float64 {
	return a.table.Get(a.key(state), d)
}

// Key quantizes state with the agent's resolution.
func (a *Agent) Key(state State) StateKey {
	return a.key(state)
}

// Epsilon returns the current exploration rate.
func (a *Agent) Epsilon() float64 {
	return a.params.Epsilon
}

// Params returns the current hyperparameters.
func (a *Agent) Params() Params {
	return a.params
}

// TableSize returns the number of (state, action) entries learned so far.
func (a *Agent) TableSize() int {
	return a.table.Len()
}

func (a *Agent) key(state State) StateKey {
	return state.Key(a.params.Quantization)
}
