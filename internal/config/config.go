// Package config provides YAML-based configuration loading for training
// sessions: board layout, agent hyperparameters, rewards and storage paths.
package config

import (
	"fmt"

	"github.com/vovakirdan/snake-qlearn/internal/core"
	"github.com/vovakirdan/snake-qlearn/internal/grid"
	"github.com/vovakirdan/snake-qlearn/internal/layout"
	"github.com/vovakirdan/snake-qlearn/internal/qlearn"
)

// Config contains all configuration for a training run.
type Config struct {
	Board    BoardConfig    `yaml:"board"`
	Agent    AgentConfig    `yaml:"agent"`
	Rewards  RewardConfig   `yaml:"rewards"`
	Training TrainingConfig `yaml:"training"`
	Storage  StorageConfig  `yaml:"storage"`
}

// Point is a board coordinate in YAML form.
type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// BoardConfig defines the board and what is placed on it.
type BoardConfig struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	Start     *Point  `yaml:"start"`      // Snake spawn; nil means board center
	FoodCount int     `yaml:"food_count"` // Food kept on the board at once
	Layout    string  `yaml:"layout"`     // Named wall preset, see the layout package
	Walls     []Point `yaml:"walls"`      // Extra walls on top of the layout
}

// AgentConfig defines Q-learning hyperparameters.
type AgentConfig struct {
	Alpha        float64 `yaml:"alpha"`
	Gamma        float64 `yaml:"gamma"`
	Epsilon      float64 `yaml:"epsilon"`
	EpsilonMin   float64 `yaml:"epsilon_min"`
	EpsilonDecay float64 `yaml:"epsilon_decay"` // Applied once per episode; 1.0 disables
	Quantization int32   `yaml:"quantization"`  // State key steps per unit
}

// RewardConfig defines the flat reward signal.
type RewardConfig struct {
	Food      float64 `yaml:"food"`
	Collision float64 `yaml:"collision"`
	Step      float64 `yaml:"step"`
}

// TrainingConfig defines the episode loop.
type TrainingConfig struct {
	Episodes int `yaml:"episodes"`
	MaxTicks int `yaml:"max_ticks"` // 0 = unlimited
	LogEvery int `yaml:"log_every"` // Episodes between progress logs
}

// StorageConfig defines where results go.
type StorageConfig struct {
	DBPath    string `yaml:"db_path"`
	TracePath string `yaml:"trace_path"` // Empty disables the parquet trace
}

// Validate checks the configuration for values the simulation cannot run with.
func (c Config) Validate() error {
	b := c.Board
	if b.Width <= 0 || b.Height <= 0 || b.Width > grid.MaxDimension || b.Height > grid.MaxDimension {
		return fmt.Errorf("config: invalid board size %dx%d", b.Width, b.Height)
	}
	if b.FoodCount < 0 {
		return fmt.Errorf("config: food_count must not be negative, got %d", b.FoodCount)
	}
	if b.Layout != "" && !layout.Exists(b.Layout) {
		return fmt.Errorf("config: unknown layout %q", b.Layout)
	}
	if b.Start != nil && !b.Start.core().In(b.Width, b.Height) {
		return fmt.Errorf("config: start (%d, %d) is outside the board", b.Start.X, b.Start.Y)
	}
	for _, w := range b.Walls {
		if !w.core().In(b.Width, b.Height) {
			return fmt.Errorf("config: wall (%d, %d) is outside the board", w.X, w.Y)
		}
		if w.core() == c.StartPoint() {
			return fmt.Errorf("config: wall (%d, %d) overlaps the start", w.X, w.Y)
		}
	}
	if err := c.AgentParams().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Training.Episodes < 0 || c.Training.MaxTicks < 0 || c.Training.LogEvery < 0 {
		return fmt.Errorf("config: training values must not be negative")
	}
	if c.Training.MaxTicks == 0 && b.FoodCount == 0 {
		return fmt.Errorf("config: max_ticks 0 needs food_count > 0, episodes would never end")
	}
	return nil
}

// AgentParams converts the agent section to qlearn.Params.
func (c Config) AgentParams() qlearn.Params {
	return qlearn.Params{
		Alpha:        c.Agent.Alpha,
		Gamma:        c.Agent.Gamma,
		Epsilon:      c.Agent.Epsilon,
		EpsilonMin:   c.Agent.EpsilonMin,
		EpsilonDecay: c.Agent.EpsilonDecay,
		Quantization: c.Agent.Quantization,
	}
}

// StartPoint returns the snake spawn cell.
func (c Config) StartPoint() core.Point {
	if c.Board.Start != nil {
		return c.Board.Start.core()
	}
	return core.Point{X: c.Board.Width / 2, Y: c.Board.Height / 2}
}

// WallPoints returns the layout walls, which never cover the start cell,
// followed by the explicit walls.
func (c Config) WallPoints() []core.Point {
	var out []core.Point
	if c.Board.Layout != "" {
		out, _ = layout.Walls(c.Board.Layout, c.Board.Width, c.Board.Height, c.StartPoint())
	}
	for _, w := range c.Board.Walls {
		out = append(out, w.core())
	}
	return out
}

// Runtime returns the runtime parameters for a session with the given seed.
func (c Config) Runtime(seed uint64) core.RuntimeConfig {
	return core.RuntimeConfig{
		Width:    c.Board.Width,
		Height:   c.Board.Height,
		MaxTicks: c.Training.MaxTicks,
		Seed:     seed,
	}
}

func (p Point) core() core.Point {
	return core.Point{X: p.X, Y: p.Y}
}
