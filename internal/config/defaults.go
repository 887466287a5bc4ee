package config

import (
	_ "embed"
)

//go:embed defaults/snakeql.yaml
var defaultYAML []byte

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Board: BoardConfig{
			Width:     20,
			Height:    20,
			FoodCount: 1,
			Layout:    "open",
		},
		Agent: AgentConfig{
			Alpha:        0.1,
			Gamma:        0.9,
			Epsilon:      0.1,
			EpsilonMin:   0.0,
			EpsilonDecay: 1.0,
			Quantization: 10000,
		},
		Rewards: RewardConfig{
			Food:      10,
			Collision: -10,
			Step:      0,
		},
		Training: TrainingConfig{
			Episodes: 1000,
			MaxTicks: 2000,
			LogEvery: 100,
		},
		Storage: StorageConfig{
			DBPath: "~/.snakeql/runs.db",
		},
	}
}

// GetDefaultYAML returns the embedded default YAML.
func GetDefaultYAML() []byte {
	return defaultYAML
}
