package core

// RuntimeConfig contains the parameters a session is created with.
// Sessions use it to size the board and seed deterministic simulation.
type RuntimeConfig struct {
	Width    int    // Board width in cells
	Height   int    // Board height in cells
	MaxTicks int    // Ticks per episode before truncation (0 = unlimited)
	Seed     uint64 // RNG seed for deterministic training
}

// DefaultConfig returns a RuntimeConfig with sensible defaults.
func DefaultConfig() RuntimeConfig {
	return RuntimeConfig{
		Width:    20,
		Height:   20,
		MaxTicks: 1000,
		Seed:     0, // 0 means use current time in the CLI layer
	}
}

// EndReason describes why an episode stopped.
type EndReason string

const (
	EndNone      EndReason = ""
	EndCollision EndReason = "collision"
	EndWall      EndReason = "wall"
	EndTimeout   EndReason = "timeout"
	EndBoardFull EndReason = "board_full"
)

// Done reports whether the reason terminates an episode.
func (r EndReason) Done() bool {
	return r != EndNone
}
