// Package trainer runs a Q-learning agent through many snake episodes and
// reports the results to optional sinks.
package trainer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/exp/rand"

	"github.com/vovakirdan/snake-qlearn/internal/config"
	"github.com/vovakirdan/snake-qlearn/internal/core"
	"github.com/vovakirdan/snake-qlearn/internal/qlearn"
	"github.com/vovakirdan/snake-qlearn/internal/session"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// RunInfo describes a run when it starts.
type RunInfo struct {
	ID        string
	Seed      uint64
	Width     int
	Height    int
	Episodes  int // Planned episodes
	Params    qlearn.Params
	StartedAt time.Time
}

// EpisodeResult is the outcome of one finished episode.
type EpisodeResult struct {
	RunID     string
	Episode   int
	Ticks     int
	Score     int
	Length    int
	Reward    float64
	Reason    core.EndReason
	Epsilon   float64 // Exploration rate the episode was played with
	TableSize int
}

// Summary aggregates a whole run.
type Summary struct {
	RunID        string
	Seed         uint64
	Status       string
	Episodes     int // Episodes actually played
	BestScore    int
	BestEpisode  int
	MeanScore    float64
	TotalTicks   int
	TableSize    int
	FinalEpsilon float64
	Duration     time.Duration
}

// ResultSink persists run and episode results.
type ResultSink interface {
	StartRun(info RunInfo) error
	SaveEpisodeResult(res EpisodeResult) error
	FinishRun(sum Summary) error
}

// TraceSink records every transition of a run.
type TraceSink interface {
	Record(runID string, tr session.Transition, key qlearn.StateKey) error
}

// Sinks groups the optional outputs of a run. Nil sinks are skipped.
type Sinks struct {
	Results ResultSink
	Trace   TraceSink
}

// Options control a single run.
type Options struct {
	Seed   uint64
	RunID  string      // Generated when empty
	Logger *log.Logger // Discards output when nil
}

// Run plays cfg.Training.Episodes episodes on the calling goroutine.
// The context is also checked inside long episodes. A cancelled run drops the
// unfinished episode, still reports its partial summary to the result sink
// and returns ctx.Err().
func Run(ctx context.Context, cfg config.Config, opts Options, sinks Sinks) (Summary, error) {
	if err := cfg.Validate(); err != nil {
		return Summary{}, fmt.Errorf("trainer: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	rt := cfg.Runtime(opts.Seed)
	envRNG := rand.New(rand.NewSource(rt.Seed))
	agentRNG := rand.New(rand.NewSource(envRNG.Uint64()))
	agent := qlearn.NewAgentWithParams(cfg.AgentParams(), agentRNG)

	sess, err := session.New(sessionConfig(cfg, rt), agent, envRNG)
	if err != nil {
		return Summary{}, fmt.Errorf("trainer: %w", err)
	}

	started := time.Now()
	info := RunInfo{
		ID:        runID,
		Seed:      opts.Seed,
		Width:     cfg.Board.Width,
		Height:    cfg.Board.Height,
		Episodes:  cfg.Training.Episodes,
		Params:    agent.Params(),
		StartedAt: started,
	}
	if sinks.Results != nil {
		if err := sinks.Results.StartRun(info); err != nil {
			return Summary{}, fmt.Errorf("trainer: cannot start run: %w", err)
		}
	}

	var traceErr error
	if sinks.Trace != nil {
		sess.SetObserver(func(tr session.Transition) {
			if traceErr != nil {
				return
			}
			traceErr = sinks.Trace.Record(runID, tr, agent.Key(tr.State))
		})
	}

	logger.Info("training started",
		"run", runID,
		"seed", opts.Seed,
		"board", fmt.Sprintf("%dx%d", cfg.Board.Width, cfg.Board.Height),
		"episodes", cfg.Training.Episodes,
	)

	sum := Summary{RunID: runID, Seed: opts.Seed, Status: StatusCompleted}
	var (
		totalScore  int
		windowScore int
		windowCount int
		runErr      error
	)

	for ep := 1; ep <= cfg.Training.Episodes; ep++ {
		if err := ctx.Err(); err != nil {
			sum.Status = StatusCancelled
			runErr = err
			break
		}
		if ep > 1 {
			sess.Reset()
		}

		eps := agent.Epsilon()
		snap, err := sess.RunEpisode(ctx)
		if err != nil {
			sum.Status = StatusCancelled
			runErr = err
			break
		}
		agent.DecayEpsilon()

		if traceErr != nil {
			sum.Status = StatusFailed
			runErr = fmt.Errorf("trainer: trace failed: %w", traceErr)
			break
		}

		res := EpisodeResult{
			RunID:     runID,
			Episode:   ep,
			Ticks:     snap.Tick,
			Score:     snap.Score,
			Length:    snap.SnakeLen,
			Reward:    snap.Reward,
			Reason:    snap.Reason,
			Epsilon:   eps,
			TableSize: snap.TableSize,
		}
		if sinks.Results != nil {
			if err := sinks.Results.SaveEpisodeResult(res); err != nil {
				sum.Status = StatusFailed
				runErr = fmt.Errorf("trainer: cannot save episode %d: %w", ep, err)
				break
			}
		}

		sum.Episodes = ep
		sum.TotalTicks += snap.Tick
		totalScore += snap.Score
		if snap.Score > sum.BestScore || sum.BestEpisode == 0 {
			sum.BestScore = snap.Score
			sum.BestEpisode = ep
		}

		windowScore += snap.Score
		windowCount++
		if cfg.Training.LogEvery > 0 && ep%cfg.Training.LogEvery == 0 {
			logger.Info("progress",
				"episode", ep,
				"avg_score", float64(windowScore)/float64(windowCount),
				"best", sum.BestScore,
				"epsilon", agent.Epsilon(),
				"states", agent.TableSize(),
			)
			windowScore, windowCount = 0, 0
		}
		logger.Debug("episode finished",
			"episode", ep,
			"score", snap.Score,
			"ticks", snap.Tick,
			"reason", snap.Reason,
		)
	}

	if sum.Episodes > 0 {
		sum.MeanScore = float64(totalScore) / float64(sum.Episodes)
	}
	sum.TableSize = agent.TableSize()
	sum.FinalEpsilon = agent.Epsilon()
	sum.Duration = time.Since(started)

	if sinks.Results != nil {
		if err := sinks.Results.FinishRun(sum); err != nil && runErr == nil {
			runErr = fmt.Errorf("trainer: cannot finish run: %w", err)
		}
	}

	switch sum.Status {
	case StatusCancelled:
		logger.Warn("training cancelled", "run", runID, "episodes", sum.Episodes)
	case StatusFailed:
		logger.Error("training failed", "run", runID, "err", runErr)
	default:
		logger.Info("training finished",
			"run", runID,
			"episodes", sum.Episodes,
			"best", sum.BestScore,
			"mean", fmt.Sprintf("%.2f", sum.MeanScore),
			"states", sum.TableSize,
			"elapsed", sum.Duration.Round(time.Millisecond),
		)
	}

	return sum, runErr
}

func sessionConfig(cfg config.Config, rt core.RuntimeConfig) session.Config {
	sc := session.FromRuntime(rt)
	sc.FoodCount = cfg.Board.FoodCount
	sc.Start = cfg.StartPoint()
	sc.Walls = cfg.WallPoints()
	sc.Rewards = session.Rewards{
		Food:      cfg.Rewards.Food,
		Collision: cfg.Rewards.Collision,
		Step:      cfg.Rewards.Step,
	}
	return sc
}
