// Package storage provides SQLite-based persistence for training runs and
// their episode results. The learned Q-table itself is never stored.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/vovakirdan/snake-qlearn/internal/trainer"
)

// ErrAmbiguousRun is returned by ResolveRunID when a prefix matches several runs.
var ErrAmbiguousRun = errors.New("storage: run id prefix is ambiguous")

// Store manages the SQLite database connection for run persistence.
type Store struct {
	db *sql.DB
}

// Run is one training run record.
type Run struct {
	ID              string
	Seed            uint64
	Width           int
	Height          int
	EpisodesPlanned int
	Alpha           float64
	Gamma           float64
	Epsilon         float64 // Starting exploration rate
	EpsilonDecay    float64
	Status          string
	EpisodesPlayed  int
	BestScore       int
	MeanScore       float64
	TotalTicks      int
	TableSize       int
	FinalEpsilon    float64
	Duration        time.Duration
	CreatedAt       time.Time
	FinishedAt      time.Time // Zero while running
}

// Episode is one finished episode of a run.
type Episode struct {
	ID        int64
	RunID     string
	Episode   int
	Ticks     int
	Score     int
	Length    int
	Reward    float64
	EndReason string
	Epsilon   float64
	TableSize int
	CreatedAt time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	dbPath, err := expandHome(dbPath)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	// Open database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot enable WAL: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("storage: cannot expand home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			episodes_planned INTEGER NOT NULL,
			alpha REAL NOT NULL,
			gamma REAL NOT NULL,
			epsilon REAL NOT NULL,
			epsilon_decay REAL NOT NULL,
			status TEXT NOT NULL,
			episodes_played INTEGER NOT NULL DEFAULT 0,
			best_score INTEGER NOT NULL DEFAULT 0,
			mean_score REAL NOT NULL DEFAULT 0,
			total_ticks INTEGER NOT NULL DEFAULT 0,
			table_size INTEGER NOT NULL DEFAULT 0,
			final_epsilon REAL NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		);
		CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);

		CREATE TABLE IF NOT EXISTS episodes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			episode INTEGER NOT NULL,
			ticks INTEGER NOT NULL,
			score INTEGER NOT NULL,
			length INTEGER NOT NULL,
			reward REAL NOT NULL,
			end_reason TEXT NOT NULL,
			epsilon REAL NOT NULL,
			table_size INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(run_id, episode)
		);
		CREATE INDEX IF NOT EXISTS idx_episodes_run_id ON episodes(run_id);
		CREATE INDEX IF NOT EXISTS idx_episodes_top ON episodes(run_id, score DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateRun inserts a new run. An empty ID is replaced by a fresh UUID,
// and an empty status by "running". Returns the run ID.
func (s *Store) CreateRun(r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = trainer.StatusRunning
	}

	_, err := s.db.Exec(
		`INSERT INTO runs
		 (id, seed, width, height, episodes_planned, alpha, gamma, epsilon, epsilon_decay, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		int64(r.Seed), // SQLite integers are signed
		r.Width,
		r.Height,
		r.EpisodesPlanned,
		r.Alpha,
		r.Gamma,
		r.Epsilon,
		r.EpsilonDecay,
		r.Status,
	)
	if err != nil {
		return "", fmt.Errorf("storage: cannot create run: %w", err)
	}
	return r.ID, nil
}

// FinishRun stores the final summary of a run.
func (s *Store) FinishRun(sum trainer.Summary) error {
	res, err := s.db.Exec(
		`UPDATE runs SET
		   status = ?, episodes_played = ?, best_score = ?, mean_score = ?,
		   total_ticks = ?, table_size = ?, final_epsilon = ?, duration_ms = ?,
		   finished_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		sum.Status,
		sum.Episodes,
		sum.BestScore,
		sum.MeanScore,
		sum.TotalTicks,
		sum.TableSize,
		sum.FinalEpsilon,
		sum.Duration.Milliseconds(),
		sum.RunID,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("storage: run %s not found", sum.RunID)
	}
	return nil
}

// SaveEpisode records one episode result.
// Returns the ID of the inserted record.
func (s *Store) SaveEpisode(e Episode) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO episodes
		 (run_id, episode, ticks, score, length, reward, end_reason, epsilon, table_size)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID,
		e.Episode,
		e.Ticks,
		e.Score,
		e.Length,
		e.Reward,
		e.EndReason,
		e.Epsilon,
		e.TableSize,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot save episode: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage: cannot get inserted ID: %w", err)
	}

	return id, nil
}

// TopEpisodes retrieves the best N episodes of a run.
// Results are ordered by score descending, then by fewer ticks.
func (s *Store) TopEpisodes(runID string, limit int) ([]Episode, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, run_id, episode, ticks, score, length, reward, end_reason, epsilon, table_size, created_at
		 FROM episodes
		 WHERE run_id = ?
		 ORDER BY score DESC, ticks ASC, episode ASC
		 LIMIT ?`,
		runID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query episodes: %w", err)
	}
	defer rows.Close()

	var entries []Episode
	for rows.Next() {
		var e Episode
		var createdAt any
		if err := rows.Scan(
			&e.ID,
			&e.RunID,
			&e.Episode,
			&e.Ticks,
			&e.Score,
			&e.Length,
			&e.Reward,
			&e.EndReason,
			&e.Epsilon,
			&e.TableSize,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		e.CreatedAt = parseTimestamp(createdAt)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return entries, nil
}

const runColumns = `id, seed, width, height, episodes_planned, alpha, gamma, epsilon, epsilon_decay,
		        status, episodes_played, best_score, mean_score, total_ticks, table_size,
		        final_epsilon, duration_ms, created_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(sc rowScanner) (Run, error) {
	var r Run
	var seed, durationMS int64
	var createdAt, finishedAt any
	err := sc.Scan(
		&r.ID,
		&seed,
		&r.Width,
		&r.Height,
		&r.EpisodesPlanned,
		&r.Alpha,
		&r.Gamma,
		&r.Epsilon,
		&r.EpsilonDecay,
		&r.Status,
		&r.EpisodesPlayed,
		&r.BestScore,
		&r.MeanScore,
		&r.TotalTicks,
		&r.TableSize,
		&r.FinalEpsilon,
		&durationMS,
		&createdAt,
		&finishedAt,
	)
	if err != nil {
		return Run{}, err
	}
	r.Seed = uint64(seed)
	r.Duration = time.Duration(durationMS) * time.Millisecond
	r.CreatedAt = parseTimestamp(createdAt)
	r.FinishedAt = parseTimestamp(finishedAt)
	return r, nil
}

// RunByID retrieves a run by its ID. Returns nil if it does not exist.
func (s *Store) RunByID(id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query run: %w", err)
	}
	return &r, nil
}

// ResolveRunID expands a unique ID prefix to the full run ID.
func (s *Store) ResolveRunID(prefix string) (string, error) {
	rows, err := s.db.Query(`SELECT id FROM runs WHERE id LIKE ? || '%' LIMIT 2`, prefix)
	if err != nil {
		return "", fmt.Errorf("storage: cannot query runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("storage: cannot scan row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("storage: row iteration error: %w", err)
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("storage: no run matches %q", prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %q", ErrAmbiguousRun, prefix)
	}
}

// RecentRuns retrieves the most recent runs.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT `+runColumns+`
		 FROM runs
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return runs, nil
}

// DeleteRun removes a run and all of its episodes.
func (s *Store) DeleteRun(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: cannot begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM episodes WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("storage: cannot delete episodes: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM runs WHERE id = ?", id); err != nil {
		return fmt.Errorf("storage: cannot delete run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: cannot commit delete: %w", err)
	}
	return nil
}

// StartRun implements trainer.ResultSink.
func (s *Store) StartRun(info trainer.RunInfo) error {
	_, err := s.CreateRun(Run{
		ID:              info.ID,
		Seed:            info.Seed,
		Width:           info.Width,
		Height:          info.Height,
		EpisodesPlanned: info.Episodes,
		Alpha:           info.Params.Alpha,
		Gamma:           info.Params.Gamma,
		Epsilon:         info.Params.Epsilon,
		EpsilonDecay:    info.Params.EpsilonDecay,
	})
	return err
}

// SaveEpisodeResult implements trainer.ResultSink.
func (s *Store) SaveEpisodeResult(res trainer.EpisodeResult) error {
	_, err := s.SaveEpisode(Episode{
		RunID:     res.RunID,
		Episode:   res.Episode,
		Ticks:     res.Ticks,
		Score:     res.Score,
		Length:    res.Length,
		Reward:    res.Reward,
		EndReason: string(res.Reason),
		Epsilon:   res.Epsilon,
		TableSize: res.TableSize,
	})
	return err
}

// Ensure Store implements ResultSink
var _ trainer.ResultSink = (*Store)(nil)

// RunStats contains aggregated statistics for a run's episodes.
type RunStats struct {
	RunID       string
	Episodes    int
	BestScore   int
	AvgScore    float64
	AvgTicks    float64
	TotalReward float64
	EndReasons  map[string]int
	LastEpisode time.Time
}

// RunStats retrieves aggregated statistics for a run.
func (s *Store) RunStats(runID string) (*RunStats, error) {
	stats := &RunStats{RunID: runID, EndReasons: make(map[string]int)}

	var lastEpisode any
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(MAX(score), 0), COALESCE(AVG(score), 0),
		        COALESCE(AVG(ticks), 0), COALESCE(SUM(reward), 0), MAX(created_at)
		 FROM episodes WHERE run_id = ?`,
		runID,
	).Scan(&stats.Episodes, &stats.BestScore, &stats.AvgScore, &stats.AvgTicks, &stats.TotalReward, &lastEpisode)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get run stats: %w", err)
	}
	stats.LastEpisode = parseTimestamp(lastEpisode)

	rows, err := s.db.Query(
		`SELECT end_reason, COUNT(*) FROM episodes WHERE run_id = ? GROUP BY end_reason`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot get end reasons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("storage: cannot scan stats row: %w", err)
		}
		stats.EndReasons[reason] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}

	return stats, nil
}

// parseTimestamp handles both time.Time and string datetime columns.
func parseTimestamp(v any) time.Time {
	switch v := v.(type) {
	case time.Time:
		return v
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", v); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
