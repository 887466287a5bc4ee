package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/snake-qlearn/internal/core"
	"github.com/vovakirdan/snake-qlearn/internal/qlearn"
	"github.com/vovakirdan/snake-qlearn/internal/trainer"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustCreateRun(t *testing.T, store *Store, r Run) string {
	t.Helper()
	id, err := store.CreateRun(r)
	if err != nil {
		t.Fatalf("CreateRun() failed: %v", err)
	}
	return id
}

func TestStoreOpenClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	// Check that the file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestStoreNestedPath(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "deep", "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() with nested path failed: %v", err)
	}
	defer store.Close()

	// Verify nested directories were created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created in nested directory")
	}
}

func TestStoreReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	id := mustCreateRun(t, store, Run{Width: 10, Height: 10})
	store.Close()

	store, err = Open(dbPath)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer store.Close()

	r, err := store.RunByID(id)
	if err != nil || r == nil {
		t.Fatalf("RunByID() after reopen = %v, %v", r, err)
	}
}

func TestStoreCreateRun(t *testing.T) {
	store := openTestStore(t)

	id := mustCreateRun(t, store, Run{
		Seed:            1 << 63, // Above the signed range
		Width:           20,
		Height:          15,
		EpisodesPlanned: 500,
		Alpha:           0.1,
		Gamma:           0.9,
		Epsilon:         0.2,
		EpsilonDecay:    0.99,
	})
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("Generated id %q is not a UUID: %v", id, err)
	}

	r, err := store.RunByID(id)
	if err != nil {
		t.Fatalf("RunByID() failed: %v", err)
	}
	if r == nil {
		t.Fatal("Run not found")
	}
	if r.Seed != 1<<63 {
		t.Errorf("Seed = %d, expected %d", r.Seed, uint64(1<<63))
	}
	if r.Width != 20 || r.Height != 15 || r.EpisodesPlanned != 500 {
		t.Errorf("Unexpected run: %+v", r)
	}
	if r.Alpha != 0.1 || r.Gamma != 0.9 || r.Epsilon != 0.2 || r.EpsilonDecay != 0.99 {
		t.Errorf("Hyperparameters not round-tripped: %+v", r)
	}
	if r.Status != trainer.StatusRunning {
		t.Errorf("Status = %q, expected running", r.Status)
	}
	if !r.FinishedAt.IsZero() {
		t.Error("FinishedAt should be zero until the run finishes")
	}

	// Duplicate IDs are rejected
	if _, err := store.CreateRun(Run{ID: id}); err == nil {
		t.Error("Expected error for duplicate run id")
	}
}

func TestStoreRunByIDMissing(t *testing.T) {
	store := openTestStore(t)

	r, err := store.RunByID("nope")
	if err != nil {
		t.Fatalf("RunByID() failed: %v", err)
	}
	if r != nil {
		t.Errorf("Expected nil for missing run, got %+v", r)
	}
}

func TestStoreFinishRun(t *testing.T) {
	store := openTestStore(t)
	id := mustCreateRun(t, store, Run{Width: 8, Height: 8})

	err := store.FinishRun(trainer.Summary{
		RunID:        id,
		Status:       trainer.StatusCompleted,
		Episodes:     40,
		BestScore:    12,
		MeanScore:    3.5,
		TotalTicks:   9000,
		TableSize:    777,
		FinalEpsilon: 0.05,
		Duration:     1500 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}

	r, err := store.RunByID(id)
	if err != nil || r == nil {
		t.Fatalf("RunByID() = %v, %v", r, err)
	}
	if r.Status != trainer.StatusCompleted || r.EpisodesPlayed != 40 || r.BestScore != 12 {
		t.Errorf("Unexpected finished run: %+v", r)
	}
	if r.MeanScore != 3.5 || r.TotalTicks != 9000 || r.TableSize != 777 || r.FinalEpsilon != 0.05 {
		t.Errorf("Unexpected finished run: %+v", r)
	}
	if r.Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %v, expected 1.5s", r.Duration)
	}
	if r.FinishedAt.IsZero() {
		t.Error("FinishedAt should be set")
	}

	if err := store.FinishRun(trainer.Summary{RunID: "missing"}); err == nil {
		t.Error("Expected error when finishing an unknown run")
	}
}

func TestStoreTopEpisodes(t *testing.T) {
	store := openTestStore(t)
	id := mustCreateRun(t, store, Run{})
	other := mustCreateRun(t, store, Run{})

	episodes := []Episode{
		{RunID: id, Episode: 1, Ticks: 50, Score: 2, EndReason: "collision"},
		{RunID: id, Episode: 2, Ticks: 80, Score: 7, EndReason: "wall"},
		{RunID: id, Episode: 3, Ticks: 60, Score: 7, EndReason: "timeout"},
		{RunID: id, Episode: 4, Ticks: 10, Score: 0, EndReason: "collision"},
		{RunID: other, Episode: 1, Ticks: 10, Score: 99, EndReason: "collision"},
	}
	for _, e := range episodes {
		if _, err := store.SaveEpisode(e); err != nil {
			t.Fatalf("SaveEpisode() failed: %v", err)
		}
	}

	top, err := store.TopEpisodes(id, 3)
	if err != nil {
		t.Fatalf("TopEpisodes() failed: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("Expected 3 episodes, got %d", len(top))
	}

	// Score descending, fewer ticks first on ties
	want := []int{3, 2, 1}
	for i, e := range top {
		if e.Episode != want[i] {
			t.Errorf("top[%d] = episode %d, expected %d", i, e.Episode, want[i])
		}
		if e.RunID != id {
			t.Errorf("top[%d] belongs to run %s", i, e.RunID)
		}
	}

	// Episode numbers are unique per run
	if _, err := store.SaveEpisode(Episode{RunID: id, Episode: 1}); err == nil {
		t.Error("Expected error for duplicate episode number")
	}
}

func TestStoreTopEpisodesDefaultLimit(t *testing.T) {
	store := openTestStore(t)
	id := mustCreateRun(t, store, Run{})

	for i := 1; i <= 15; i++ {
		if _, err := store.SaveEpisode(Episode{RunID: id, Episode: i, Score: i}); err != nil {
			t.Fatalf("SaveEpisode() failed: %v", err)
		}
	}

	top, err := store.TopEpisodes(id, 0)
	if err != nil {
		t.Fatalf("TopEpisodes() failed: %v", err)
	}
	if len(top) != 10 {
		t.Errorf("Expected default limit of 10, got %d", len(top))
	}
	if top[0].Score != 15 {
		t.Errorf("Expected best score 15, got %d", top[0].Score)
	}
}

func TestStoreRecentRuns(t *testing.T) {
	store := openTestStore(t)

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, mustCreateRun(t, store, Run{Width: i + 1, Height: 1}))
	}

	runs, err := store.RecentRuns(3)
	if err != nil {
		t.Fatalf("RecentRuns() failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(runs))
	}
	// Newest first
	if runs[0].ID != ids[4] || runs[2].ID != ids[2] {
		t.Errorf("Unexpected order: %s, %s, %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}
}

func TestStoreResolveRunID(t *testing.T) {
	store := openTestStore(t)
	mustCreateRun(t, store, Run{ID: "abc-111"})
	mustCreateRun(t, store, Run{ID: "abc-222"})
	mustCreateRun(t, store, Run{ID: "def-333"})

	id, err := store.ResolveRunID("def")
	if err != nil || id != "def-333" {
		t.Errorf("ResolveRunID(def) = %q, %v", id, err)
	}
	id, err = store.ResolveRunID("abc-2")
	if err != nil || id != "abc-222" {
		t.Errorf("ResolveRunID(abc-2) = %q, %v", id, err)
	}
	if _, err := store.ResolveRunID("abc"); !errors.Is(err, ErrAmbiguousRun) {
		t.Errorf("Expected ErrAmbiguousRun, got %v", err)
	}
	if _, err := store.ResolveRunID("zzz"); err == nil {
		t.Error("Expected error for unknown prefix")
	}
}

func TestStoreRunStats(t *testing.T) {
	store := openTestStore(t)
	id := mustCreateRun(t, store, Run{})

	episodes := []Episode{
		{RunID: id, Episode: 1, Ticks: 10, Score: 1, Reward: 0, EndReason: "collision"},
		{RunID: id, Episode: 2, Ticks: 20, Score: 3, Reward: 20, EndReason: "collision"},
		{RunID: id, Episode: 3, Ticks: 30, Score: 5, Reward: 40, EndReason: "timeout"},
	}
	for _, e := range episodes {
		if _, err := store.SaveEpisode(e); err != nil {
			t.Fatalf("SaveEpisode() failed: %v", err)
		}
	}

	stats, err := store.RunStats(id)
	if err != nil {
		t.Fatalf("RunStats() failed: %v", err)
	}
	if stats.Episodes != 3 || stats.BestScore != 5 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.AvgScore != 3 || stats.AvgTicks != 20 || stats.TotalReward != 60 {
		t.Errorf("Unexpected averages: %+v", stats)
	}
	if stats.EndReasons["collision"] != 2 || stats.EndReasons["timeout"] != 1 {
		t.Errorf("Unexpected end reasons: %v", stats.EndReasons)
	}
	if stats.LastEpisode.IsZero() {
		t.Error("LastEpisode should be set")
	}

	empty, err := store.RunStats("missing")
	if err != nil {
		t.Fatalf("RunStats() for unknown run failed: %v", err)
	}
	if empty.Episodes != 0 || empty.BestScore != 0 || len(empty.EndReasons) != 0 {
		t.Errorf("Expected empty stats, got %+v", empty)
	}
}

func TestStoreDeleteRun(t *testing.T) {
	store := openTestStore(t)
	id := mustCreateRun(t, store, Run{})
	keep := mustCreateRun(t, store, Run{})

	for i := 1; i <= 3; i++ {
		store.SaveEpisode(Episode{RunID: id, Episode: i})
		store.SaveEpisode(Episode{RunID: keep, Episode: i})
	}

	if err := store.DeleteRun(id); err != nil {
		t.Fatalf("DeleteRun() failed: %v", err)
	}

	if r, _ := store.RunByID(id); r != nil {
		t.Error("Run should be deleted")
	}
	if eps, _ := store.TopEpisodes(id, 10); len(eps) != 0 {
		t.Errorf("Episodes should be deleted, got %d", len(eps))
	}
	if eps, _ := store.TopEpisodes(keep, 10); len(eps) != 3 {
		t.Errorf("Other run should keep its episodes, got %d", len(eps))
	}
}

func TestStoreAsResultSink(t *testing.T) {
	store := openTestStore(t)

	info := trainer.RunInfo{
		ID:       uuid.NewString(),
		Seed:     42,
		Width:    12,
		Height:   9,
		Episodes: 2,
		Params:   qlearn.DefaultParams(),
	}
	if err := store.StartRun(info); err != nil {
		t.Fatalf("StartRun() failed: %v", err)
	}
	for ep := 1; ep <= 2; ep++ {
		err := store.SaveEpisodeResult(trainer.EpisodeResult{
			RunID:   info.ID,
			Episode: ep,
			Ticks:   ep * 10,
			Score:   ep,
			Length:  ep + 1,
			Reward:  float64(ep) * 10,
			Reason:  core.EndCollision,
			Epsilon: 0.1,
		})
		if err != nil {
			t.Fatalf("SaveEpisodeResult() failed: %v", err)
		}
	}

	r, err := store.RunByID(info.ID)
	if err != nil || r == nil {
		t.Fatalf("RunByID() = %v, %v", r, err)
	}
	if r.Seed != 42 || r.Width != 12 || r.Height != 9 || r.Alpha != 0.1 {
		t.Errorf("Unexpected run: %+v", r)
	}

	top, err := store.TopEpisodes(info.ID, 1)
	if err != nil || len(top) != 1 {
		t.Fatalf("TopEpisodes() = %v, %v", top, err)
	}
	if top[0].Episode != 2 || top[0].Length != 3 || top[0].EndReason != "collision" {
		t.Errorf("Unexpected top episode: %+v", top[0])
	}
}
