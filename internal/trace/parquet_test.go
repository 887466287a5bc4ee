package trace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vovakirdan/snake-qlearn/internal/qlearn"
	"github.com/vovakirdan/snake-qlearn/internal/session"
	"github.com/vovakirdan/snake-qlearn/internal/snake"
)

func sampleTransition(tick int, done bool) session.Transition {
	var st, next qlearn.State
	st[qlearn.FeatHeadX] = 0.25
	st[qlearn.FeatDirRight] = 1
	next[qlearn.FeatHeadX] = 0.3
	next[qlearn.FeatLength] = float64(tick)
	return session.Transition{
		Episode: 2,
		Tick:    tick,
		State:   st,
		Action:  snake.Left,
		Reward:  -0.5,
		Next:    next,
		Done:    done,
	}
}

func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trace.parquet")

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	const n = 2500 // Spans several flushes
	for i := 1; i <= n; i++ {
		tr := sampleTransition(i, i == n)
		if err := w.Record("run-a", tr, tr.State.Key(qlearn.DefaultQuantization)); err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}
	if w.Rows() != n {
		t.Errorf("Rows() = %d, expected %d", w.Rows(), n)
	}

	// Nothing at the final path until Close
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Output should not exist before Close")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Second Close() should be a no-op, got %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file should be gone after Close")
	}

	rows, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	if len(rows) != n {
		t.Fatalf("Read %d rows, expected %d", len(rows), n)
	}

	first := rows[0]
	if first.RunID != "run-a" || first.Episode != 2 || first.Tick != 1 {
		t.Errorf("Unexpected first row: %+v", first)
	}
	if first.Action != int32(snake.Left) || first.Move != "left" || first.Reward != -0.5 {
		t.Errorf("Unexpected action fields: %+v", first)
	}
	if len(first.State) != qlearn.NumFeatures || first.State[qlearn.FeatHeadX] != 0.25 {
		t.Errorf("Unexpected state: %v", first.State)
	}
	if len(first.Key) != qlearn.NumFeatures || first.Key[qlearn.FeatHeadX] != 2500 {
		t.Errorf("Unexpected key: %v", first.Key)
	}
	if first.Done {
		t.Error("First row should not be terminal")
	}

	last := rows[n-1]
	if last.Tick != n || !last.Done || last.Next[qlearn.FeatLength] != n {
		t.Errorf("Unexpected last row: tick %d done %v next %v", last.Tick, last.Done, last.Next)
	}

	schema, err := Schema(path)
	if err != nil {
		t.Fatalf("Schema() failed: %v", err)
	}
	if schema != SchemaVersion {
		t.Errorf("Schema = %q, expected %q", schema, SchemaVersion)
	}
}

func TestWriterEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	rows, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll() failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("Expected no rows, got %d", len(rows))
	}
}

func TestWriterAbort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aborted.parquet")

	w, err := Create(path)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if err := w.Write(NewRow("r", sampleTransition(1, false), qlearn.StateKey{})); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if err := w.Abort(); err != nil {
		t.Fatalf("Abort() failed: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Aborted trace should not produce an output file")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Aborted trace should remove its temporary file")
	}
	if err := w.Write(TransitionRow{}); err == nil {
		t.Error("Write after Abort should fail")
	}
}

func TestCreateRequiresPath(t *testing.T) {
	if _, err := Create(""); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestReadAllMissing(t *testing.T) {
	if _, err := ReadAll(filepath.Join(t.TempDir(), "missing.parquet")); err == nil {
		t.Error("Expected error for missing file")
	}
}
