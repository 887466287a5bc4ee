// Package trace exports per-tick training transitions to parquet files for
// offline analysis.
package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"github.com/vovakirdan/snake-qlearn/internal/qlearn"
	"github.com/vovakirdan/snake-qlearn/internal/session"
	"github.com/vovakirdan/snake-qlearn/internal/trainer"
)

// SchemaVersion is stored in the file metadata under "schema".
const SchemaVersion = "transition_v2"

const flushRows = 1024

// TransitionRow is one agent step.
//
// State and Next hold the twelve encoder features in order. Key is the
// quantized table key of State. Action is 0=Up, 1=Down, 2=Left, 3=Right.
type TransitionRow struct {
	RunID   string    `parquet:"run_id,dict"`
	Episode int32     `parquet:"episode"`
	Tick    int64     `parquet:"tick"`
	State   []float64 `parquet:"state"`
	Key     []int64   `parquet:"key"`
	Action  int32     `parquet:"action"`
	Move    string    `parquet:"move,dict"`
	Reward  float64   `parquet:"reward"`
	Next    []float64 `parquet:"next"`
	Done    bool      `parquet:"done"`
}

// NewRow converts a session transition into a row.
func NewRow(runID string, tr session.Transition, key qlearn.StateKey) TransitionRow {
	return TransitionRow{
		RunID:   runID,
		Episode: int32(tr.Episode),
		Tick:    int64(tr.Tick),
		State:   tr.State[:],
		Key:     key[:],
		Action:  int32(tr.Action),
		Move:    tr.Action.String(),
		Reward:  tr.Reward,
		Next:    tr.Next[:],
		Done:    tr.Done,
	}
}

// Writer streams rows to a temporary file and moves it into place on Close.
type Writer struct {
	path    string
	tmpPath string

	file   *os.File
	writer *parquet.GenericWriter[TransitionRow]

	buf  []TransitionRow
	rows int
}

// Create opens a writer for path. Parent directories are created.
func Create(path string) (*Writer, error) {
	if path == "" {
		return nil, fmt.Errorf("trace: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("trace: create output dir: %w", err)
	}

	tmpPath := path + ".tmp"
	_ = os.Remove(tmpPath)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("trace: open tmp parquet: %w", err)
	}

	w := parquet.NewGenericWriter[TransitionRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", SchemaVersion)

	return &Writer{
		path:    path,
		tmpPath: tmpPath,
		file:    f,
		writer:  w,
		buf:     make([]TransitionRow, 0, flushRows),
	}, nil
}

// Path returns the final output path.
func (w *Writer) Path() string { return w.path }

// Rows returns how many rows have been accepted.
func (w *Writer) Rows() int { return w.rows }

// Write buffers one row, flushing to the file in batches.
func (w *Writer) Write(row TransitionRow) error {
	if w.writer == nil {
		return fmt.Errorf("trace: writer is closed")
	}
	w.buf = append(w.buf, row)
	w.rows++
	if len(w.buf) >= flushRows {
		return w.flush()
	}
	return nil
}

// Record implements trainer.TraceSink.
func (w *Writer) Record(runID string, tr session.Transition, key qlearn.StateKey) error {
	return w.Write(NewRow(runID, tr, key))
}

var _ trainer.TraceSink = (*Writer)(nil)

func (w *Writer) flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	if _, err := w.writer.Write(w.buf); err != nil {
		return fmt.Errorf("trace: write rows: %w", err)
	}
	w.buf = w.buf[:0]
	return nil
}

// Close flushes buffered rows, finalizes the parquet footer and renames the
// temporary file to the output path. Closing twice is a no-op.
func (w *Writer) Close() error {
	if w.writer == nil && w.file == nil {
		return nil
	}

	flushErr := w.flush()

	var closeErr error
	if w.writer != nil {
		closeErr = w.writer.Close()
		w.writer = nil
	}
	var fileErr error
	if w.file != nil {
		_ = w.file.Sync()
		fileErr = w.file.Close()
		w.file = nil
	}

	switch {
	case flushErr != nil:
		_ = os.Remove(w.tmpPath)
		return flushErr
	case closeErr != nil:
		_ = os.Remove(w.tmpPath)
		return fmt.Errorf("trace: close parquet writer: %w", closeErr)
	case fileErr != nil:
		_ = os.Remove(w.tmpPath)
		return fmt.Errorf("trace: close parquet file: %w", fileErr)
	}

	if err := os.Rename(w.tmpPath, w.path); err != nil {
		return fmt.Errorf("trace: rename parquet: %w", err)
	}
	return nil
}

// Abort discards everything written so far.
func (w *Writer) Abort() error {
	if w.writer != nil {
		_ = w.writer.Close()
		w.writer = nil
	}
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	if err := os.Remove(w.tmpPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("trace: remove tmp parquet: %w", err)
	}
	return nil
}

// ReadAll reads every row of a trace file.
func ReadAll(path string) ([]TransitionRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("trace: open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[TransitionRow](pf)
	defer reader.Close()

	rows := make([]TransitionRow, reader.NumRows())
	total := 0
	for total < len(rows) {
		n, err := reader.Read(rows[total:])
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("trace: read rows: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return rows[:total], nil
}

// Schema returns the schema version recorded in a trace file.
func Schema(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("trace: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("trace: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return "", fmt.Errorf("trace: open parquet: %w", err)
	}

	v, _ := pf.Lookup("schema")
	return v, nil
}
