package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"case-metrics/internal/domain"
)

// DefaultBaseName prefixes every snapshot file.
const DefaultBaseName = "final_data_output"

// tagLayout formats the run start into the snapshot file name.
const tagLayout = "20060102_150405"

// Header is the first line of a snapshot.
type Header struct {
	ScriptStart string `json:"script_start"`
}

// Snapshot is a decoded snapshot file.
type Snapshot struct {
	ScriptStart time.Time
	Rows        []*domain.MetricRow
}

// Output names the files written by one pass.
type Output struct {
	SnapshotPath string
	LatestPath   string
}

// Writer writes snapshot files into a directory.
type Writer struct {
	dir  string
	base string
}

// NewWriter creates a Writer for dir. An empty base uses DefaultBaseName.
func NewWriter(dir, base string) *Writer {
	if base == "" {
		base = DefaultBaseName
	}
	return &Writer{dir: dir, base: base}
}

// Paths returns the timestamped and latest file paths for a run start.
func (w *Writer) Paths(start time.Time) Output {
	return Output{
		SnapshotPath: filepath.Join(w.dir, fmt.Sprintf("%s_%s.ndjson", w.base, start.UTC().Format(tagLayout))),
		LatestPath:   filepath.Join(w.dir, w.base+"_latest.ndjson"),
	}
}

// Write encodes the header and rows once and writes them to both files.
// Both files are staged as temp files before either is renamed into place.
// If the latest file cannot be renamed the timestamped file is removed, so
// an error leaves neither new file behind.
func (w *Writer) Write(start time.Time, rows []*domain.MetricRow) (*Output, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, start, rows); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	out := w.Paths(start)
	snapshotTmp, err := writeTemp(out.SnapshotPath, buf.Bytes())
	if err != nil {
		return nil, err
	}
	latestTmp, err := writeTemp(out.LatestPath, buf.Bytes())
	if err != nil {
		os.Remove(snapshotTmp)
		return nil, err
	}

	if err := os.Rename(snapshotTmp, out.SnapshotPath); err != nil {
		os.Remove(snapshotTmp)
		os.Remove(latestTmp)
		return nil, fmt.Errorf("rename %s: %w", out.SnapshotPath, err)
	}
	if err := os.Rename(latestTmp, out.LatestPath); err != nil {
		os.Remove(latestTmp)
		os.Remove(out.SnapshotPath)
		return nil, fmt.Errorf("rename %s: %w", out.LatestPath, err)
	}
	return &out, nil
}

// RemoveSnapshot deletes the timestamped file. The latest file is kept.
func (o *Output) RemoveSnapshot() error {
	if err := os.Remove(o.SnapshotPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", o.SnapshotPath, err)
	}
	return nil
}

// Encode writes the header line followed by one line per row.
func Encode(w io.Writer, start time.Time, rows []*domain.MetricRow) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(Header{ScriptStart: start.UTC().Format(time.RFC3339Nano)}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encode row %s/%s: %w", row.Item, row.Metric, err)
		}
	}
	return nil
}

// Read decodes a snapshot file.
func Read(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode parses a snapshot stream.
func Decode(r io.Reader) (*Snapshot, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		return nil, errors.New("empty snapshot")
	}

	var header Header
	if err := json.Unmarshal(scanner.Bytes(), &header); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	start, err := time.Parse(time.RFC3339Nano, header.ScriptStart)
	if err != nil {
		return nil, fmt.Errorf("parse script_start: %w", err)
	}

	snap := &Snapshot{ScriptStart: start}
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var row domain.MetricRow
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", len(snap.Rows)+1, err)
		}
		snap.Rows = append(snap.Rows, &row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return snap, nil
}

// writeTemp writes data to a temp file next to path and returns its name.
func writeTemp(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return tmpName, nil
}
