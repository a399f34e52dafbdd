// Package export provides the best-effort file sinks: append-only CSV
// files with a header written once, and per-group JSON snapshots.
// Failures here are logged by callers, never fatal.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CSVAppender appends rows to one CSV file, creating it with a header
// on first use.
type CSVAppender struct {
	path   string
	header []string
}

// NewCSVAppender configures an appender for path with the given
// header row.
func NewCSVAppender(path string, header []string) *CSVAppender {
	return &CSVAppender{path: path, header: header}
}

// Append writes one row, creating the file and header if absent.
func (a *CSVAppender) Append(rows ...[]string) error {
	if len(rows) == 0 {
		return nil
	}
	if dir := filepath.Dir(a.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("csv %s: %w", a.path, err)
		}
	}
	_, statErr := os.Stat(a.path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("csv %s: %w", a.path, err)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(a.header); err != nil {
			return fmt.Errorf("csv %s: %w", a.path, err)
		}
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv %s: %w", a.path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv %s: %w", a.path, err)
	}
	return nil
}

// CleanCell flattens newlines so message text stays on one CSV row.
func CleanCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}

// SnapshotWriter overwrites one JSON file per group under dir.
type SnapshotWriter struct {
	dir string
}

// NewSnapshotWriter configures snapshots under dir.
func NewSnapshotWriter(dir string) *SnapshotWriter {
	return &SnapshotWriter{dir: dir}
}

// safeName turns a group link into a filesystem-safe file stem.
func safeName(group string) string {
	s := strings.ReplaceAll(group, "/", "_")
	return strings.ReplaceAll(s, "+", "_")
}

// Write replaces the snapshot for group with v marshaled as indented
// JSON.
func (w *SnapshotWriter) Write(group string, v any) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("snapshot dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", group, err)
	}
	path := filepath.Join(w.dir, safeName(group)+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("snapshot %s: %w", group, err)
	}
	return nil
}
