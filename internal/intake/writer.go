// Package intake keeps a raw copy of every patient record submitted for
// diagnosis.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"rarediag/pkg"
)

const (
	defaultName     = "user"
	timestampLayout = "20060102_150405"
)

var nameReplacer = strings.NewReplacer(" ", "_", "/", "_", "\\", "_")

// Writer stores records as pretty-printed JSON files under Dir.
type Writer struct {
	Fs  afero.Fs
	Dir string
	Now func() time.Time
}

// NewWriter returns a Writer on the OS filesystem.
func NewWriter(dir string) *Writer {
	return &Writer{Fs: afero.NewOsFs(), Dir: dir, Now: time.Now}
}

// Save writes record to <Dir>/<name>_<YYYYMMDD_HHMMSS>.json and returns the
// path.  The directory is created when missing.
func (w *Writer) Save(_ context.Context, record pkg.PatientRecord) (string, error) {
	if err := w.Fs.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", w.Dir, err)
	}

	path := filepath.Join(w.Dir, FileName(record, w.Now()))
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode patient record: %w", err)
	}
	if err := afero.WriteFile(w.Fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// FileName derives the file name for record at t.
func FileName(record pkg.PatientRecord, t time.Time) string {
	name, ok := record.Name()
	if !ok {
		name = defaultName
	}
	return nameReplacer.Replace(name) + "_" + t.Format(timestampLayout) + ".json"
}
