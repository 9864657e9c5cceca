// Package metrics appends per-transcription productivity counts to a CSV
// file consumed by the external dashboards.
package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

var header = []string{"timestamp", "characters", "words"}

// Recorder writes one CSV row per successful, non-sentinel transcription.
// Safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	path string
}

func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

// Record appends a row. The file and its header are created on first use.
func (r *Recorder) Record(ts time.Time, characters, words int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureFile(); err != nil {
		return err
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("metrics: open %q: %w", r.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		ts.Format(time.RFC3339),
		strconv.Itoa(characters),
		strconv.Itoa(words),
	}); err != nil {
		return fmt.Errorf("metrics: write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("metrics: flush: %w", err)
	}
	return nil
}

func (r *Recorder) ensureFile() error {
	if _, err := os.Stat(r.path); err == nil {
		return nil
	}
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("metrics: create dir: %w", err)
		}
	}
	f, err := os.Create(r.path)
	if err != nil {
		return fmt.Errorf("metrics: create %q: %w", r.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("metrics: write header: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Count returns the character and word counts recorded for a transcript.
func Count(text string) (characters, words int) {
	return utf8.RuneCountInString(text), len(strings.Fields(text))
}
