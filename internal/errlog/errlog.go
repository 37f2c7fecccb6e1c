package errlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Logger appends rows to tab-separated log files under a single errors
// directory. Every pipeline stage shares one Logger, so writes are
// serialized with a mutex.
type Logger struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Logger {
	return &Logger{dir: dir}
}

// Append writes rows to {dir}/{name}.csv, creating the file on first use.
func (l *Logger) Append(name string, rows ...[]string) error {
	if len(rows) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("creating errors dir: %w", err)
	}
	path := filepath.Join(l.dir, name+".csv")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Rows reads a log file back. A missing file is an empty log.
func (l *Logger) Rows(name string) ([][]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	path := filepath.Join(l.dir, name+".csv")
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	return r.ReadAll()
}
