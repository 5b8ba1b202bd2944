// Package store provides a rotated, append-only, fsync-per-line log used
// as the durable backing for both the financial journal and the
// compliance ledger. Each is a separate directory; neither package
// depends on the other.
package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// LineLog is a single-writer, multi-reader append-only log of newline
// delimited records, rotated into one file per calendar day (UTC).
type LineLog struct {
	dir string

	mu          sync.Mutex
	currentDate string
	currentFile *os.File
}

// Open creates dir if needed and returns a LineLog rooted there.
func Open(dir string) (*LineLog, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("store: create dir %s: %w", dir, err)
	}
	return &LineLog{dir: dir}, nil
}

// Dir returns the backing directory.
func (l *LineLog) Dir() string { return l.dir }

func rotationName(ts time.Time) string {
	return ts.UTC().Format("2006-01-02") + ".jsonl"
}

// Append writes one record, fsyncing before returning. ts determines
// which day's file the record lands in; callers append with
// monotonically non-decreasing ts within one log.
func (l *LineLog) Append(ts time.Time, line []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	date := rotationName(ts)
	if l.currentFile == nil || l.currentDate != date {
		if l.currentFile != nil {
			l.currentFile.Close()
		}
		f, err := os.OpenFile(filepath.Join(l.dir, date), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("store: open %s: %w", date, err)
		}
		l.currentFile = f
		l.currentDate = date
	}

	if _, err := l.currentFile.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("store: write: %w", err)
	}
	return l.currentFile.Sync()
}

// Close closes the currently open rotation file, if any.
func (l *LineLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.currentFile == nil {
		return nil
	}
	err := l.currentFile.Close()
	l.currentFile = nil
	return err
}

// Files returns the rotation files in lexicographic (== chronological,
// given the YYYY-MM-DD naming) order.
func (l *LineLog) Files() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("store: read dir %s: %w", l.dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Each walks every record across every rotation file, in order, calling
// fn with each line's raw bytes (no trailing newline). Stops and returns
// fn's error if it returns non-nil.
func (l *LineLog) Each(fn func(line []byte) error) error {
	files, err := l.Files()
	if err != nil {
		return err
	}
	for _, name := range files {
		if err := eachLineInFile(filepath.Join(l.dir, name), fn); err != nil {
			return fmt.Errorf("store: %s: %w", name, err)
		}
	}
	return nil
}

func eachLineInFile(path string, fn func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		if err := fn(cp); err != nil {
			return err
		}
	}
	return scanner.Err()
}
