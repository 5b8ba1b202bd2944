package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/klingon-exchange/ledgercore/internal/store"
)

// durableLog wraps the generic rotated line log with JournalEntry
// marshaling, matching the teacher's storage.Storage shape (typed
// wrapper over a generic backing store, §6.1).
type durableLog struct {
	lines *store.LineLog
}

func openDurableLog(dir string) (*durableLog, error) {
	lines, err := store.Open(dir)
	if err != nil {
		return nil, err
	}
	return &durableLog{lines: lines}, nil
}

func (d *durableLog) append(e *JournalEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("ledger: marshal entry %d: %w", e.Sequence, err)
	}
	return d.lines.Append(e.Timestamp, b)
}

func (d *durableLog) each(fn func(*JournalEntry) error) error {
	return d.lines.Each(func(line []byte) error {
		var e JournalEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("ledger: unmarshal entry: %w", err)
		}
		return fn(&e)
	})
}

func (d *durableLog) close() error { return d.lines.Close() }
