package compliance

import (
	"encoding/json"
	"fmt"

	"github.com/klingon-exchange/ledgercore/internal/store"
)

// eventLog is the append-only compliance ledger (§6.2): a second JSONL
// log, parallel to and independent of the financial ledger, reusing
// the same rotated line-log primitive (internal/store) without
// importing internal/ledger.
type eventLog struct {
	lines *store.LineLog
}

func openEventLog(dir string) (*eventLog, error) {
	lines, err := store.Open(dir)
	if err != nil {
		return nil, err
	}
	return &eventLog{lines: lines}, nil
}

func (l *eventLog) append(e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("compliance: marshal event %s: %w", e.ID, err)
	}
	return l.lines.Append(e.Timestamp, b)
}

func (l *eventLog) each(fn func(Event) error) error {
	return l.lines.Each(func(line []byte) error {
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("compliance: unmarshal event: %w", err)
		}
		return fn(e)
	})
}

func (l *eventLog) close() error { return l.lines.Close() }
