package compliance

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ApprovalStore is the §6.3 persistence boundary for pending approvals.
// Two implementations exist: SQLStore (backed by sqlite, §4.2.4 "a
// small relational store") and MemoryStore (§6.3 "an in-memory adapter
// is permitted for tests").
type ApprovalStore interface {
	Create(a *PendingApproval) error
	Get(id string) (*PendingApproval, error)
	Update(a *PendingApproval) error
	ListByStatus(status ApprovalStatus) ([]*PendingApproval, error)
	ListAll() ([]*PendingApproval, error)
	Close() error
}

// SQLStore is the sqlite-backed ApprovalStore, adapted directly from
// the teacher's storage.Storage + storage/orders.go shape: a typed
// Config, a single *sql.DB opened with WAL journaling, a
// CREATE-TABLE-IF-NOT-EXISTS schema string, and an RWMutex even though
// sqlite itself serializes writes (matches the teacher's belt-and-
// braces convention in internal/storage/storage.go).
type SQLStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// SQLStoreConfig mirrors storage.Config{DataDir}.
type SQLStoreConfig struct {
	DataDir string
}

func OpenSQLStore(cfg SQLStoreConfig) (*SQLStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("compliance: create data dir: %w", err)
	}
	dbPath := filepath.Join(cfg.DataDir, "approvals.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("compliance: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("compliance: ping database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("compliance: init schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pending_approvals (
		id TEXT PRIMARY KEY,
		unsigned_entry_json TEXT NOT NULL,
		unsigned_entry_hash TEXT NOT NULL,
		required_signatures INTEGER NOT NULL,
		collected INTEGER NOT NULL DEFAULT 0,
		signer_ids TEXT NOT NULL DEFAULT '[]',
		required_level TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		rejection_reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_approvals_status ON pending_approvals(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) Create(a *PendingApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	signerJSON, err := json.Marshal(a.SignerIDs)
	if err != nil {
		return fmt.Errorf("%w: marshal signer ids: %v", ErrStoreError, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO pending_approvals (
			id, unsigned_entry_json, unsigned_entry_hash, required_signatures,
			collected, signer_ids, required_level, created_at, expires_at,
			status, rejection_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.UnsignedEntryJSON, a.UnsignedEntryHash, a.RequiredSignatures,
		a.Collected, string(signerJSON), string(a.RequiredLevel),
		a.CreatedAt.Unix(), a.ExpiresAt.Unix(), string(a.Status), a.RejectionReason,
	)
	if err != nil {
		return fmt.Errorf("%w: create approval: %v", ErrStoreError, err)
	}
	return nil
}

func (s *SQLStore) scanRow(row interface {
	Scan(dest ...any) error
}) (*PendingApproval, error) {
	var a PendingApproval
	var signerJSON, status, level string
	var createdAt, expiresAt int64
	var rejection sql.NullString

	err := row.Scan(
		&a.ID, &a.UnsignedEntryJSON, &a.UnsignedEntryHash, &a.RequiredSignatures,
		&a.Collected, &signerJSON, &level, &createdAt, &expiresAt, &status, &rejection,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scan approval: %v", ErrStoreError, err)
	}
	if err := json.Unmarshal([]byte(signerJSON), &a.SignerIDs); err != nil {
		return nil, fmt.Errorf("%w: unmarshal signer ids: %v", ErrStoreError, err)
	}
	a.RequiredLevel = ApprovalLevel(level)
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	a.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	a.Status = ApprovalStatus(status)
	a.RejectionReason = rejection.String
	return &a, nil
}

func (s *SQLStore) Get(id string) (*PendingApproval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, unsigned_entry_json, unsigned_entry_hash, required_signatures,
			collected, signer_ids, required_level, created_at, expires_at,
			status, rejection_reason
		FROM pending_approvals WHERE id = ?
	`, id)
	return s.scanRow(row)
}

func (s *SQLStore) Update(a *PendingApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	signerJSON, err := json.Marshal(a.SignerIDs)
	if err != nil {
		return fmt.Errorf("%w: marshal signer ids: %v", ErrStoreError, err)
	}

	result, err := s.db.Exec(`
		UPDATE pending_approvals SET
			collected = ?, signer_ids = ?, status = ?, rejection_reason = ?
		WHERE id = ?
	`, a.Collected, string(signerJSON), string(a.Status), a.RejectionReason, a.ID)
	if err != nil {
		return fmt.Errorf("%w: update approval: %v", ErrStoreError, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListByStatus(status ApprovalStatus) ([]*PendingApproval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list("WHERE status = ?", string(status))
}

func (s *SQLStore) ListAll() ([]*PendingApproval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list("")
}

func (s *SQLStore) list(where string, args ...any) ([]*PendingApproval, error) {
	query := `
		SELECT id, unsigned_entry_json, unsigned_entry_hash, required_signatures,
			collected, signer_ids, required_level, created_at, expires_at,
			status, rejection_reason
		FROM pending_approvals ` + where
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list approvals: %v", ErrStoreError, err)
	}
	defer rows.Close()

	var out []*PendingApproval
	for rows.Next() {
		a, err := s.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
