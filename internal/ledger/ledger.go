// Package ledger implements the append-only, hash-chained, digitally
// signed double-entry journal (spec §3, §4.1) plus the derived balance
// index and replay/recovery.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/klingon-exchange/ledgercore/pkg/logging"
)

// Config controls ledger-wide policy.
type Config struct {
	// RequireSystemSignature, when true, treats an entry with no
	// SYSTEM-signer signature as a verification failure. The append
	// algorithm (§4.1.3 step 7) always signs with the system key
	// regardless of this flag; it only governs how replay (Open) and
	// VerifyChain treat entries that predate the policy (open question #1, SPEC_FULL.md §9).
	RequireSystemSignature bool
}

func DefaultConfig() Config {
	return Config{RequireSystemSignature: true}
}

// State is the single owned value holding everything process-wide
// about one ledger instance: last sequence/hash, the balance index,
// and the correlation-id index (§9 "model as a single owned LedgerState
// value... do not share via ambient singletons"). All operations take
// a *State explicitly.
type State struct {
	mu sync.Mutex // single-writer per §5

	durable *durableLog
	signer  Signer
	cfg     Config
	log     *logging.Logger

	lastSequence uint64
	lastHash     string
	balances     map[string]decimal.Decimal
	correlations map[string]uint64
	halted       error // non-nil once a system failure (§7 category 3) is detected
}

// Open opens (or creates) the ledger's durable log at dir, replays it
// to rebuild balances and indices, and returns a ready State. systemSigner
// signs every committed entry (§4.1.3 step 7, "always").
func Open(dir string, cfg Config, systemSigner Signer) (*State, error) {
	durable, err := openDurableLog(dir)
	if err != nil {
		return nil, err
	}
	st := &State{
		durable:      durable,
		signer:       systemSigner,
		cfg:          cfg,
		log:          logging.Default().Component("ledger"),
		balances:     map[string]decimal.Decimal{},
		correlations: map[string]uint64{},
	}
	if err := st.replay(); err != nil {
		return nil, err
	}
	return st, nil
}

// Close releases the durable log's file handle.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durable.close()
}

// replay walks the durable log in sequence order, verifying the
// hash chain and signatures, rebuilding balances (§4.1.5). A break in
// the chain is a fatal, category-3 error.
func (s *State) replay() error {
	var expectedSeq uint64 = 1
	prevHash := GenesisPrevHash

	return s.durable.each(func(e *JournalEntry) error {
		if e.Sequence != expectedSeq {
			err := &ChainBrokenError{AtSequence: e.Sequence, Reason: fmt.Sprintf("expected sequence %d", expectedSeq)}
			s.halted = err
			return err
		}
		if e.PrevHash != prevHash {
			err := &ChainBrokenError{AtSequence: e.Sequence, Reason: "prev_hash does not match prior entry's hash"}
			s.halted = err
			return err
		}
		wantHash, err := computeHash(e)
		if err != nil {
			return err
		}
		if wantHash != e.Hash {
			err := &ChainBrokenError{AtSequence: e.Sequence, Reason: "recomputed hash does not match stored hash"}
			s.halted = err
			return err
		}
		if err := s.verifyEntryPolicy(e); err != nil {
			s.halted = err
			return err
		}

		applyDelta(e.Postings, s.balances)
		s.correlations[e.CorrelationID] = e.Sequence
		expectedSeq = e.Sequence + 1
		prevHash = e.Hash
		s.lastSequence = e.Sequence
		s.lastHash = e.Hash
		return nil
	})
}

func (s *State) verifyEntryPolicy(e *JournalEntry) error {
	if err := VerifyEntrySignatures(e); err != nil {
		return err
	}
	if s.cfg.RequireSystemSignature {
		found := false
		for _, sig := range e.Signatures {
			if sig.SignerID == SystemSignerID {
				found = true
				break
			}
		}
		if !found && e.Intent != IntentGenesis {
			return fmt.Errorf("%w: entry %d missing SYSTEM signature", ErrSignatureVerification, e.Sequence)
		}
	}
	return nil
}

// Commit validates, chains, signs, and durably appends one entry
// (§4.1.3). On any failure nothing is persisted and balances are
// unchanged.
func (s *State) Commit(u UnsignedEntry) (*JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.halted != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerHalted, s.halted)
	}

	// Steps 1-3: postings, positivity (enforced by Amount), zero-sum, intent shape.
	if err := validatePostings(u.Intent, u.Postings); err != nil {
		return nil, err
	}

	// Overdraft check (§8 seed scenario 2): rejected here, before the
	// sequence is assigned, so a rejected commit leaves last_sequence
	// and balances untouched.
	if err := checkSufficientBalance(u.Postings, s.balances); err != nil {
		return nil, err
	}

	// Step 4: correlation id uniqueness.
	if _, exists := s.correlations[u.CorrelationID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCorrelationID, u.CorrelationID)
	}

	// Step 5: sequence + prev_hash.
	seq := s.lastSequence + 1
	prevHash := GenesisPrevHash
	if s.lastSequence > 0 {
		prevHash = s.lastHash
	}

	metadata := u.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	entry := &JournalEntry{
		Sequence:      seq,
		PrevHash:      prevHash,
		Timestamp:     time.Now().UTC(),
		Intent:        u.Intent,
		CorrelationID: u.CorrelationID,
		CausalityID:   u.CausalityID,
		Postings:      u.Postings,
		Metadata:      metadata,
	}

	// Step 6: canonical bytes + hash.
	hash, err := computeHash(entry)
	if err != nil {
		return nil, fmt.Errorf("ledger: computing hash: %w", err)
	}
	entry.Hash = hash

	// Step 7: sign with the system key always, plus any externally
	// supplied signatures (e.g. approval-collected Adjustment signatures).
	signedAt := time.Now().UTC()
	sysSig, err := s.signer.Sign(entry, signedAt)
	if err != nil {
		return nil, fmt.Errorf("ledger: system signing: %w", err)
	}
	entry.Signatures = append([]EntrySignature{sysSig}, u.ExternalSignatures...)

	if u.Intent == IntentAdjustment {
		need := adjustmentRequiredSignatures(metadata)
		have := len(u.ExternalSignatures)
		if have < need {
			return nil, &InsufficientSignaturesError{Have: have, Need: need}
		}
	}

	if err := VerifyEntrySignatures(entry); err != nil {
		return nil, err
	}

	// Step 8: append to durable log and fsync.
	if err := s.durable.append(entry); err != nil {
		s.halted = err
		return nil, fmt.Errorf("ledger: durable append failed, ledger halted: %w", err)
	}

	// Steps 9-10: apply postings, advance indices. Only reached once the
	// append has durably succeeded.
	applyDelta(entry.Postings, s.balances)
	s.correlations[entry.CorrelationID] = entry.Sequence
	s.lastSequence = entry.Sequence
	s.lastHash = entry.Hash

	s.log.Info("entry committed", "sequence", entry.Sequence, "intent", entry.Intent, "correlation_id", entry.CorrelationID)
	return entry, nil
}

// adjustmentRequiredSignatures reads an M-of-N requirement embedded in
// an Adjustment entry's metadata under "required_signatures"; absent or
// unparsable, the default is 1. Only ExternalSignatures count toward it;
// the system signature does not.
func adjustmentRequiredSignatures(metadata map[string]string) int {
	raw, ok := metadata["required_signatures"]
	if !ok {
		return 1
	}
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil || n < 1 {
		return 1
	}
	return n
}

// VerifyChain re-walks the durable log and checks the hash chain and
// signatures of every entry currently on disk. Balances are not
// recomputed and in-memory state is left unchanged (§6.4 verify_chain).
func (s *State) VerifyChain() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expectedSeq uint64 = 1
	prevHash := GenesisPrevHash
	return s.durable.each(func(e *JournalEntry) error {
		if e.Sequence != expectedSeq {
			return &ChainBrokenError{AtSequence: e.Sequence, Reason: fmt.Sprintf("expected sequence %d", expectedSeq)}
		}
		if e.PrevHash != prevHash {
			return &ChainBrokenError{AtSequence: e.Sequence, Reason: "prev_hash mismatch"}
		}
		wantHash, err := computeHash(e)
		if err != nil {
			return err
		}
		if wantHash != e.Hash {
			return &ChainBrokenError{AtSequence: e.Sequence, Reason: "hash mismatch"}
		}
		if err := s.verifyEntryPolicy(e); err != nil {
			return err
		}
		expectedSeq = e.Sequence + 1
		prevHash = e.Hash
		return nil
	})
}

// GetBalance returns the current derived balance for an account; zero
// if the account has never been posted to.
func (s *State) GetBalance(key AccountKey) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[key.String()]
}

// ReadAll returns every committed entry in sequence order.
func (s *State) ReadAll() ([]*JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*JournalEntry
	err := s.durable.each(func(e *JournalEntry) error {
		out = append(out, e)
		return nil
	})
	return out, err
}

// LastSequence returns the sequence number of the most recently
// committed entry, or 0 if none.
func (s *State) LastSequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSequence
}

// LastHash returns the hash of the most recently committed entry, or
// GenesisPrevHash if none.
func (s *State) LastHash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSequence == 0 {
		return GenesisPrevHash
	}
	return s.lastHash
}
