package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// canonicalPosting is the stable wire shape of a Posting used for
// hashing; field order is fixed by struct declaration order and
// encoding/json preserves it.
type canonicalPosting struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
	Side    Side   `json:"side"`
}

func toCanonicalPostings(postings []Posting) []canonicalPosting {
	out := make([]canonicalPosting, len(postings))
	for i, p := range postings {
		out[i] = canonicalPosting{Account: p.Account.String(), Amount: p.Amount.String(), Side: p.Side}
	}
	return out
}

// hashPayload is the tuple hashed per §4.1.1: everything about the
// entry except its signatures, since the signer commits to the hash.
// encoding/json sorts map keys when marshaling a map[string]string, so
// Metadata's serialization is already a total order over its keys —
// this is relied upon, not re-implemented, but documented here because
// it is a cross-language wire contract (§4.1.1 "uses a total ordering
// for map keys").
type hashPayload struct {
	Sequence      uint64              `json:"sequence"`
	Timestamp     string              `json:"timestamp"`
	Intent        Intent              `json:"intent"`
	CorrelationID string              `json:"correlation_id"`
	CausalityID   *string             `json:"causality_id"`
	Postings      []canonicalPosting  `json:"postings"`
	Metadata      map[string]string   `json:"metadata"`
	PrevHash      string              `json:"prev_hash"`
}

func canonicalHashBytes(e *JournalEntry) ([]byte, error) {
	payload := hashPayload{
		Sequence:      e.Sequence,
		Timestamp:     e.Timestamp.UTC().Format(time.RFC3339Nano),
		Intent:        e.Intent,
		CorrelationID: e.CorrelationID,
		CausalityID:   e.CausalityID,
		Postings:      toCanonicalPostings(e.Postings),
		Metadata:      e.Metadata,
		PrevHash:      e.PrevHash,
	}
	return json.Marshal(payload)
}

// computeHash renders SHA-256 of the canonical byte form as lowercase
// hex, per §4.1.1.
func computeHash(e *JournalEntry) (string, error) {
	b, err := canonicalHashBytes(e)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// signablePayload is the tuple each EntrySignature is computed over
// (§4.1.4): the hash plus signed_at binds a signature to when it was
// produced.
type signablePayload struct {
	Sequence  uint64             `json:"sequence"`
	Timestamp string             `json:"timestamp"`
	Intent    Intent             `json:"intent"`
	Postings  []canonicalPosting `json:"postings"`
	Metadata  map[string]string  `json:"metadata"`
	PrevHash  string             `json:"prev_hash"`
	Hash      string             `json:"hash"`
	SignedAt  string             `json:"signed_at"`
}

func signableBytes(e *JournalEntry, signedAt time.Time) ([]byte, error) {
	payload := signablePayload{
		Sequence:  e.Sequence,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		Intent:    e.Intent,
		Postings:  toCanonicalPostings(e.Postings),
		Metadata:  e.Metadata,
		PrevHash:  e.PrevHash,
		Hash:      e.Hash,
		SignedAt:  signedAt.UTC().Format(time.RFC3339Nano),
	}
	return json.Marshal(payload)
}
