package ledger

import (
	"fmt"
	"time"
)

// Algorithm names carried in EntrySignature.Algorithm.
const (
	AlgorithmEd25519   = "ed25519"
	AlgorithmSecp256k1 = "secp256k1"
)

// Signer produces an EntrySignature over an entry's signable payload
// (§4.1.4). Implementations are a closed set (Ed25519Signer,
// Secp256k1Signer) per §9 "prefer enum-of-concrete-cases over open
// interfaces".
type Signer interface {
	SignerID() string
	Algorithm() string
	Sign(entry *JournalEntry, signedAt time.Time) (EntrySignature, error)
}

// verifySignature checks a single EntrySignature against the entry it claims
// to cover. Dispatches on Algorithm; an unknown algorithm always fails
// verification rather than being silently skipped.
func verifySignature(entry *JournalEntry, sig EntrySignature) error {
	payload, err := signableBytes(entry, sig.SignedAt)
	if err != nil {
		return fmt.Errorf("%w: building signable payload: %v", ErrSignatureVerification, err)
	}

	switch sig.Algorithm {
	case AlgorithmEd25519:
		return verifyEd25519(payload, sig)
	case AlgorithmSecp256k1:
		return verifySecp256k1(payload, sig)
	default:
		return fmt.Errorf("%w: unknown algorithm %q", ErrSignatureVerification, sig.Algorithm)
	}
}

// VerifyEntrySignatures recomputes the payload bytes and checks every
// signature against its embedded public key (§4.1.4). A failing
// signature fails the whole entry.
func VerifyEntrySignatures(entry *JournalEntry) error {
	for _, sig := range entry.Signatures {
		if err := verifySignature(entry, sig); err != nil {
			return fmt.Errorf("%w: signer %s: %v", ErrSignatureVerification, sig.SignerID, err)
		}
	}
	return nil
}
