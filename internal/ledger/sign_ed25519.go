package ledger

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"time"
)

// Ed25519Signer is the default entry-signing algorithm (§4.1.4).
type Ed25519Signer struct {
	signerID string
	priv     ed25519.PrivateKey
}

// NewEd25519Signer wraps an existing private key under the given
// signer id. "SYSTEM" is the distinguished id the Ledger uses for its
// own signing key.
func NewEd25519Signer(signerID string, priv ed25519.PrivateKey) *Ed25519Signer {
	return &Ed25519Signer{signerID: signerID, priv: priv}
}

// GenerateEd25519Signer creates a fresh random keypair for the given
// signer id.
func GenerateEd25519Signer(signerID string) (*Ed25519Signer, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: generate ed25519 key: %w", err)
	}
	return NewEd25519Signer(signerID, priv), nil
}

func (s *Ed25519Signer) SignerID() string  { return s.signerID }
func (s *Ed25519Signer) Algorithm() string { return AlgorithmEd25519 }

// PrivateKeyBytes exposes the raw private key for callers that persist
// it themselves (e.g. cmd/ledgerd writing a key file to disk).
func (s *Ed25519Signer) PrivateKeyBytes() ed25519.PrivateKey { return s.priv }

func (s *Ed25519Signer) Sign(entry *JournalEntry, signedAt time.Time) (EntrySignature, error) {
	payload, err := signableBytes(entry, signedAt)
	if err != nil {
		return EntrySignature{}, err
	}
	sig := ed25519.Sign(s.priv, payload)
	pub := s.priv.Public().(ed25519.PublicKey)
	return EntrySignature{
		SignerID:     s.signerID,
		Algorithm:    AlgorithmEd25519,
		PublicKeyHex: hex.EncodeToString(pub),
		SignatureHex: hex.EncodeToString(sig),
		SignedAt:     signedAt,
	}, nil
}

func verifyEd25519(payload []byte, sig EntrySignature) error {
	pub, err := hex.DecodeString(sig.PublicKeyHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid ed25519 public key")
	}
	sigBytes, err := hex.DecodeString(sig.SignatureHex)
	if err != nil || len(sigBytes) != ed25519.SignatureSize {
		return fmt.Errorf("invalid ed25519 signature encoding")
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), payload, sigBytes) {
		return fmt.Errorf("ed25519 verification failed")
	}
	return nil
}
