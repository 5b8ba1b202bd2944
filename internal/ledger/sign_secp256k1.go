package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Secp256k1Signer is the placeholder alternate algorithm mentioned in
// §4.1.4. It signs the SHA-256 digest of the signable payload with
// ECDSA over secp256k1, the same curve the teacher's MuSig2 partial
// signatures used (internal/swap/coordinator_signing.go).
type Secp256k1Signer struct {
	signerID string
	priv     *secp256k1.PrivateKey
}

func NewSecp256k1Signer(signerID string, priv *secp256k1.PrivateKey) *Secp256k1Signer {
	return &Secp256k1Signer{signerID: signerID, priv: priv}
}

func GenerateSecp256k1Signer(signerID string) (*Secp256k1Signer, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("ledger: generate secp256k1 key: %w", err)
	}
	return NewSecp256k1Signer(signerID, priv), nil
}

func (s *Secp256k1Signer) SignerID() string  { return s.signerID }
func (s *Secp256k1Signer) Algorithm() string { return AlgorithmSecp256k1 }

func (s *Secp256k1Signer) Sign(entry *JournalEntry, signedAt time.Time) (EntrySignature, error) {
	payload, err := signableBytes(entry, signedAt)
	if err != nil {
		return EntrySignature{}, err
	}
	digest := sha256.Sum256(payload)
	sig := ecdsa.Sign(s.priv, digest[:])
	pub := s.priv.PubKey()
	return EntrySignature{
		SignerID:     s.signerID,
		Algorithm:    AlgorithmSecp256k1,
		PublicKeyHex: hex.EncodeToString(pub.SerializeCompressed()),
		SignatureHex: hex.EncodeToString(sig.Serialize()),
		SignedAt:     signedAt,
	}, nil
}

func verifySecp256k1(payload []byte, sig EntrySignature) error {
	pubBytes, err := hex.DecodeString(sig.PublicKeyHex)
	if err != nil {
		return fmt.Errorf("invalid secp256k1 public key encoding")
	}
	pub, err := secp256k1.ParsePubKey(pubBytes)
	if err != nil {
		return fmt.Errorf("invalid secp256k1 public key: %w", err)
	}
	sigBytes, err := hex.DecodeString(sig.SignatureHex)
	if err != nil {
		return fmt.Errorf("invalid secp256k1 signature encoding")
	}
	parsed, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("invalid secp256k1 signature: %w", err)
	}
	digest := sha256.Sum256(payload)
	if !parsed.Verify(digest[:], pub) {
		return fmt.Errorf("secp256k1 verification failed")
	}
	return nil
}
