// Package main provides ledgerd - a bootstrap for the ledger core.
package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/klingon-exchange/ledgercore/internal/ledger"
	"github.com/klingon-exchange/ledgercore/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		dataDir     = flag.String("data-dir", "~/.ledgercore", "Data directory")
		logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		requireSig  = flag.Bool("require-system-signature", true, "Require the system signer on every entry")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{
		Level:      *logLevel,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("ledgerd %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	dataPath := expandPath(*dataDir)
	if err := os.MkdirAll(dataPath, 0700); err != nil {
		log.Fatal("failed to create data dir", "error", err)
	}

	signer, err := loadOrGenerateSystemSigner(dataPath)
	if err != nil {
		log.Fatal("failed to load system signer", "error", err)
	}
	log.Info("system signer ready", "signer_id", signer.SignerID(), "algorithm", signer.Algorithm())

	cfg := ledger.DefaultConfig()
	cfg.RequireSystemSignature = *requireSig

	journalDir := filepath.Join(dataPath, "journal")
	state, err := ledger.Open(journalDir, cfg, signer)
	if err != nil {
		log.Fatal("failed to open ledger", "error", err)
	}
	defer state.Close()

	log.Info("ledger opened", "dir", journalDir, "last_sequence", state.LastSequence(), "last_hash", state.LastHash())

	if err := state.VerifyChain(); err != nil {
		log.Fatal("chain verification failed", "error", err)
	}
	log.Info("chain verified", "entries", state.LastSequence())

	entries, err := state.ReadAll()
	if err != nil {
		log.Fatal("failed to read journal", "error", err)
	}

	printSummary(log, dataPath, entries, state)
}

// loadOrGenerateSystemSigner persists an ed25519 keypair under
// <dataPath>/system_signer.key so the ledger's signer id is stable
// across restarts, the way the teacher's klingond persists its
// libp2p identity key in its data directory.
func loadOrGenerateSystemSigner(dataPath string) (*ledger.Ed25519Signer, error) {
	keyPath := filepath.Join(dataPath, "system_signer.key")

	raw, err := os.ReadFile(keyPath)
	if err == nil {
		priv, decodeErr := hex.DecodeString(string(raw))
		if decodeErr != nil || len(priv) != ed25519.PrivateKeySize {
			return nil, decodeErr
		}
		return ledger.NewEd25519Signer(ledger.SystemSignerID, ed25519.PrivateKey(priv)), nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	signer, genErr := ledger.GenerateEd25519Signer(ledger.SystemSignerID)
	if genErr != nil {
		return nil, genErr
	}
	priv := signer.PrivateKeyBytes()
	if writeErr := os.WriteFile(keyPath, []byte(hex.EncodeToString(priv)), 0600); writeErr != nil {
		return nil, writeErr
	}
	return signer, nil
}

func printSummary(log *logging.Logger, dataPath string, entries []*ledger.JournalEntry, state *ledger.State) {
	log.Info("")
	log.Info("=================================================")
	log.Infof("  ledgerd %s", version)
	log.Info("=================================================")
	log.Info("")
	log.Infof("  Data dir: %s", dataPath)
	log.Infof("  Entries: %d", len(entries))
	log.Infof("  Last sequence: %d", state.LastSequence())
	log.Infof("  Last hash: %s", state.LastHash())
	log.Info("")
	log.Info("=================================================")
	log.Info("")
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
