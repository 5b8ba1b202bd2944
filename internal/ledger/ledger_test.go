package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func openTestLedger(t *testing.T) (*State, func()) {
	t.Helper()
	dir, err := os.MkdirTemp("", "ledgercore-ledger-test-")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	signer, err := GenerateEd25519Signer(SystemSignerID)
	if err != nil {
		t.Fatalf("generate signer: %v", err)
	}
	st, err := Open(dir, DefaultConfig(), signer)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("open: %v", err)
	}
	return st, func() {
		st.Close()
		os.RemoveAll(dir)
	}
}

func TestCommitDepositThenTransferUpdatesBalances(t *testing.T) {
	st, cleanup := openTestLedger(t)
	defer cleanup()

	omnibus := acct(t, Asset, "omnibus", "exchange", "USDT")
	alice := acct(t, Liability, "user", "alice", "USDT")
	bob := acct(t, Liability, "user", "bob", "USDT")

	_, err := st.Commit(UnsignedEntry{
		Intent:        IntentDeposit,
		CorrelationID: "deposit-1",
		Postings: []Posting{
			{Account: omnibus, Amount: MustAmount("500"), Side: Debit},
			{Account: alice, Amount: MustAmount("500"), Side: Credit},
		},
	})
	if err != nil {
		t.Fatalf("deposit commit: %v", err)
	}

	_, err = st.Commit(UnsignedEntry{
		Intent:        IntentTransfer,
		CorrelationID: "transfer-1",
		Postings: []Posting{
			{Account: alice, Amount: MustAmount("200"), Side: Debit},
			{Account: bob, Amount: MustAmount("200"), Side: Credit},
		},
	})
	if err != nil {
		t.Fatalf("transfer commit: %v", err)
	}

	if got := st.GetBalance(alice); !got.Equal(decimal.NewFromInt(300)) {
		t.Errorf("alice balance: got %s, want 300", got)
	}
	if got := st.GetBalance(bob); !got.Equal(decimal.NewFromInt(200)) {
		t.Errorf("bob balance: got %s, want 200", got)
	}
	if got := st.GetBalance(omnibus); !got.Equal(decimal.NewFromInt(500)) {
		t.Errorf("omnibus balance: got %s, want 500", got)
	}
	if st.LastSequence() != 2 {
		t.Errorf("expected last sequence 2, got %d", st.LastSequence())
	}
}

func TestCommitRejectsDuplicateCorrelationID(t *testing.T) {
	st, cleanup := openTestLedger(t)
	defer cleanup()

	omnibus := acct(t, Asset, "omnibus", "exchange", "USDT")
	alice := acct(t, Liability, "user", "alice", "USDT")
	entry := UnsignedEntry{
		Intent:        IntentDeposit,
		CorrelationID: "dup-1",
		Postings: []Posting{
			{Account: omnibus, Amount: MustAmount("10"), Side: Debit},
			{Account: alice, Amount: MustAmount("10"), Side: Credit},
		},
	}
	if _, err := st.Commit(entry); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if _, err := st.Commit(entry); err == nil {
		t.Fatal("expected duplicate correlation id to be rejected")
	}
}

func TestCommitFailureLeavesBalancesUnchanged(t *testing.T) {
	st, cleanup := openTestLedger(t)
	defer cleanup()

	alice := acct(t, Liability, "user", "alice", "USDT")
	bob := acct(t, Liability, "user", "bob", "USDT")

	// Unbalanced postings: should be rejected by validatePostings before
	// anything touches the balance map.
	_, err := st.Commit(UnsignedEntry{
		Intent:        IntentTransfer,
		CorrelationID: "bad-1",
		Postings: []Posting{
			{Account: alice, Amount: MustAmount("10"), Side: Debit},
			{Account: bob, Amount: MustAmount("9"), Side: Credit},
		},
	})
	if err == nil {
		t.Fatal("expected zero-sum violation")
	}
	if got := st.GetBalance(alice); !got.IsZero() {
		t.Errorf("balance should be untouched on failed commit, got %s", got)
	}
	if st.LastSequence() != 0 {
		t.Errorf("sequence should not advance on failed commit, got %d", st.LastSequence())
	}
}

// Seed scenario 2: deposit 100 USDT to ALICE, then attempt to withdraw
// 150. Expect insufficient_balance{needed:150, available:100},
// last_sequence unchanged, balance(ALICE) == 100.
func TestCommitRejectsOverdraftWithdrawal(t *testing.T) {
	st, cleanup := openTestLedger(t)
	defer cleanup()

	omnibus := acct(t, Asset, "omnibus", "exchange", "USDT")
	alice := acct(t, Liability, "user", "alice", "USDT")
	house := acct(t, Liability, "user", "house", "USDT")

	// Fund the omnibus pool well beyond the withdrawal amount via an
	// unrelated account, so the overdraft below is unambiguously
	// alice's shortfall and not the pool's.
	if _, err := st.Commit(UnsignedEntry{
		Intent:        IntentDeposit,
		CorrelationID: "deposit-house",
		Postings: []Posting{
			{Account: omnibus, Amount: MustAmount("10000"), Side: Debit},
			{Account: house, Amount: MustAmount("10000"), Side: Credit},
		},
	}); err != nil {
		t.Fatalf("house deposit commit: %v", err)
	}

	if _, err := st.Commit(UnsignedEntry{
		Intent:        IntentDeposit,
		CorrelationID: "deposit-1",
		Postings: []Posting{
			{Account: omnibus, Amount: MustAmount("100"), Side: Debit},
			{Account: alice, Amount: MustAmount("100"), Side: Credit},
		},
	}); err != nil {
		t.Fatalf("deposit commit: %v", err)
	}

	_, err := st.Commit(UnsignedEntry{
		Intent:        IntentWithdrawal,
		CorrelationID: "withdraw-1",
		Postings: []Posting{
			{Account: alice, Amount: MustAmount("150"), Side: Debit},
			{Account: omnibus, Amount: MustAmount("150"), Side: Credit},
		},
	})
	var insufficient *InsufficientBalance
	if !errors.As(err, &insufficient) {
		t.Fatalf("got %v, want *InsufficientBalance", err)
	}
	if insufficient.Account != alice {
		t.Errorf("got account %v, want %v", insufficient.Account, alice)
	}
	if !insufficient.Needed.Equal(decimal.NewFromInt(150)) {
		t.Errorf("needed: got %s, want 150", insufficient.Needed)
	}
	if !insufficient.Available.Equal(decimal.NewFromInt(100)) {
		t.Errorf("available: got %s, want 100", insufficient.Available)
	}

	if got := st.GetBalance(alice); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balance(alice) should be unchanged: got %s, want 100", got)
	}
	if st.LastSequence() != 2 {
		t.Errorf("sequence should not advance on rejected withdrawal, got %d", st.LastSequence())
	}
}

func TestReplayRebuildsStateAndDetectsTamper(t *testing.T) {
	dir, err := os.MkdirTemp("", "ledgercore-ledger-replay-")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	defer os.RemoveAll(dir)

	signer, err := GenerateEd25519Signer(SystemSignerID)
	if err != nil {
		t.Fatalf("generate signer: %v", err)
	}

	st, err := Open(dir, DefaultConfig(), signer)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	omnibus := acct(t, Asset, "omnibus", "exchange", "USDT")
	alice := acct(t, Liability, "user", "alice", "USDT")
	if _, err := st.Commit(UnsignedEntry{
		Intent:        IntentDeposit,
		CorrelationID: "deposit-1",
		Postings: []Posting{
			{Account: omnibus, Amount: MustAmount("100"), Side: Debit},
			{Account: alice, Amount: MustAmount("100"), Side: Credit},
		},
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(dir, DefaultConfig(), signer)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	if got := reopened.GetBalance(alice); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("replayed balance: got %s, want 100", got)
	}
	if err := reopened.VerifyChain(); err != nil {
		t.Errorf("expected intact chain to verify, got %v", err)
	}

	// Corrupt the durable file directly to simulate tampering, then
	// reopen and confirm the chain is detected as broken.
	names, err := reopened.durable.lines.Files()
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(names) != 1 {
		t.Fatalf("expected exactly one rotated file, got %d", len(names))
	}
	path := filepath.Join(reopened.durable.lines.Dir(), names[0])
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	tampered := []byte(strings.Replace(string(raw), `"correlation_id":"deposit-1"`, `"correlation_id":"tampered!"`, 1))
	if err := os.WriteFile(path, tampered, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Open(dir, DefaultConfig(), signer); err == nil {
		t.Fatal("expected replay of tampered log to fail")
	}
}
