package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

func testSnapshot(note string) core.Snapshot {
	return core.Snapshot{
		Transactions: []core.Transaction{
			{
				Date:     core.NewDate(2025, time.January, 5),
				Amount:   decimal.NewFromInt(-1500),
				Category: "Food",
				Note:     note,
				Tags:     []string{"work", "team"},
			},
			{
				Date:   core.NewDate(2025, time.January, 6),
				Amount: decimal.Zero, // zero amounts must round-trip
				Note:   "placeholder",
			},
		},
		Rules:         []core.CategoryRule{{Pattern: "lunch", Category: "Food"}},
		MonthlyBudget: decimal.NewFromInt(10000),
	}
}

func newTestDocumentStore(t *testing.T) *DocumentStore {
	t.Helper()
	dir := t.TempDir()
	return NewDocumentStore(filepath.Join(dir, "tally.json"), filepath.Join(dir, "tally.json.bak"))
}

func TestDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestDocumentStore(t)

	if err := s.Save(ctx, testSnapshot("Lunch")); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Transactions) != 2 {
		t.Fatalf("transactions = %d, want 2", len(got.Transactions))
	}
	tx := got.Transactions[0]
	if tx.Date.String() != "2025-01-05" || !tx.Amount.Equal(decimal.NewFromInt(-1500)) {
		t.Errorf("first transaction mismatch: %+v", tx)
	}
	if tx.Category != "Food" || tx.Note != "Lunch" || len(tx.Tags) != 2 {
		t.Errorf("first transaction fields: %+v", tx)
	}
	if !got.Transactions[1].Amount.IsZero() {
		t.Errorf("zero amount did not round-trip: %s", got.Transactions[1].Amount)
	}
	if len(got.Rules) != 1 || got.Rules[0].Pattern != "lunch" {
		t.Errorf("rules mismatch: %+v", got.Rules)
	}
	if !got.MonthlyBudget.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("budget = %s, want 10000", got.MonthlyBudget)
	}
	if got.LastSaved.IsZero() {
		t.Error("lastSaved not set")
	}
}

func TestLoadAbsentFileStartsEmpty(t *testing.T) {
	s := newTestDocumentStore(t)
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Transactions) != 0 || len(got.Rules) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", got)
	}
}

func TestBackupHoldsPriorState(t *testing.T) {
	ctx := context.Background()
	s := newTestDocumentStore(t)

	if err := s.Save(ctx, testSnapshot("first")); err != nil {
		t.Fatalf("first save: %v", err)
	}
	// No primary existed before the first save, so no backup yet.
	if _, err := os.Stat(s.backupPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("backup should not exist after first save: %v", err)
	}

	if err := s.Save(ctx, testSnapshot("second")); err != nil {
		t.Fatalf("second save: %v", err)
	}
	backup, err := readSnapshot(s.backupPath)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if backup.Transactions[0].Note != "first" {
		t.Fatalf("backup note = %q, want prior state", backup.Transactions[0].Note)
	}
	primary, err := readSnapshot(s.path)
	if err != nil {
		t.Fatalf("read primary: %v", err)
	}
	if primary.Transactions[0].Note != "second" {
		t.Fatalf("primary note = %q, want new state", primary.Transactions[0].Note)
	}
}

func TestFailedPromotionLeavesPrimaryIntact(t *testing.T) {
	ctx := context.Background()
	s := newTestDocumentStore(t)

	if err := s.Save(ctx, testSnapshot("stable")); err != nil {
		t.Fatalf("initial save: %v", err)
	}

	// Fail between backup copy and primary promotion.
	s.rename = func(_, _ string) error {
		return errors.New("disk full")
	}
	if err := s.Save(ctx, testSnapshot("doomed")); err == nil {
		t.Fatal("expected save failure")
	}

	primary, err := readSnapshot(s.path)
	if err != nil {
		t.Fatalf("primary unreadable after failed save: %v", err)
	}
	if primary.Transactions[0].Note != "stable" {
		t.Fatalf("primary note = %q, prior state lost", primary.Transactions[0].Note)
	}
	if _, err := os.Stat(s.path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("temp file left behind")
	}
}

func TestCorruptPrimaryFallsBackToBackupTransactionsOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestDocumentStore(t)

	if err := s.Save(ctx, testSnapshot("first")); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := s.Save(ctx, testSnapshot("second")); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if err := os.WriteFile(s.path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt primary: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Transactions) != 2 || got.Transactions[0].Note != "first" {
		t.Fatalf("expected backup transactions, got %+v", got.Transactions)
	}
	// Rules and budget are not restored on the fallback path.
	if len(got.Rules) != 0 {
		t.Fatalf("rules restored from backup: %+v", got.Rules)
	}
	if !got.MonthlyBudget.IsZero() {
		t.Fatalf("budget restored from backup: %s", got.MonthlyBudget)
	}
}

func TestCorruptPrimaryAndBackupStartsEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestDocumentStore(t)
	if err := os.WriteFile(s.path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt primary: %v", err)
	}
	if err := os.WriteFile(s.backupPath, []byte("also broken"), 0o644); err != nil {
		t.Fatalf("write corrupt backup: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load must degrade, not fail: %v", err)
	}
	if len(got.Transactions) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", got)
	}
}
