package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

const tagSeparator = ";"

// SQLiteRepository is the alternative snapshot store. Save replaces the
// whole stored state inside one database transaction, matching the
// full-persist-per-mutation model of the document store.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, snap core.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"transactions", "category_rules"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, t := range snap.Transactions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (tx_date, amount, category, note, tags) VALUES (?, ?, ?, ?, ?)`,
			t.Date.String(), t.Amount.String(), t.Category, t.Note, strings.Join(t.Tags, tagSeparator))
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
	}
	for i, rule := range snap.Rules {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO category_rules (position, pattern, category) VALUES (?, ?, ?)`,
			i, rule.Pattern, rule.Category)
		if err != nil {
			return fmt.Errorf("insert rule: %w", err)
		}
	}

	settings := map[string]string{
		"monthly_budget": snap.MonthlyBudget.String(),
		"last_saved":     time.Now().Format(time.RFC3339),
	}
	for key, value := range settings {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value)
		if err != nil {
			return fmt.Errorf("store setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}

	slog.DebugContext(ctx, "Snapshot saved to SQLite",
		"transactions", len(snap.Transactions),
		"rules", len(snap.Rules))
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot

	rows, err := r.db.QueryContext(ctx,
		`SELECT tx_date, amount, category, note, tags FROM transactions ORDER BY tx_date, id`)
	if err != nil {
		return snap, fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var dateStr, amountStr, category, note, tags string
		if err := rows.Scan(&dateStr, &amountStr, &category, &note, &tags); err != nil {
			return snap, fmt.Errorf("scan transaction: %w", err)
		}
		date, err := core.ParseDate(dateStr)
		if err != nil {
			return snap, fmt.Errorf("stored date: %w", err)
		}
		amount, err := core.ParseAmount(amountStr)
		if err != nil {
			return snap, fmt.Errorf("stored amount: %w", err)
		}
		t := core.Transaction{Date: date, Amount: amount, Category: category, Note: note}
		if tags != "" {
			t.Tags = strings.Split(tags, tagSeparator)
		}
		snap.Transactions = append(snap.Transactions, t)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate transactions: %w", err)
	}

	ruleRows, err := r.db.QueryContext(ctx,
		`SELECT pattern, category FROM category_rules ORDER BY position`)
	if err != nil {
		return snap, fmt.Errorf("load rules: %w", err)
	}
	defer ruleRows.Close()
	for ruleRows.Next() {
		var rule core.CategoryRule
		if err := ruleRows.Scan(&rule.Pattern, &rule.Category); err != nil {
			return snap, fmt.Errorf("scan rule: %w", err)
		}
		snap.Rules = append(snap.Rules, rule)
	}
	if err := ruleRows.Err(); err != nil {
		return snap, fmt.Errorf("iterate rules: %w", err)
	}

	var budgetStr string
	err = r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = 'monthly_budget'`).Scan(&budgetStr)
	switch {
	case err == sql.ErrNoRows:
		snap.MonthlyBudget = decimal.Zero
	case err != nil:
		return snap, fmt.Errorf("load budget: %w", err)
	default:
		budget, perr := core.ParseAmount(budgetStr)
		if perr != nil {
			return snap, fmt.Errorf("stored budget: %w", perr)
		}
		snap.MonthlyBudget = budget
	}

	return snap, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
