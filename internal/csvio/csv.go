// Package csvio reads and writes the ledger CSV interchange format.
//
// Import accepts a header row (ignored) followed by rows of at least
// date, amount and note; a 4th field is the category and a 5th holds
// ";"-joined tags, which also covers the 5-column export layout
// (Date,Amount,Category,Note,Tags) so an exported file imports cleanly.
// Any malformed row aborts the whole import.
package csvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"tally/internal/core"
)

const tagSeparator = ";"

var exportHeader = []string{"Date", "Amount", "Category", "Note", "Tags"}

// ReadFile parses the whole file into transactions. Malformed rows abort
// the import with no partial result.
func ReadFile(path string) ([]core.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("import file not found: %w", err)
		}
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	var out []core.Transaction
	for i, record := range records {
		if i == 0 {
			continue // header row ignored
		}
		tx, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func parseRow(fields []string) (core.Transaction, error) {
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) < 3 {
		return core.Transaction{}, fmt.Errorf("expected at least 3 fields (date, amount, note), got %d", len(fields))
	}

	date, err := core.ParseDate(fields[0])
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(fields[1])
	if err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{Date: date, Amount: amount}
	switch {
	case len(fields) >= 5:
		// export layout: Date,Amount,Category,Note,Tags
		tx.Category = fields[2]
		tx.Note = fields[3]
		tx.Tags = splitTags(fields[4])
	case len(fields) == 4:
		tx.Note = fields[2]
		tx.Category = fields[3]
	default:
		tx.Note = fields[2]
	}
	return tx, nil
}

// WriteFile exports transactions with category, note and tags quoted.
func WriteFile(path string, txs []core.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, strings.Join(exportHeader, ","))
	for _, tx := range txs {
		fmt.Fprintf(w, "%s,%s,%s,%s,%s\n",
			tx.Date.String(),
			tx.Amount.String(),
			quote(tx.Category),
			quote(tx.Note),
			quote(strings.Join(tx.Tags, tagSeparator)))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(s, tagSeparator) {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// quote wraps a field in double quotes, doubling any embedded quotes per
// CSV convention.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
