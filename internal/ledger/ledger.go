// Package ledger owns the ordered transaction sequence. All mutations go
// through it so the date-ascending invariant holds after every call. No
// other component mutates the sequence directly.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/classify"
	"tally/internal/core"
)

type Ledger struct {
	classifier *classify.Classifier
	items      []core.Transaction
}

func New(classifier *classify.Classifier) *Ledger {
	return &Ledger{classifier: classifier}
}

// Replace swaps in a freshly loaded transaction set, restoring the sort
// invariant. Used on load and backup fallback.
func (l *Ledger) Replace(items []core.Transaction) {
	l.items = append([]core.Transaction(nil), items...)
	l.sortByDate()
}

// Add classifies the transaction when its category is missing or still the
// "Other" sentinel, inserts it and re-sorts. The stored transaction is
// returned so the caller can read back the assigned category.
func (l *Ledger) Add(tx core.Transaction) core.Transaction {
	if tx.Category == "" || tx.Category == core.CategoryOther {
		tx.Category = l.classifier.Classify(tx.Note)
	}
	l.items = append(l.items, tx)
	l.sortByDate()
	return tx
}

// AddAll inserts a batch of transactions (CSV import), classifying each,
// with a single re-sort at the end.
func (l *Ledger) AddAll(txs []core.Transaction) {
	for _, tx := range txs {
		if tx.Category == "" || tx.Category == core.CategoryOther {
			tx.Category = l.classifier.Classify(tx.Note)
		}
		l.items = append(l.items, tx)
	}
	l.sortByDate()
}

// Edit replaces the transaction at index. Unlike Add it neither
// re-classifies nor re-sorts; the stored order is kept as-is.
func (l *Ledger) Edit(index int, tx core.Transaction) error {
	if index < 0 || index >= len(l.items) {
		return fmt.Errorf("%w: %d", core.ErrOutOfRange, index)
	}
	l.items[index] = tx
	return nil
}

// Delete removes and returns the transaction at index.
func (l *Ledger) Delete(index int) (core.Transaction, error) {
	if index < 0 || index >= len(l.items) {
		return core.Transaction{}, fmt.Errorf("%w: %d", core.ErrOutOfRange, index)
	}
	removed := l.items[index]
	l.items = append(l.items[:index], l.items[index+1:]...)
	return removed, nil
}

// Search returns transactions whose note or category contains the term,
// case-insensitively, in ledger (date-ascending) order.
func (l *Ledger) Search(term string) []core.Transaction {
	var out []core.Transaction
	for _, tx := range l.items {
		if tx.Matches(term) {
			out = append(out, tx)
		}
	}
	return out
}

// MonthlyExpenses sums the magnitudes of all non-income transactions in
// the given calendar month.
func (l *Ledger) MonthlyExpenses(year int, month time.Month) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range l.items {
		if tx.IsIncome() || !tx.Date.In(year, month) {
			continue
		}
		total = total.Add(tx.Magnitude())
	}
	return total
}

// All returns a copy of the transaction sequence in ledger order.
func (l *Ledger) All() []core.Transaction {
	return append([]core.Transaction(nil), l.items...)
}

func (l *Ledger) Len() int {
	return len(l.items)
}

// Stable sort: equal dates keep their relative insertion order.
func (l *Ledger) sortByDate() {
	sort.SliceStable(l.items, func(i, j int) bool {
		return l.items[i].Date.Before(l.items[j].Date.Time)
	})
}
