package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryOther is the sentinel category assigned to transactions that no
// classification rule matched.
const CategoryOther = "Other"

// DateFormat is the calendar date layout used everywhere a date crosses a
// process boundary: the persisted document, CSV files and user input.
const DateFormat = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	// Transaction is a single dated ledger entry. Positive amounts are
	// income, negative amounts are expenses. A zero amount is legal and
	// must round-trip through persistence unchanged.
	Transaction struct {
		Date     Date            `json:"date"`
		Amount   decimal.Decimal `json:"amount"`
		Category string          `json:"category"`
		Note     string          `json:"note"`
		Tags     []string        `json:"tags"`
	}

	// CategoryRule maps a case-insensitive pattern to a category. Rules
	// keep their insertion order; first match wins.
	CategoryRule struct {
		Pattern  string `json:"pattern"`
		Category string `json:"category"`
	}

	// Snapshot is the unit of persistence: the whole ledger state written
	// on every mutation.
	Snapshot struct {
		Transactions  []Transaction   `json:"transactions"`
		Rules         []CategoryRule  `json:"categoryRules"`
		MonthlyBudget decimal.Decimal `json:"monthlyBudget"`
		LastSaved     time.Time       `json:"lastSaved"`
	}
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrOutOfRange    = errors.New("index out of range")
	ErrEmptyPattern  = errors.New("empty pattern")
	ErrEmptyCategory = errors.New("empty category")
)

// NewDate creates a new Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// In reports whether the date falls in the given calendar month.
func (d Date) In(year int, month time.Month) bool {
	return d.Year() == year && d.Month() == month
}

func (d Date) String() string {
	return d.Format(DateFormat)
}

// MarshalJSON writes the date as a plain "2006-01-02" string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateFormat) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// IsIncome reports whether the transaction is income. Zero amounts count
// as expenses of zero, not income.
func (t Transaction) IsIncome() bool {
	return t.Amount.Sign() > 0
}

// Magnitude returns the absolute amount.
func (t Transaction) Magnitude() decimal.Decimal {
	return t.Amount.Abs()
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(t.Note) > 500 {
		return errors.New("note too long (max 500 characters)")
	}
	return nil
}

// Matches reports whether the term occurs in the note or category,
// case-insensitively.
func (t Transaction) Matches(term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(t.Note), term) ||
		strings.Contains(strings.ToLower(t.Category), term)
}

func (r CategoryRule) Validate() error {
	if strings.TrimSpace(r.Pattern) == "" {
		return ErrEmptyPattern
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}
