// Package forecast projects future monthly expenses as a bounded moving
// average over recent history. No trend extrapolation: the same value is
// repeated for every forecast month.
package forecast

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/ledger"
)

// History window and averaging bounds.
const (
	trailingMonths = 6
	averageOver    = 3
	minHistory     = 2
)

var ErrInsufficientData = errors.New("insufficient expense history for forecast")

// Point is the forecast for one future month.
type Point struct {
	Year    int
	MonthOf time.Month
	Amount  decimal.Decimal
}

type Engine struct {
	ledger *ledger.Ledger
	now    func() time.Time
}

// New creates an engine over the ledger. now resolves the current
// month for the trailing window; nil means time.Now.
func New(l *ledger.Ledger, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{ledger: l, now: now}
}

// Forecast projects the next monthsAhead months. It requires expense
// history in at least two distinct calendar months within the trailing six
// months (current month included) and averages the most recent
// min(3, available) monthly totals.
func (e *Engine) Forecast(monthsAhead int) ([]Point, error) {
	if monthsAhead < 1 {
		return nil, fmt.Errorf("months ahead must be positive, got %d", monthsAhead)
	}

	now := e.now()
	windowStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, -(trailingMonths - 1), 0)

	type monthKey struct {
		year  int
		month time.Month
	}
	totals := make(map[monthKey]decimal.Decimal)
	for _, tx := range e.ledger.All() {
		if tx.IsIncome() {
			continue
		}
		if tx.Date.Before(windowStart) || tx.Date.After(now) {
			continue
		}
		k := monthKey{tx.Date.Year(), tx.Date.Month()}
		totals[k] = totals[k].Add(tx.Magnitude())
	}
	if len(totals) < minHistory {
		return nil, fmt.Errorf("%w: have %d months, need %d", ErrInsufficientData, len(totals), minHistory)
	}

	keys := make([]monthKey, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	n := averageOver
	if len(keys) < n {
		n = len(keys)
	}
	sum := decimal.Zero
	for _, k := range keys[len(keys)-n:] {
		sum = sum.Add(totals[k])
	}
	avg := sum.Div(decimal.NewFromInt(int64(n)))

	points := make([]Point, 0, monthsAhead)
	for i := 1; i <= monthsAhead; i++ {
		future := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, i, 0)
		points = append(points, Point{Year: future.Year(), MonthOf: future.Month(), Amount: avg})
	}
	return points, nil
}
