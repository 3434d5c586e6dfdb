// Package report computes income/expense aggregations over the ledger for
// month, year and all-time windows plus spending-pattern breakdowns. Results
// are cached per report key; a single dirty flag covers the whole cache and
// is cleared lazily on the next report request.
package report

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/ledger"
)

// Cache keys double as the period names accepted by Report.
const (
	KeyMonth = "month"
	KeyYear  = "year"
	KeyAll   = "all"

	keyWeekdays = "weekdays"
	keyTrend    = "trend"
)

var (
	ErrUnknownPeriod = errors.New("unknown report period")
	ErrNoData        = errors.New("no data for report window")
)

type Engine struct {
	ledger *ledger.Ledger
	budget func() decimal.Decimal
	cache  cache.Cache[Report]
	dirty  bool
	now    func() time.Time
}

// New creates an engine over the ledger. budget supplies the current
// monthly ceiling; a nil func or zero value disables budget fields.
// now is the clock used to resolve the current month; nil means
// time.Now.
func New(l *ledger.Ledger, budget func() decimal.Decimal, now func() time.Time) *Engine {
	if budget == nil {
		budget = func() decimal.Decimal { return decimal.Zero }
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{
		ledger: l,
		budget: budget,
		cache:  cache.NewStore[Report](),
		now:    now,
	}
}

// MarkDirty records that the ledger, rules or budget changed. The cache is
// purged on the next report request, not proactively.
func (e *Engine) MarkDirty() {
	e.dirty = true
}

// Report dispatches on the period name. Unrecognized periods are a
// validation error and perform no computation.
func (e *Engine) Report(period string) (Report, error) {
	switch period {
	case KeyMonth:
		return e.Month()
	case KeyYear:
		return e.Year()
	case KeyAll:
		return e.AllTime()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
	}
}

// Month reports on the calendar month containing "now", evaluated at call
// time. An empty window returns ErrNoData and caches nothing.
func (e *Engine) Month() (Month, error) {
	e.flushIfDirty()
	if v, ok := e.cache.Get(KeyMonth); ok {
		return v.(Month), nil
	}

	now := e.now()
	year, month := now.Year(), now.Month()
	var window []core.Transaction
	for _, tx := range e.ledger.All() {
		if tx.Date.In(year, month) {
			window = append(window, tx)
		}
	}
	if len(window) == 0 {
		return Month{}, fmt.Errorf("%w: %d-%02d", ErrNoData, year, month)
	}

	m := Month{Year: year, MonthOf: month}
	m.Income, m.Expenses = sumByPolarity(window)
	m.Balance = m.Income.Sub(m.Expenses)
	m.Categories = categoryTotals(window)

	if budget := e.budget(); budget.Sign() > 0 {
		usage, _ := m.Expenses.Div(budget).Float64()
		m.BudgetUsage = usage
		m.OverBudget = usage > 1.0
	}

	e.cache.Set(KeyMonth, m)
	return m, nil
}

// Year reports on the calendar year containing "now", grouped by month in
// Jan..Dec order for the months present.
func (e *Engine) Year() (Year, error) {
	e.flushIfDirty()
	if v, ok := e.cache.Get(KeyYear); ok {
		return v.(Year), nil
	}

	year := e.now().Year()
	byMonth := make(map[time.Month][]core.Transaction)
	for _, tx := range e.ledger.All() {
		if tx.Date.Year() == year {
			byMonth[tx.Date.Month()] = append(byMonth[tx.Date.Month()], tx)
		}
	}
	if len(byMonth) == 0 {
		return Year{}, fmt.Errorf("%w: %d", ErrNoData, year)
	}

	y := Year{Year: year, Income: decimal.Zero, Expenses: decimal.Zero}
	for month := time.January; month <= time.December; month++ {
		window, ok := byMonth[month]
		if !ok {
			continue
		}
		income, expenses := sumByPolarity(window)
		y.Months = append(y.Months, MonthRow{
			MonthOf:  month,
			Income:   income,
			Expenses: expenses,
			Balance:  income.Sub(expenses),
		})
		y.Income = y.Income.Add(income)
		y.Expenses = y.Expenses.Add(expenses)
	}
	y.Balance = y.Income.Sub(y.Expenses)

	e.cache.Set(KeyYear, y)
	return y, nil
}

// AllTime reports over the whole ledger with no window.
func (e *Engine) AllTime() (AllTime, error) {
	e.flushIfDirty()
	if v, ok := e.cache.Get(KeyAll); ok {
		return v.(AllTime), nil
	}

	items := e.ledger.All()
	if len(items) == 0 {
		return AllTime{}, ErrNoData
	}

	a := AllTime{Count: len(items), First: items[0].Date, Last: items[len(items)-1].Date}
	a.Income, a.Expenses = sumByPolarity(items)
	a.Balance = a.Income.Sub(a.Expenses)

	// Monthly averages count only months that actually have a transaction
	// of the respective polarity; empty months contribute no zeros.
	type monthKey struct {
		year  int
		month time.Month
	}
	incomeByMonth := make(map[monthKey]decimal.Decimal)
	expenseByMonth := make(map[monthKey]decimal.Decimal)
	for _, tx := range items {
		k := monthKey{tx.Date.Year(), tx.Date.Month()}
		if tx.IsIncome() {
			incomeByMonth[k] = incomeByMonth[k].Add(tx.Amount)
		} else {
			expenseByMonth[k] = expenseByMonth[k].Add(tx.Magnitude())
		}
	}
	a.AvgMonthlyIncome = averageOf(incomeByMonth)
	a.AvgMonthlyExpense = averageOf(expenseByMonth)

	top := categoryTotals(items)
	if len(top) > 5 {
		top = top[:5]
	}
	a.TopCategories = top

	e.cache.Set(KeyAll, a)
	return a, nil
}

// Weekdays breaks expense magnitudes down by day of week, Monday first.
func (e *Engine) Weekdays() (Weekdays, error) {
	e.flushIfDirty()
	if v, ok := e.cache.Get(keyWeekdays); ok {
		return v.(Weekdays), nil
	}

	items := e.ledger.All()
	if len(items) == 0 {
		return Weekdays{}, ErrNoData
	}
	totals := make(map[time.Weekday]decimal.Decimal)
	for _, tx := range items {
		if tx.IsIncome() {
			continue
		}
		day := tx.Date.Weekday()
		totals[day] = totals[day].Add(tx.Magnitude())
	}
	w := Weekdays{}
	order := []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	}
	for _, day := range order {
		w.Days = append(w.Days, WeekdayAmount{Day: day, Amount: totals[day]})
	}

	e.cache.Set(keyWeekdays, w)
	return w, nil
}

// Trend returns the chronological month-by-month expense series.
func (e *Engine) Trend() (Trend, error) {
	e.flushIfDirty()
	if v, ok := e.cache.Get(keyTrend); ok {
		return v.(Trend), nil
	}

	items := e.ledger.All()
	if len(items) == 0 {
		return Trend{}, ErrNoData
	}
	var tr Trend
	for _, tx := range items {
		if tx.IsIncome() {
			continue
		}
		n := len(tr.Points)
		if n > 0 && tr.Points[n-1].Year == tx.Date.Year() && tr.Points[n-1].MonthOf == tx.Date.Month() {
			tr.Points[n-1].Amount = tr.Points[n-1].Amount.Add(tx.Magnitude())
			continue
		}
		tr.Points = append(tr.Points, TrendPoint{
			Year:    tx.Date.Year(),
			MonthOf: tx.Date.Month(),
			Amount:  tx.Magnitude(),
		})
	}

	e.cache.Set(keyTrend, tr)
	return tr, nil
}

func (e *Engine) flushIfDirty() {
	if e.dirty {
		e.cache.Purge()
		e.dirty = false
	}
}

func sumByPolarity(txs []core.Transaction) (income, expenses decimal.Decimal) {
	income, expenses = decimal.Zero, decimal.Zero
	for _, tx := range txs {
		if tx.IsIncome() {
			income = income.Add(tx.Amount)
		} else {
			expenses = expenses.Add(tx.Magnitude())
		}
	}
	return income, expenses
}

func averageOf[K comparable](totals map[K]decimal.Decimal) decimal.Decimal {
	if len(totals) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range totals {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(totals))))
}

// categoryTotals aggregates expense magnitudes by category, descending.
// The stable sort keeps first-encountered order for equal amounts.
func categoryTotals(txs []core.Transaction) []CategoryAmount {
	index := make(map[string]int)
	var out []CategoryAmount
	for _, tx := range txs {
		if tx.IsIncome() {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(out)
			index[tx.Category] = i
			out = append(out, CategoryAmount{Name: tx.Category, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(tx.Magnitude())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}
