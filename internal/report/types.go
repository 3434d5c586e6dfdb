package report

import (
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

// Report is any computed aggregation payload. Period returns the cache key
// the payload was computed under.
type Report interface {
	Period() string
}

// CategoryAmount is an expense magnitude aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Month summarizes the current calendar month.
type Month struct {
	Year     int
	MonthOf  time.Month
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Balance  decimal.Decimal
	// Categories holds expense magnitudes sorted descending; ties keep
	// first-encountered order.
	Categories []CategoryAmount
	// BudgetUsage is Expenses/Budget, zero when no budget is configured.
	BudgetUsage float64
	OverBudget  bool
}

func (Month) Period() string { return KeyMonth }

// MonthRow is one month's totals inside a yearly report.
type MonthRow struct {
	MonthOf  time.Month
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Balance  decimal.Decimal
}

// Year groups the current calendar year by month, in Jan..Dec order for
// the months present, with trailing grand totals.
type Year struct {
	Year     int
	Months   []MonthRow
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Balance  decimal.Decimal
}

func (Year) Period() string { return KeyYear }

// AllTime summarizes the whole ledger.
type AllTime struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Balance  decimal.Decimal
	First    core.Date
	Last     core.Date
	Count    int
	// Averages are taken only over months that have at least one
	// transaction of the respective polarity.
	AvgMonthlyIncome  decimal.Decimal
	AvgMonthlyExpense decimal.Decimal
	TopCategories     []CategoryAmount // at most five
}

func (AllTime) Period() string { return KeyAll }

// WeekdayAmount is the expense magnitude total for one day of the week.
type WeekdayAmount struct {
	Day    time.Weekday
	Amount decimal.Decimal
}

// Weekdays breaks expenses down by day of week, Monday through Sunday.
type Weekdays struct {
	Days []WeekdayAmount
}

func (Weekdays) Period() string { return keyWeekdays }

// TrendPoint is one month's expense total in a chronological series.
type TrendPoint struct {
	Year    int
	MonthOf time.Month
	Amount  decimal.Decimal
}

// Trend is the chronological month-by-month expense series.
type Trend struct {
	Points []TrendPoint
}

func (Trend) Period() string { return keyTrend }

// BarLength returns the proportional length of a chart bar of up to 20
// units: round(amount / max × 20), zero when max is zero.
func BarLength(amount, max decimal.Decimal) int {
	if max.Sign() <= 0 {
		return 0
	}
	return int(amount.Div(max).Mul(decimal.NewFromInt(20)).Round(0).IntPart())
}
