package report

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/classify"
	"tally/internal/core"
	"tally/internal/ledger"
)

func fixedNow(year int, month time.Month, day int) func() time.Time {
	return func() time.Time {
		return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	}
}

func newTestEngine(t *testing.T, budget int64) (*ledger.Ledger, *Engine) {
	t.Helper()
	c := classify.New()
	c.SeedDefaults()
	l := ledger.New(c)
	b := decimal.NewFromInt(budget)
	e := New(l, func() decimal.Decimal { return b }, fixedNow(2025, time.January, 20))
	return l, e
}

func add(l *ledger.Ledger, e *Engine, date core.Date, amount int64, note string) {
	l.Add(core.Transaction{Date: date, Amount: decimal.NewFromInt(amount), Note: note})
	e.MarkDirty()
}

func TestMonthReportTotals(t *testing.T) {
	l, e := newTestEngine(t, 0)
	add(l, e, core.NewDate(2025, time.January, 5), -1500, "Lunch")
	add(l, e, core.NewDate(2025, time.January, 10), 50000, "Salary")

	m, err := e.Month()
	if err != nil {
		t.Fatalf("month report: %v", err)
	}
	if m.Income.String() != "50000" {
		t.Errorf("income = %s, want 50000", m.Income)
	}
	if m.Expenses.String() != "1500" {
		t.Errorf("expenses = %s, want 1500", m.Expenses)
	}
	if m.Balance.String() != "48500" {
		t.Errorf("balance = %s, want 48500", m.Balance)
	}
	if len(m.Categories) != 1 || m.Categories[0].Name != "Food" || m.Categories[0].Amount.String() != "1500" {
		t.Errorf("categories = %+v, want [Food 1500]", m.Categories)
	}
	if m.BudgetUsage != 0 || m.OverBudget {
		t.Errorf("budget fields should be zero without a budget: %+v", m)
	}
}

func TestMonthWindowEvaluatedAtCallTime(t *testing.T) {
	l, e := newTestEngine(t, 0)
	add(l, e, core.NewDate(2024, time.December, 31), -100, "last year")
	add(l, e, core.NewDate(2025, time.February, 1), -100, "next month")
	add(l, e, core.NewDate(2025, time.January, 15), -100, "in window")

	m, err := e.Month()
	if err != nil {
		t.Fatalf("month report: %v", err)
	}
	if m.Expenses.String() != "100" {
		t.Fatalf("expenses = %s, want only the in-window transaction", m.Expenses)
	}
}

func TestMonthBudgetUsage(t *testing.T) {
	l, e := newTestEngine(t, 10000)
	add(l, e, core.NewDate(2025, time.January, 5), -9500, "rent and lunch")

	m, err := e.Month()
	if err != nil {
		t.Fatalf("month report: %v", err)
	}
	if m.BudgetUsage < 0.949 || m.BudgetUsage > 0.951 {
		t.Errorf("usage = %f, want 0.95", m.BudgetUsage)
	}
	if m.OverBudget {
		t.Error("95%% usage should not be flagged exceeded")
	}

	add(l, e, core.NewDate(2025, time.January, 6), -1000, "over the top")
	m, err = e.Month()
	if err != nil {
		t.Fatalf("month report: %v", err)
	}
	if !m.OverBudget {
		t.Errorf("usage = %f, expected exceeded flag", m.BudgetUsage)
	}
}

func TestEmptyMonthReportsNoDataAndCachesNothing(t *testing.T) {
	l, e := newTestEngine(t, 0)
	add(l, e, core.NewDate(2020, time.May, 1), -100, "ancient history")

	if _, err := e.Month(); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if e.cache.Size() != 0 {
		t.Fatalf("empty window must cache nothing, cache size %d", e.cache.Size())
	}
}

func TestReportCacheCoherence(t *testing.T) {
	l, e := newTestEngine(t, 0)
	add(l, e, core.NewDate(2025, time.January, 5), -1500, "Lunch")

	first, err := e.Month()
	if err != nil {
		t.Fatalf("first report: %v", err)
	}
	second, err := e.Month()
	if err != nil {
		t.Fatalf("second report: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("consecutive reports without mutation differ")
	}

	// Any mutation invalidates: the next report reflects the change.
	add(l, e, core.NewDate(2025, time.January, 7), -500, "taxi")
	third, err := e.Month()
	if err != nil {
		t.Fatalf("third report: %v", err)
	}
	if third.Expenses.String() != "2000" {
		t.Fatalf("report after mutation = %s, want 2000", third.Expenses)
	}
}

func TestDirtyFlagPurgesAllKeys(t *testing.T) {
	l, e := newTestEngine(t, 0)
	add(l, e, core.NewDate(2025, time.January, 5), -1500, "Lunch")

	if _, err := e.Month(); err != nil {
		t.Fatalf("month: %v", err)
	}
	if _, err := e.Year(); err != nil {
		t.Fatalf("year: %v", err)
	}
	if _, err := e.Weekdays(); err != nil {
		t.Fatalf("weekdays: %v", err)
	}
	if e.cache.Size() != 3 {
		t.Fatalf("cache size = %d, want 3", e.cache.Size())
	}

	e.MarkDirty()
	// Invalidation is lazy: still cached until the next request.
	if e.cache.Size() != 3 {
		t.Fatalf("MarkDirty purged proactively, size %d", e.cache.Size())
	}
	if _, err := e.Month(); err != nil {
		t.Fatalf("month after dirty: %v", err)
	}
	// The whole cache was purged, then month was recomputed and stored.
	if e.cache.Size() != 1 {
		t.Fatalf("cache size after lazy purge = %d, want 1", e.cache.Size())
	}
}

func TestUnknownPeriod(t *testing.T) {
	_, e := newTestEngine(t, 0)
	if _, err := e.Report("decade"); !errors.Is(err, ErrUnknownPeriod) {
		t.Fatalf("expected ErrUnknownPeriod, got %v", err)
	}
}

func TestReportDispatch(t *testing.T) {
	l, e := newTestEngine(t, 0)
	add(l, e, core.NewDate(2025, time.January, 5), -1500, "Lunch")
	for _, period := range []string{"month", "year", "all"} {
		r, err := e.Report(period)
		if err != nil {
			t.Fatalf("Report(%s): %v", period, err)
		}
		if r.Period() != period {
			t.Errorf("Report(%s) returned payload for %s", period, r.Period())
		}
	}
}

func TestYearGroupsMonthsInCalendarOrder(t *testing.T) {
	l, e := newTestEngine(t, 0)
	// Added out of order on purpose.
	add(l, e, core.NewDate(2025, time.November, 2), -300, "c")
	add(l, e, core.NewDate(2025, time.January, 5), -100, "a")
	add(l, e, core.NewDate(2025, time.March, 9), 5000, "salary")
	add(l, e, core.NewDate(2024, time.June, 1), -999, "previous year")

	y, err := e.Year()
	if err != nil {
		t.Fatalf("year report: %v", err)
	}
	if y.Year != 2025 {
		t.Fatalf("year = %d", y.Year)
	}
	want := []time.Month{time.January, time.March, time.November}
	if len(y.Months) != len(want) {
		t.Fatalf("months = %+v, want 3 rows", y.Months)
	}
	for i, row := range y.Months {
		if row.MonthOf != want[i] {
			t.Errorf("row %d month = %s, want %s", i, row.MonthOf, want[i])
		}
	}
	if y.Income.String() != "5000" || y.Expenses.String() != "400" || y.Balance.String() != "4600" {
		t.Fatalf("totals income=%s expenses=%s balance=%s", y.Income, y.Expenses, y.Balance)
	}
}

func TestAllTime(t *testing.T) {
	l, e := newTestEngine(t, 0)
	add(l, e, core.NewDate(2024, time.November, 3), 1000, "salary")
	add(l, e, core.NewDate(2024, time.December, 5), -200, "lunch")
	add(l, e, core.NewDate(2025, time.January, 10), -400, "rent payment")
	add(l, e, core.NewDate(2025, time.January, 15), 3000, "salary")

	a, err := e.AllTime()
	if err != nil {
		t.Fatalf("all-time report: %v", err)
	}
	if a.Count != 4 {
		t.Errorf("count = %d", a.Count)
	}
	if a.First.String() != "2024-11-03" || a.Last.String() != "2025-01-15" {
		t.Errorf("first/last = %s/%s", a.First, a.Last)
	}
	// Income months: Nov (1000), Jan (3000) -> avg 2000.
	if a.AvgMonthlyIncome.String() != "2000" {
		t.Errorf("avg monthly income = %s, want 2000", a.AvgMonthlyIncome)
	}
	// Expense months: Dec (200), Jan (400) -> avg 300. November has no
	// expense transaction and contributes no zero.
	if a.AvgMonthlyExpense.String() != "300" {
		t.Errorf("avg monthly expense = %s, want 300", a.AvgMonthlyExpense)
	}
}

func TestAllTimeTopCategoriesStableTies(t *testing.T) {
	l, e := newTestEngine(t, 0)
	// Six categories; Alpha and Beta tie, Alpha encountered first.
	data := []struct {
		amount   int64
		category string
	}{
		{-500, "Alpha"}, {-500, "Beta"}, {-900, "Gamma"},
		{-100, "Delta"}, {-200, "Epsilon"}, {-50, "Zeta"},
	}
	for i, d := range data {
		tx := core.Transaction{
			Date:     core.NewDate(2025, time.January, i+1),
			Amount:   decimal.NewFromInt(d.amount),
			Category: d.category,
			Note:     "n",
		}
		l.Add(tx)
		e.MarkDirty()
	}

	a, err := e.AllTime()
	if err != nil {
		t.Fatalf("all-time report: %v", err)
	}
	if len(a.TopCategories) != 5 {
		t.Fatalf("top categories = %d, want 5", len(a.TopCategories))
	}
	wantOrder := []string{"Gamma", "Alpha", "Beta", "Epsilon", "Delta"}
	for i, want := range wantOrder {
		if a.TopCategories[i].Name != want {
			t.Fatalf("top[%d] = %s, want %s (full: %+v)", i, a.TopCategories[i].Name, want, a.TopCategories)
		}
	}
}

func TestWeekdaysBreakdown(t *testing.T) {
	l, e := newTestEngine(t, 0)
	// 2025-01-06 is a Monday, 2025-01-11 a Saturday.
	add(l, e, core.NewDate(2025, time.January, 6), -100, "monday coffee")
	add(l, e, core.NewDate(2025, time.January, 13), -200, "another monday")
	add(l, e, core.NewDate(2025, time.January, 11), -50, "saturday snack")
	add(l, e, core.NewDate(2025, time.January, 12), 999, "income ignored")

	w, err := e.Weekdays()
	if err != nil {
		t.Fatalf("weekdays: %v", err)
	}
	if len(w.Days) != 7 || w.Days[0].Day != time.Monday || w.Days[6].Day != time.Sunday {
		t.Fatalf("unexpected layout: %+v", w.Days)
	}
	if w.Days[0].Amount.String() != "300" {
		t.Errorf("monday total = %s, want 300", w.Days[0].Amount)
	}
	if w.Days[5].Amount.String() != "50" {
		t.Errorf("saturday total = %s, want 50", w.Days[5].Amount)
	}
	if !w.Days[6].Amount.IsZero() {
		t.Errorf("sunday total = %s, want 0", w.Days[6].Amount)
	}
}

func TestTrendIsChronological(t *testing.T) {
	l, e := newTestEngine(t, 0)
	add(l, e, core.NewDate(2025, time.January, 10), -300, "b")
	add(l, e, core.NewDate(2024, time.November, 1), -100, "a")
	add(l, e, core.NewDate(2025, time.January, 20), -200, "b2")

	tr, err := e.Trend()
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(tr.Points) != 2 {
		t.Fatalf("points = %+v, want 2", tr.Points)
	}
	if tr.Points[0].Year != 2024 || tr.Points[0].MonthOf != time.November || tr.Points[0].Amount.String() != "100" {
		t.Errorf("first point = %+v", tr.Points[0])
	}
	if tr.Points[1].Year != 2025 || tr.Points[1].MonthOf != time.January || tr.Points[1].Amount.String() != "500" {
		t.Errorf("second point = %+v", tr.Points[1])
	}
}

func TestBarLength(t *testing.T) {
	cases := []struct {
		amount, max int64
		want        int
	}{
		{100, 100, 20},
		{50, 100, 10},
		{1, 100, 0},   // rounds down
		{3, 100, 1},   // 0.6 rounds up
		{0, 100, 0},
		{100, 0, 0}, // zero max yields zero, never a division
	}
	for _, tc := range cases {
		got := BarLength(decimal.NewFromInt(tc.amount), decimal.NewFromInt(tc.max))
		if got != tc.want {
			t.Errorf("BarLength(%d, %d) = %d, want %d", tc.amount, tc.max, got, tc.want)
		}
	}
}
