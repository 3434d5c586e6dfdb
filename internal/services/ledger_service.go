// Package services wires the engine together. LedgerService is the single
// context object holding the ledger, classifier, report cache and store; it
// is constructed once after load and discarded after the final persist.
//
// Every mutation follows the same sequence: apply to the ledger (or rule
// set), mark the report cache dirty, persist the full snapshot. A failed
// persist is reported but the in-memory state stays authoritative for the
// session.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/classify"
	"tally/internal/core"
	"tally/internal/csvio"
	"tally/internal/forecast"
	"tally/internal/ledger"
	"tally/internal/log"
	"tally/internal/report"
	"tally/internal/storage"
)

// budgetWarnThreshold is the usage fraction above which adds emit a
// near-limit warning.
const budgetWarnThreshold = 0.9

// BudgetAlert reports that the current month's spending is near or over
// the configured budget.
type BudgetAlert struct {
	Year     int
	MonthOf  time.Month
	Usage    float64
	Spent    decimal.Decimal
	Budget   decimal.Decimal
	Exceeded bool
}

type LedgerService struct {
	ledger     *ledger.Ledger
	classifier *classify.Classifier
	reports    *report.Engine
	forecaster *forecast.Engine
	store      storage.Store
	budget     decimal.Decimal
	logger     *log.Logger
	now        func() time.Time
}

// New loads the snapshot from the store and assembles the engine around
// it. Default classification rules are seeded only when the loaded rule
// set is empty.
func New(ctx context.Context, store storage.Store, logger *log.Logger) (*LedgerService, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	classifier, ruleErrs := classify.FromRules(snap.Rules)
	for _, rerr := range ruleErrs {
		logger.WarnContext(ctx, "Skipping unusable classification rule", log.FieldError, rerr)
	}
	classifier.SeedDefaults()

	l := ledger.New(classifier)
	l.Replace(snap.Transactions)

	s := &LedgerService{
		ledger:     l,
		classifier: classifier,
		store:      store,
		budget:     snap.MonthlyBudget,
		logger:     logger,
		now:        time.Now,
	}
	s.reports = report.New(l, func() decimal.Decimal { return s.budget }, func() time.Time { return s.now() })
	s.forecaster = forecast.New(l, func() time.Time { return s.now() })

	logger.InfoContext(ctx, "Ledger loaded",
		log.FieldRows, l.Len(),
		log.FieldRules, classifier.Len(),
		log.FieldBudget, s.budget.String())
	return s, nil
}

// Add classifies, inserts and persists a transaction. The stored
// transaction (with its assigned category) is returned, plus a non-nil
// alert when the add pushes the current month past 90% of the budget.
func (s *LedgerService) Add(ctx context.Context, tx core.Transaction) (core.Transaction, *BudgetAlert, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, nil, err
	}
	stored := s.ledger.Add(tx)
	s.reports.MarkDirty()
	err := s.persist(ctx)

	alert := s.checkBudget()
	if alert != nil {
		s.logger.WarnContext(ctx, "Monthly budget nearly reached",
			log.FieldYear, alert.Year,
			log.FieldMonth, alert.MonthOf.String(),
			log.FieldBudgetUsage, fmt.Sprintf("%.0f%%", alert.Usage*100))
	}
	return stored, alert, err
}

// Edit replaces the transaction at index in place. Unlike Add it neither
// re-classifies nor re-sorts.
func (s *LedgerService) Edit(ctx context.Context, index int, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if err := s.ledger.Edit(index, tx); err != nil {
		return err
	}
	s.reports.MarkDirty()
	return s.persist(ctx)
}

// Delete removes the transaction at index and returns it for confirmation
// messaging.
func (s *LedgerService) Delete(ctx context.Context, index int) (core.Transaction, error) {
	removed, err := s.ledger.Delete(index)
	if err != nil {
		return core.Transaction{}, err
	}
	s.reports.MarkDirty()
	return removed, s.persist(ctx)
}

// Search returns matching transactions in date-ascending order.
func (s *LedgerService) Search(term string) []core.Transaction {
	return s.ledger.Search(term)
}

// Transactions returns the full ledger in date-ascending order.
func (s *LedgerService) Transactions() []core.Transaction {
	return s.ledger.All()
}

// AddRule adds or replaces a classification rule and invalidates reports.
func (s *LedgerService) AddRule(ctx context.Context, pattern, category string) error {
	if err := s.classifier.AddRule(pattern, category); err != nil {
		return err
	}
	s.reports.MarkDirty()
	return s.persist(ctx)
}

// Rules returns the classification rules in stored order.
func (s *LedgerService) Rules() []core.CategoryRule {
	return s.classifier.Rules()
}

// LoadRules seeds rules from a YAML file, skipping patterns already
// present, and persists the result.
func (s *LedgerService) LoadRules(ctx context.Context, path string) (int, error) {
	added, err := s.classifier.LoadFile(path)
	if err != nil {
		return added, err
	}
	if added == 0 {
		return 0, nil
	}
	s.reports.MarkDirty()
	return added, s.persist(ctx)
}

// SetBudget updates the monthly ceiling. Zero disables budget warnings.
func (s *LedgerService) SetBudget(ctx context.Context, budget decimal.Decimal) error {
	if budget.Sign() < 0 {
		return fmt.Errorf("%w: budget must not be negative", core.ErrInvalidAmount)
	}
	s.budget = budget
	s.reports.MarkDirty()
	return s.persist(ctx)
}

func (s *LedgerService) Budget() decimal.Decimal {
	return s.budget
}

// Report dispatches to the aggregation engine by period name.
func (s *LedgerService) Report(period string) (report.Report, error) {
	return s.reports.Report(period)
}

// Weekdays returns the day-of-week expense breakdown.
func (s *LedgerService) Weekdays() (report.Weekdays, error) {
	return s.reports.Weekdays()
}

// Trend returns the month-by-month expense series.
func (s *LedgerService) Trend() (report.Trend, error) {
	return s.reports.Trend()
}

// Forecast projects future monthly expenses.
func (s *LedgerService) Forecast(monthsAhead int) ([]forecast.Point, error) {
	return s.forecaster.Forecast(monthsAhead)
}

// ImportCSV parses the file and inserts all rows. A malformed row aborts
// the import with no partial insert. Returns the number of imported rows.
func (s *LedgerService) ImportCSV(ctx context.Context, path string) (int, error) {
	txs, err := csvio.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s.ledger.AddAll(txs)
	s.reports.MarkDirty()
	if err := s.persist(ctx); err != nil {
		return len(txs), err
	}
	if alert := s.checkBudget(); alert != nil {
		s.logger.WarnContext(ctx, "Monthly budget nearly reached after import",
			log.FieldBudgetUsage, fmt.Sprintf("%.0f%%", alert.Usage*100))
	}
	s.logger.InfoContext(ctx, "CSV import complete", log.FieldPath, path, log.FieldRows, len(txs))
	return len(txs), nil
}

// ExportCSV writes the whole ledger to path.
func (s *LedgerService) ExportCSV(ctx context.Context, path string) error {
	if err := csvio.WriteFile(path, s.ledger.All()); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "CSV export complete", log.FieldPath, path, log.FieldRows, s.ledger.Len())
	return nil
}

// Close performs the final persist and releases the store.
func (s *LedgerService) Close(ctx context.Context) error {
	err := s.persist(ctx)
	if cerr := s.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (s *LedgerService) persist(ctx context.Context) error {
	snap := core.Snapshot{
		Transactions:  s.ledger.All(),
		Rules:         s.classifier.Rules(),
		MonthlyBudget: s.budget,
	}
	if err := s.store.Save(ctx, snap); err != nil {
		// In-memory state stays authoritative for the session.
		s.logger.ErrorContext(ctx, "Persist failed, continuing with in-memory state",
			log.FieldError, err)
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}

func (s *LedgerService) checkBudget() *BudgetAlert {
	if s.budget.Sign() <= 0 {
		return nil
	}
	now := s.now()
	spent := s.ledger.MonthlyExpenses(now.Year(), now.Month())
	usage, _ := spent.Div(s.budget).Float64()
	if usage <= budgetWarnThreshold {
		return nil
	}
	return &BudgetAlert{
		Year:     now.Year(),
		MonthOf:  now.Month(),
		Usage:    usage,
		Spent:    spent,
		Budget:   s.budget,
		Exceeded: usage > 1.0,
	}
}
