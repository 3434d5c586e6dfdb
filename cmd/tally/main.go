package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"tally/internal/backend"
	"tally/internal/cli"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/report"
	"tally/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("TALLY_LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	ctx := context.Background()
	store, err := backend.NewFactory(logger).CreateStore(cfg)
	if err != nil {
		logger.Error("Failed to initialize storage backend", log.FieldError, err)
		os.Exit(1)
	}

	svc, err := services.New(ctx, store, logger)
	if err != nil {
		logger.Error("Failed to load ledger", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := svc.Close(ctx); err != nil {
			logger.Error("Failed to close ledger", log.FieldError, err)
		}
	}()

	if cfg.RulesFile != "" {
		added, err := svc.LoadRules(ctx, cfg.RulesFile)
		if err != nil {
			logger.Error("Failed to load rules file", log.FieldPath, cfg.RulesFile, log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Loaded rules file", log.FieldPath, cfg.RulesFile, log.FieldRules, added)
	}

	fmt.Println("tally: type 'help' for commands")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		cmd, args := fields[0], fields[1:]
		if cmd == "quit" || cmd == "exit" {
			return
		}
		if err := run(ctx, svc, cmd, args); err != nil {
			color.Red("error: %v", err)
		}
	}
}

func run(ctx context.Context, svc *services.LedgerService, cmd string, args []string) error {
	switch cmd {
	case "help":
		printHelp()
		return nil
	case "add":
		return cmdAdd(ctx, svc, args)
	case "list":
		printTransactions(svc.Transactions())
		return nil
	case "edit":
		return cmdEdit(ctx, svc, args)
	case "del":
		return cmdDelete(ctx, svc, args)
	case "search":
		if len(args) == 0 {
			return errors.New("usage: search <term>")
		}
		printTransactions(svc.Search(strings.Join(args, " ")))
		return nil
	case "report":
		return cmdReport(svc, args)
	case "forecast":
		return cmdForecast(svc, args)
	case "budget":
		return cmdBudget(ctx, svc, args)
	case "rule":
		if len(args) != 2 {
			return errors.New("usage: rule <pattern> <category>")
		}
		return svc.AddRule(ctx, args[0], args[1])
	case "rules":
		for _, r := range svc.Rules() {
			fmt.Printf("  %-30s -> %s\n", r.Pattern, r.Category)
		}
		return nil
	case "import":
		if len(args) != 1 {
			return errors.New("usage: import <path>")
		}
		n, err := svc.ImportCSV(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("imported %d transactions\n", n)
		return nil
	case "export":
		if len(args) != 1 {
			return errors.New("usage: export <path>")
		}
		return svc.ExportCSV(ctx, args[0])
	default:
		return fmt.Errorf("unknown command %q, type 'help'", cmd)
	}
}

func printHelp() {
	fmt.Print(`commands:
  add <date> <amount> <note...> [@category] [#tag...]   record a transaction
  list                                                  show all transactions
  edit <index> <date> <amount> <note...>                replace a transaction
  del <index>                                           remove a transaction
  search <term>                                         match note or category
  report [month|year|all|weekdays|trend]                aggregated views
  forecast [months]                                     project future expenses
  budget [amount]                                       show or set monthly budget
  rule <pattern> <category>                             add a classification rule
  rules                                                 list rules
  import <path> / export <path>                         CSV exchange
  quit
`)
}

// parseTransaction reads "<date> <amount> <note...>" with optional
// @category and #tag tokens mixed into the note.
func parseTransaction(args []string) (core.Transaction, error) {
	if len(args) < 3 {
		return core.Transaction{}, errors.New("usage: add <date> <amount> <note...>")
	}
	date, err := core.ParseDate(args[0])
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(args[1])
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{Date: date, Amount: amount}
	var note []string
	for _, tok := range args[2:] {
		switch {
		case strings.HasPrefix(tok, "@") && len(tok) > 1:
			tx.Category = tok[1:]
		case strings.HasPrefix(tok, "#") && len(tok) > 1:
			tx.Tags = append(tx.Tags, tok[1:])
		default:
			note = append(note, tok)
		}
	}
	tx.Note = strings.Join(note, " ")
	return tx, nil
}

func cmdAdd(ctx context.Context, svc *services.LedgerService, args []string) error {
	tx, err := parseTransaction(args)
	if err != nil {
		return err
	}
	stored, alert, err := svc.Add(ctx, tx)
	if err != nil {
		return err
	}
	fmt.Printf("added %s %s (%s)\n", stored.Date, stored.Amount, stored.Category)
	if alert != nil {
		warn := color.New(color.FgYellow)
		if alert.Exceeded {
			warn = color.New(color.FgRed, color.Bold)
		}
		warn.Printf("budget %s %.0f%% used (%s of %s)\n",
			alert.MonthOf, alert.Usage*100, alert.Spent, alert.Budget)
	}
	return nil
}

func cmdEdit(ctx context.Context, svc *services.LedgerService, args []string) error {
	if len(args) < 4 {
		return errors.New("usage: edit <index> <date> <amount> <note...>")
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad index %q", args[0])
	}
	tx, err := parseTransaction(args[1:])
	if err != nil {
		return err
	}
	return svc.Edit(ctx, index, tx)
}

func cmdDelete(ctx context.Context, svc *services.LedgerService, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: del <index>")
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad index %q", args[0])
	}
	removed, err := svc.Delete(ctx, index)
	if err != nil {
		return err
	}
	fmt.Printf("removed %s %s (%s)\n", removed.Date, removed.Amount, removed.Category)
	return nil
}

func cmdBudget(ctx context.Context, svc *services.LedgerService, args []string) error {
	if len(args) == 0 {
		b := svc.Budget()
		if b.Sign() <= 0 {
			fmt.Println("no budget set")
		} else {
			fmt.Printf("monthly budget: %s\n", b)
		}
		return nil
	}
	amount, err := decimal.NewFromString(args[0])
	if err != nil {
		return fmt.Errorf("bad amount %q", args[0])
	}
	return svc.SetBudget(ctx, amount)
}

func cmdForecast(svc *services.LedgerService, args []string) error {
	months := 3
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("bad month count %q", args[0])
		}
		months = n
	}
	points, err := svc.Forecast(months)
	if err != nil {
		return err
	}
	for _, p := range points {
		fmt.Printf("  %d %-10s %12s\n", p.Year, p.MonthOf, p.Amount.StringFixed(2))
	}
	return nil
}

func cmdReport(svc *services.LedgerService, args []string) error {
	period := report.KeyMonth
	if len(args) > 0 {
		period = args[0]
	}
	switch period {
	case "weekdays":
		w, err := svc.Weekdays()
		if err != nil {
			return err
		}
		printWeekdays(w)
		return nil
	case "trend":
		tr, err := svc.Trend()
		if err != nil {
			return err
		}
		printTrend(tr)
		return nil
	}
	r, err := svc.Report(period)
	if err != nil {
		return err
	}
	switch v := r.(type) {
	case report.Month:
		printMonth(v)
	case report.Year:
		printYear(v)
	case report.AllTime:
		printAllTime(v)
	}
	return nil
}

func printTransactions(txs []core.Transaction) {
	if len(txs) == 0 {
		fmt.Println("no transactions")
		return
	}
	for i, tx := range txs {
		line := fmt.Sprintf("%4d  %s  %12s  %-16s %s", i, tx.Date, tx.Amount.StringFixed(2), tx.Category, tx.Note)
		if len(tx.Tags) > 0 {
			line += "  #" + strings.Join(tx.Tags, " #")
		}
		if tx.IsIncome() {
			color.Green("%s", line)
		} else {
			fmt.Println(line)
		}
	}
}

// maxCategory finds the largest magnitude so bars scale to the widest row.
func maxCategory(cats []report.CategoryAmount) decimal.Decimal {
	max := decimal.Zero
	for _, c := range cats {
		if c.Amount.GreaterThan(max) {
			max = c.Amount
		}
	}
	return max
}

func printCategories(cats []report.CategoryAmount) {
	max := maxCategory(cats)
	for _, c := range cats {
		bar := strings.Repeat("█", report.BarLength(c.Amount, max))
		fmt.Printf("  %-16s %12s  %s\n", c.Name, c.Amount.StringFixed(2), bar)
	}
}

func printTotals(income, expenses, balance decimal.Decimal) {
	color.Green("  income    %12s", income.StringFixed(2))
	color.Red("  expenses  %12s", expenses.StringFixed(2))
	fmt.Printf("  balance   %12s\n", balance.StringFixed(2))
}

func printMonth(m report.Month) {
	color.New(color.Bold).Printf("%s %d\n", m.MonthOf, m.Year)
	printTotals(m.Income, m.Expenses, m.Balance)
	if m.BudgetUsage > 0 {
		usage := color.New(color.FgYellow)
		if m.OverBudget {
			usage = color.New(color.FgRed, color.Bold)
		}
		usage.Printf("  budget    %11.0f%%\n", m.BudgetUsage*100)
	}
	printCategories(m.Categories)
}

func printYear(y report.Year) {
	color.New(color.Bold).Printf("%d\n", y.Year)
	for _, row := range y.Months {
		fmt.Printf("  %-10s %12s %12s %12s\n",
			row.MonthOf, row.Income.StringFixed(2), row.Expenses.StringFixed(2), row.Balance.StringFixed(2))
	}
	printTotals(y.Income, y.Expenses, y.Balance)
}

func printAllTime(a report.AllTime) {
	color.New(color.Bold).Printf("all time: %d transactions, %s to %s\n", a.Count, a.First, a.Last)
	printTotals(a.Income, a.Expenses, a.Balance)
	fmt.Printf("  avg monthly income  %12s\n", a.AvgMonthlyIncome.StringFixed(2))
	fmt.Printf("  avg monthly expense %12s\n", a.AvgMonthlyExpense.StringFixed(2))
	if len(a.TopCategories) > 0 {
		fmt.Println("top categories:")
		printCategories(a.TopCategories)
	}
}

func printWeekdays(w report.Weekdays) {
	var max decimal.Decimal
	for _, d := range w.Days {
		if d.Amount.GreaterThan(max) {
			max = d.Amount
		}
	}
	for _, d := range w.Days {
		bar := strings.Repeat("█", report.BarLength(d.Amount, max))
		fmt.Printf("  %-10s %12s  %s\n", d.Day, d.Amount.StringFixed(2), bar)
	}
}

func printTrend(tr report.Trend) {
	var max decimal.Decimal
	for _, p := range tr.Points {
		if p.Amount.GreaterThan(max) {
			max = p.Amount
		}
	}
	for _, p := range tr.Points {
		bar := strings.Repeat("█", report.BarLength(p.Amount, max))
		fmt.Printf("  %d %-10s %12s  %s\n", p.Year, p.MonthOf, p.Amount.StringFixed(2), bar)
	}
}
