package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldPath        = "path"
	FieldBackend     = "backend"
	FieldPeriod      = "period"
	FieldIndex       = "index"
	FieldCategory    = "category"
	FieldNote        = "note"
	FieldAmount      = "amount"
	FieldDate        = "date"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldRows        = "rows"
	FieldRules       = "rules"
	FieldBudget      = "budget"
	FieldBudgetUsage = "budget_usage"
	FieldMonthsAhead = "months_ahead"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentLedger   = "ledger"
	ComponentClassify = "classify"
	ComponentReport   = "report"
	ComponentForecast = "forecast"
	ComponentStorage  = "storage"
	ComponentCSV      = "csv"
	ComponentCLI      = "cli"
)
