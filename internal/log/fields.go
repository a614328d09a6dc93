package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldOperation   = "operation"
	FieldError       = "error"
	FieldAccountID   = "account_id"
	FieldRecurringID = "recurring_id"
	FieldDescription = "description"
	FieldAmountCents = "amount_cents"
	FieldDate        = "date"
	FieldFrom        = "from"
	FieldTo          = "to"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldPosted      = "posted"
	FieldRuleCount   = "rule_count"
	FieldDuration    = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentStorage = "storage"
	ComponentWorker  = "worker"
	ComponentLedger  = "ledger"
	ComponentMenu    = "menu"
	ComponentCache   = "cache"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpPost     = "post"
	OpProject  = "project"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
