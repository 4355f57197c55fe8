package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldCommand       = "command"
	FieldChange        = "change"
	FieldEntityID      = "entity_id"
	FieldFound         = "found"
	FieldBackend       = "backend"
	FieldStorageKey    = "storage_key"
	FieldContacts      = "contacts"
	FieldExpenses      = "expenses"
	FieldRows          = "rows"
	FieldExchange      = "exchange"
	FieldQueue         = "queue"
	FieldAttempt       = "attempt"
	FieldSpreadsheetID = "spreadsheet_id"
	FieldSheet         = "sheet"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
	ComponentWatch   = "watch"
)

// Operations defines standard operation names
const (
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpExport   = "export"
	OpShutdown = "shutdown"
)
