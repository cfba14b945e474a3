package logging

// Standardized field names for structured logging.
const (
	FieldUser      = "user"
	FieldIdentity  = "identity"
	FieldCategory  = "category"
	FieldState     = "state"
	FieldOperation = "operation"
	FieldCount     = "count"
	FieldAdded     = "added"
	FieldPending   = "pending"
	FieldRemaining = "remaining"
	FieldStrategy  = "strategy"
	FieldRule      = "rule"
	FieldTarget    = "target"
	FieldFile      = "file_path"
	FieldLine      = "line"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
)
