package logging

// Field names shared by every component so log lines can be filtered consistently.
const (
	FieldChatID    = "chat_id"
	FieldTrip      = "trip"
	FieldCommand   = "command"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldCurrency  = "currency"
	FieldCount     = "count"
	FieldDuration  = "duration_ms"
	FieldOperation = "operation"
	FieldSheetID   = "sheet_id"
	FieldPath      = "path"
	FieldDriver    = "driver"
	FieldAddr      = "addr"
)
