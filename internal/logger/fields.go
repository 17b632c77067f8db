package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Context level fields, propagated through the call chain.
const (
	// FieldRunID identifies one worker iteration (UUID)
	FieldRunID = "run_id"

	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	FieldPlatform  = "platform"
	FieldChannel   = "channel"
	FieldVideoID   = "video_id"
	FieldStage     = "stage"
	FieldComponent = "component"
	FieldMode      = "mode"
)

// Entry level metric fields, used for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
