package log

// Common field names for structured logging.
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldRecordID     = "record_id"
	FieldAmountCents  = "amount_cents"
	FieldAuthor       = "author"
	FieldMonth        = "month"
	FieldRawAmount    = "raw_amount"
	FieldRawTimestamp = "raw_timestamp"
	FieldRecordCount  = "record_count"
	FieldGroupCount   = "group_count"
	FieldFingerprint  = "fingerprint"
	FieldErrorKind    = "error_kind"
)

// Components defines standard component names.
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentController = "controller"
	ComponentIngest     = "ingest"
	ComponentStore      = "store"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentMirror     = "mirror"
	ComponentIdentity   = "identity"
)

// Operations defines standard operation names.
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpSnapshot = "snapshot"
	OpMirror   = "mirror"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
