package log

import "log/slog"

// Attribute keys shared by every component.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldReferer     = "referer"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldPayableID   = "payable_id"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldDueDate     = "due_date"
	FieldGroup       = "group"
	FieldSubgroup    = "subgroup"
	FieldCode        = "code"
	FieldCount       = "count"
	FieldChangeID    = "change_id"
	FieldChangeKind  = "change_kind"
)

// Values of FieldComponent.
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentSession    = "session"
	ComponentTaxonomy   = "taxonomy"
	ComponentRecurrence = "recurrence"
	ComponentWorker     = "worker"
	ComponentAuth       = "auth"
	ComponentTrace      = "trace"
	ComponentBackend    = "backend"
)

// Values of FieldOperation.
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpPay      = "pay"
	OpImport   = "import"
	OpExport   = "export"
	OpValidate = "validate"
	OpPersist  = "persist"
)

// Fields collects attributes in the order they are added, so a record reads
// the same way every time.
type Fields []slog.Attr

func NewFields() Fields {
	return make(Fields, 0, 8)
}

func (f Fields) With(key string, value any) Fields {
	return append(f, slog.Any(key, value))
}

func (f Fields) WithClientIP(ip string) Fields {
	return append(f, slog.String(FieldClientIP, ip))
}

// WithError is a no-op for a nil err.
func (f Fields) WithError(err error) Fields {
	if err == nil {
		return f
	}
	return append(f, slog.String(FieldError, err.Error()))
}

func (f Fields) WithOperation(op string) Fields {
	return append(f, slog.String(FieldOperation, op))
}

func (f Fields) WithPayable(id int64, desc string, amount float64, dueDate string) Fields {
	return append(f,
		slog.Int64(FieldPayableID, id),
		slog.String(FieldDescription, desc),
		slog.Float64(FieldAmount, amount),
		slog.String(FieldDueDate, dueDate))
}

// WithClassification skips the levels that are blank.
func (f Fields) WithClassification(group, subgroup, code string) Fields {
	for _, kv := range [][2]string{{FieldGroup, group}, {FieldSubgroup, subgroup}, {FieldCode, code}} {
		if kv[1] != "" {
			f = append(f, slog.String(kv[0], kv[1]))
		}
	}
	return f
}

// WithHTTPRequest records method and path always; query, user agent and
// referer only when present.
func (f Fields) WithHTTPRequest(method, path, query, userAgent, referer string) Fields {
	f = append(f, slog.String(FieldMethod, method), slog.String(FieldPath, path))
	for _, kv := range [][2]string{{FieldQuery, query}, {FieldUserAgent, userAgent}, {FieldReferer, referer}} {
		if kv[1] != "" {
			f = append(f, slog.String(kv[0], kv[1]))
		}
	}
	return f
}

func (f Fields) WithHTTPResponse(statusCode int, durationMs int64) Fields {
	return append(f, slog.Int(FieldStatusCode, statusCode), slog.Int64(FieldDuration, durationMs))
}

// Args adapts the fields to the variadic arguments of slog's methods.
func (f Fields) Args() []any {
	args := make([]any, len(f))
	for i, a := range f {
		args[i] = a
	}
	return args
}
