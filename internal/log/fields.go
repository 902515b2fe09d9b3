package log

import "time"

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldErrorType  = "error_type"

	FieldDraftID       = "draft_id"
	FieldItemID        = "item_id"
	FieldCategory      = "category"
	FieldRevision      = "revision"
	FieldJurisdiction  = "jurisdiction"
	FieldFallback      = "fallback_rate"
	FieldDurationHours = "duration_hours"
	FieldSegments      = "segments"
	FieldAllowance     = "allowance"
	FieldFormulaTotal  = "formula_total"
	FieldReportTotal   = "report_total"
	FieldCurrency      = "currency"
	FieldAmount        = "amount"
	FieldRate          = "exchange_rate"
	FieldExportFormat  = "export_format"
	FieldExportRef     = "export_ref"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentPerDiem    = "perdiem"
	ComponentReport     = "report"
	ComponentConversion = "conversion"
	ComponentCurrency   = "currency"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentSheets     = "sheets"
	ComponentExport     = "export"
	ComponentCache      = "cache"
	ComponentAuth       = "auth"
	ComponentRateLimit  = "rate_limit"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpCalculate = "calculate"
	OpConvert   = "convert"
	OpExport    = "export"
	OpLogin     = "login"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeAuth          = "auth_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message; nil errors are skipped
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithErrorType tags the entry with one of the ErrorType categories
func (f LogFields) WithErrorType(errorType string) LogFields {
	f[FieldErrorType] = errorType
	return f
}

// WithItem identifies a line item inside a draft
func (f LogFields) WithItem(draftID, category, itemID string, revision int64) LogFields {
	f[FieldDraftID] = draftID
	f[FieldCategory] = category
	f[FieldItemID] = itemID
	f[FieldRevision] = revision
	return f
}

// WithAllowance adds per-diem result fields
func (f LogFields) WithAllowance(jurisdiction string, fallback bool, hours float64, segments int, total, formula float64) LogFields {
	f[FieldJurisdiction] = jurisdiction
	f[FieldFallback] = fallback
	f[FieldDurationHours] = hours
	f[FieldSegments] = segments
	f[FieldAllowance] = total
	f[FieldFormulaTotal] = formula
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, elapsed time.Duration) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = elapsed.Milliseconds()
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
