package domain

// LogType tags a normalized record.
const (
	LogTypeError         = "error"
	LogTypeInformational = "informational"
)

// StructuredRecord is the output of normalization. Every field is always
// present in the JSON form; absent data is an explicit null, never an
// omitted key. The Error block is null for informational records.
type StructuredRecord struct {
	LogType           string            `json:"log_type"`
	Flow              FlowInfo          `json:"flow"`
	User              UserInfo          `json:"user"`
	TrackingVariables TrackingVariables `json:"tracking_variables"`
	Error             *ErrorDetail      `json:"error"`
}

type FlowInfo struct {
	Code        *string  `json:"code"`
	Version     *string  `json:"version"`
	Type        *float64 `json:"type"`
	TriggerType *string  `json:"trigger_type"`
	Operation   *string  `json:"operation"`
	Timestamp   *string  `json:"timestamp"`
}

type UserInfo struct {
	ID *string `json:"id"`
}

type TrackingVariable struct {
	Name  *string `json:"name"`
	Value *string `json:"value"`
}

type TrackingVariables struct {
	PrimaryKey TrackingVariable   `json:"primary_key"`
	Secondary  []TrackingVariable `json:"secondary"`
}

type ParsedMessage struct {
	HTTPStatus       *float64 `json:"http_status"`
	RootCause        *string  `json:"root_cause"`
	FailedURL        *string  `json:"failed_url"`
	ErrorDescription *string  `json:"error_description"`
}

type ErrorDetail struct {
	Code              *string       `json:"code"`
	State             *float64      `json:"state"`
	Summary           *string       `json:"summary"`
	MessageParsed     ParsedMessage `json:"message_parsed"`
	EndpointName      *string       `json:"endpoint_name"`
	EndpointType      *string       `json:"endpoint_type"`
	Operation         *string       `json:"operation"`
	Milestone         *string       `json:"milestone"`
	RetryCount        *float64      `json:"retry_count"`
	AutoRetriable     *bool         `json:"auto_retriable"`
	BusinessErrorName *string       `json:"business_error_name"`
}

// IsError reports whether the record carries an error block.
func (r *StructuredRecord) IsError() bool {
	return r != nil && r.LogType == LogTypeError && r.Error != nil
}

// Deref returns the string behind p, or "" for nil.
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// FlowCode returns the flow code or "".
func (r *StructuredRecord) FlowCode() string {
	if r == nil {
		return ""
	}
	return Deref(r.Flow.Code)
}

func (r *StructuredRecord) TriggerType() string {
	if r == nil {
		return ""
	}
	return Deref(r.Flow.TriggerType)
}

func (r *StructuredRecord) ErrorCode() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return Deref(r.Error.Code)
}

func (r *StructuredRecord) ErrorSummary() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return Deref(r.Error.Summary)
}

func (r *StructuredRecord) EndpointName() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return Deref(r.Error.EndpointName)
}

func (r *StructuredRecord) EndpointType() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return Deref(r.Error.EndpointType)
}

func (r *StructuredRecord) RootCause() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return Deref(r.Error.MessageParsed.RootCause)
}

func (r *StructuredRecord) ErrorDescription() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return Deref(r.Error.MessageParsed.ErrorDescription)
}
