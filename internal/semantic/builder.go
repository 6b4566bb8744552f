package semantic

import (
	"errors"
	"strings"

	"github.com/promptlyai/loglens/internal/domain"
)

// ErrEmptyProjection means no allowlisted field produced a non-empty value,
// so there is nothing safe to embed.
var ErrEmptyProjection = errors.New("semantic: no meaningful fields found in record")

// Context is the curated slice of a raw attribute map that is allowed to be
// embedded. Identifiers, timestamps and payload blobs never reach it.
type Context struct {
	FlowCode     string
	ActionName   string
	ErrorMessage string
	BusinessKey  string
}

// Alias tables: ordered canonical key names per semantic slot, resolved by
// first non-empty match.
var (
	flowAliases        = []string{"flow_code", "flow", "integration_name", "pipeline_name"}
	actionAliases      = []string{"action_name", "action", "step", "step_name", "operation"}
	errorAliases       = []string{"error_message", "error", "message", "fault_message", "exception"}
	businessKeyAliases = []string{
		"business_key", "business_id",
		"order_id", "customer_id", "transaction_id",
		"request_id", "correlation_id", "entity_id",
	}
)

// ExtractContext resolves the alias tables against a raw attribute map.
func ExtractContext(log map[string]any) Context {
	return Context{
		FlowCode:     resolveAlias(log, flowAliases),
		ActionName:   resolveAlias(log, actionAliases),
		ErrorMessage: resolveAlias(log, errorAliases),
		BusinessKey:  resolveAlias(log, businessKeyAliases),
	}
}

// BuildFromAttributes builds semantic text from a raw attribute map via the
// alias tables. Missing slots are omitted, never rendered as a placeholder.
func BuildFromAttributes(log map[string]any) (string, error) {
	return BuildFromContext(ExtractContext(log))
}

func BuildFromContext(ctx Context) (string, error) {
	parts := make([]string, 0, 4)
	if ctx.FlowCode != "" {
		parts = append(parts, "flow: "+ctx.FlowCode)
	}
	if ctx.ActionName != "" {
		parts = append(parts, "step: "+ctx.ActionName)
	}
	if ctx.ErrorMessage != "" {
		parts = append(parts, "error: "+ctx.ErrorMessage)
	}
	if ctx.BusinessKey != "" {
		parts = append(parts, "business_key: "+ctx.BusinessKey)
	}
	if len(parts) == 0 {
		return "", ErrEmptyProjection
	}
	return strings.Join(parts, "\n"), nil
}

// BuildFromStructured projects a normalized record down to the embedding
// allowlist: flow code, trigger type, error code, summary, endpoint
// name/type, root cause, error description. Order is fixed.
func BuildFromStructured(rec *domain.StructuredRecord) (string, error) {
	if rec == nil {
		return "", ErrEmptyProjection
	}
	fields := []string{
		rec.FlowCode(),
		rec.TriggerType(),
		rec.ErrorCode(),
		rec.ErrorSummary(),
		rec.EndpointName(),
		rec.EndpointType(),
		rec.RootCause(),
		rec.ErrorDescription(),
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			parts = append(parts, f)
		}
	}
	if len(parts) == 0 {
		return "", ErrEmptyProjection
	}
	return strings.Join(parts, " "), nil
}

// Passthrough accepts caller-supplied semantic text, trimming whitespace and
// rejecting empty input.
func Passthrough(raw string) (string, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return "", ErrEmptyProjection
	}
	return cleaned, nil
}

func resolveAlias(log map[string]any, aliases []string) string {
	for _, key := range aliases {
		value, ok := log[key]
		if !ok {
			continue
		}
		s, ok := value.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s != "" {
			return s
		}
	}
	return ""
}
