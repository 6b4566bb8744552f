package qdrant

import (
	"fmt"
	"sort"
)

// translateFilterMap converts a caller filter into Qdrant must-conditions.
// Supported shapes per key: a scalar (equality) or {"$in": [...]}.
// Anything else is rejected rather than silently widened.
func translateFilterMap(filter map[string]any) ([]any, error) {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(keys))
	for _, key := range keys {
		value := filter[key]
		switch typed := value.(type) {
		case map[string]any:
			cond, err := translateOperatorCondition(key, typed)
			if err != nil {
				return nil, err
			}
			out = append(out, cond)
		case []any:
			out = append(out, matchAnyCondition(key, typed))
		case string, bool, int, int32, int64, float32, float64:
			out = append(out, matchCondition(key, typed))
		default:
			return nil, opErr(
				"query",
				OperationErrorUnsupportedFilter,
				fmt.Sprintf("filter key %q has unsupported value type %T", key, value),
				nil,
			)
		}
	}
	return out, nil
}

func translateOperatorCondition(key string, operators map[string]any) (any, error) {
	if len(operators) != 1 {
		return nil, opErr(
			"query",
			OperationErrorUnsupportedFilter,
			fmt.Sprintf("filter key %q must use exactly one operator", key),
			nil,
		)
	}
	for op, operand := range operators {
		switch op {
		case "$eq":
			return matchCondition(key, operand), nil
		case "$in":
			values, ok := operand.([]any)
			if !ok {
				return nil, opErr(
					"query",
					OperationErrorUnsupportedFilter,
					fmt.Sprintf("filter key %q operator $in requires a list operand", key),
					nil,
				)
			}
			return matchAnyCondition(key, values), nil
		default:
			return nil, opErr(
				"query",
				OperationErrorUnsupportedFilter,
				fmt.Sprintf("filter key %q uses unsupported operator %q", key, op),
				nil,
			)
		}
	}
	return nil, opErr("query", OperationErrorUnsupportedFilter, "empty operator map", nil)
}

func matchCondition(key string, value any) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}

func matchAnyCondition(key string, values []any) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"any": values},
	}
}
