// ABOUTME: Merges declared schema defaults into tool call arguments
// ABOUTME: Also holds the typed accessors handlers use to read arguments

package tools

import (
	"encoding/json"
	"fmt"
)

// ApplyDefaults returns a copy of args with the declared defaults of name filled in
// for every optional property that is absent or null. A property that declares a
// default also takes it when supplied as "" or 0, so {"color": ""} means yellow.
// No other validation happens.
func (r *Registry) ApplyDefaults(name Name, args map[string]any) (map[string]any, error) {
	rs, ok := r.resolved[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	props := r.schemas[name].Properties

	merged := make(map[string]any, len(args))
	for k, v := range args {
		if v == nil {
			continue
		}
		if p, ok := props[k]; ok && p.Default != nil && isBlank(v) {
			continue
		}
		merged[k] = v
	}

	if err := rs.ApplyDefaults(&merged); err != nil {
		return nil, fmt.Errorf("applying defaults for %s: %w", name, err)
	}
	return merged, nil
}

// isBlank reports whether v is an empty string or a numeric zero.
func isBlank(v any) bool {
	switch v := v.(type) {
	case string:
		return v == ""
	case float64:
		return v == 0
	case float32:
		return v == 0
	case int:
		return v == 0
	case int64:
		return v == 0
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 0
	default:
		return false
	}
}

// stringArg reads an optional string argument; absent means "".
func stringArg(args map[string]any, key string) (string, error) {
	switch v := args[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("argument %q must be a string", key)
	}
}

// numberArg reads a numeric argument. Defaults have already been merged, so an
// absent value is zero.
func numberArg(args map[string]any, key string) (float64, error) {
	switch v := args[key].(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("argument %q must be a number: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("argument %q must be a number", key)
	}
}

// stringListArg reads a list of names. Anything other than an array is ignored.
func stringListArg(args map[string]any, key string) []string {
	var out []string
	switch v := args[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(item))
			}
		}
	case []string:
		out = append(out, v...)
	}
	return out
}
