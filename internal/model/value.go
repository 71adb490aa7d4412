package model

import (
	"encoding/json"
	"fmt"
	"strconv"

	"configtree/internal/validators"
)

// Value is a default or assigned value as it appears in a document: nil, a
// string, a bool, a json.Number, or a number set programmatically.
type Value = any

// ValueText renders v as the raw text the type rules are checked against.
// Numbers decoded from documents keep their literal spelling, so "1.0" stays
// a Float and "1" stays an Integer.
func ValueText(v Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Conforms reports whether v is acceptable for an item of type t.
func Conforms(v Value, t ItemType) bool {
	return validators.ConformsToType(ValueText(v), validators.Type(t))
}

// Coerce converts a conforming value to its typed Go form: string, bool,
// int64 or float64.
func Coerce(v Value, t ItemType) (any, error) {
	raw := ValueText(v)
	if !validators.ConformsToType(raw, validators.Type(t)) {
		return nil, fmt.Errorf("value %q is not a %s", raw, t)
	}
	switch t {
	case TypeBoolean:
		return raw == "true" || raw == "1", nil
	case TypeInteger:
		return validators.ParseInteger(raw)
	case TypeFloat:
		return validators.ParseFloat(raw)
	default:
		return raw, nil
	}
}

func cloneValue(v Value) Value {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
