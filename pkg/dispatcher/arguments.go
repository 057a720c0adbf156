package dispatcher

import (
	"encoding/json"
	"fmt"
)

// Arguments is the argument bag of a command. Accessors never coerce types:
// a string "10" is not a number and a number is not a string.
type Arguments map[string]interface{}

// ArgError describes a missing or wrongly typed argument.
type ArgError struct {
	Key      string
	Expected string
	Got      string
}

func (e *ArgError) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("argument %q is required", e.Key)
	}
	return fmt.Sprintf("argument %q must be a %s, got %s", e.Key, e.Expected, e.Got)
}

// Missing reports whether the argument was absent rather than mistyped.
func (e *ArgError) Missing() bool {
	return e.Got == ""
}

// Has reports whether key is present with a non-nil value.
func (a Arguments) Has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

// String returns a string argument.
func (a Arguments) String(key string) (string, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", &ArgError{Key: key, Expected: "string"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ArgError{Key: key, Expected: "string", Got: typeName(v)}
	}
	return s, nil
}

// OptionalString returns a string argument, or "" when it is absent.
func (a Arguments) OptionalString(key string) (string, error) {
	if !a.Has(key) {
		return "", nil
	}
	return a.String(key)
}

// Number returns a numeric argument as float64.
func (a Arguments) Number(key string) (float64, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, &ArgError{Key: key, Expected: "number"}
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, &ArgError{Key: key, Expected: "number", Got: "malformed number"}
		}
		return f, nil
	default:
		return 0, &ArgError{Key: key, Expected: "number", Got: typeName(v)}
	}
}

// Bool returns a boolean argument.
func (a Arguments) Bool(key string) (bool, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return false, &ArgError{Key: key, Expected: "boolean"}
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ArgError{Key: key, Expected: "boolean", Got: typeName(v)}
	}
	return b, nil
}

// Map returns a nested mapping argument.
func (a Arguments) Map(key string) (Arguments, error) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, &ArgError{Key: key, Expected: "mapping"}
	}
	m, ok := asStringMap(v)
	if !ok {
		return nil, &ArgError{Key: key, Expected: "mapping", Got: typeName(v)}
	}
	return m, nil
}

// asStringMap accepts the mapping shapes produced by the JSON and CBOR codecs.
func asStringMap(v interface{}) (Arguments, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return Arguments(m), true
	case Arguments:
		return m, true
	case map[interface{}]interface{}:
		out := make(Arguments, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float32, float64, int, int32, int64, uint32, uint64, json.Number:
		return "number"
	case map[string]interface{}, map[interface{}]interface{}, Arguments:
		return "mapping"
	case []interface{}:
		return "list"
	default:
		return fmt.Sprintf("%T", v)
	}
}
