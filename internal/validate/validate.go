// Package validate implements the bridge's response validator (spec §4.3,
// C3): structural assertions on fields of untrusted analyzer responses.
//
// Validators are opt-in per method (spec §4.3 "Application policy"): a
// typed C6 wrapper that cares about a field's shape passes a Func
// built from these primitives; methods that don't need it pass nil and
// the raw result is handed back unchecked.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arvidsson/pikebridge/internal/pikeerr"
)

// Func validates the decoded result of a response. method is threaded
// through so the returned error names the offending method (spec §4.3).
type Func func(method string, result json.RawMessage) error

// bounded renders v for the "actual" field of a BridgeResponseError,
// truncating so a huge payload never balloons an error message.
func bounded(raw json.RawMessage) string {
	const max = 120
	s := string(raw)
	if len(s) > max {
		return s[:max] + "...(truncated)"
	}
	return s
}

func decode(method, field string, raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, &pikeerr.BridgeResponseError{
			Method: method, Field: field, Expected: "valid JSON", Actual: bounded(raw),
		}
	}
	return v, nil
}

// field extracts result[path] from a decoded JSON object, given a dotted
// path such as "include_paths" or "outer.inner". The root value for path
// "" is result itself.
func field(root any, path string) (any, bool) {
	if path == "" {
		return root, true
	}
	cur := root
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Object asserts that result[path] is a JSON object.
func Object(path string) Func {
	return func(method string, raw json.RawMessage) error {
		root, err := decode(method, path, raw)
		if err != nil {
			return err
		}
		v, ok := field(root, path)
		if !ok {
			return &pikeerr.BridgeResponseError{Method: method, Field: path, Expected: "object", Actual: "missing"}
		}
		if _, ok := v.(map[string]any); !ok {
			return &pikeerr.BridgeResponseError{Method: method, Field: path, Expected: "object", Actual: describe(v)}
		}
		return nil
	}
}

// Array asserts that result[path] is a JSON array.
func Array(path string) Func {
	return func(method string, raw json.RawMessage) error {
		root, err := decode(method, path, raw)
		if err != nil {
			return err
		}
		v, ok := field(root, path)
		if !ok {
			return &pikeerr.BridgeResponseError{Method: method, Field: path, Expected: "array", Actual: "missing"}
		}
		if _, ok := v.([]any); !ok {
			return &pikeerr.BridgeResponseError{Method: method, Field: path, Expected: "array", Actual: describe(v)}
		}
		return nil
	}
}

// String asserts that result[path] is a JSON string.
func String(path string) Func {
	return func(method string, raw json.RawMessage) error {
		root, err := decode(method, path, raw)
		if err != nil {
			return err
		}
		v, ok := field(root, path)
		if !ok {
			return &pikeerr.BridgeResponseError{Method: method, Field: path, Expected: "string", Actual: "missing"}
		}
		if _, ok := v.(string); !ok {
			return &pikeerr.BridgeResponseError{Method: method, Field: path, Expected: "string", Actual: describe(v)}
		}
		return nil
	}
}

// Number asserts that result[path] is a JSON number.
func Number(path string) Func {
	return func(method string, raw json.RawMessage) error {
		root, err := decode(method, path, raw)
		if err != nil {
			return err
		}
		v, ok := field(root, path)
		if !ok {
			return &pikeerr.BridgeResponseError{Method: method, Field: path, Expected: "number", Actual: "missing"}
		}
		if _, ok := v.(float64); !ok {
			return &pikeerr.BridgeResponseError{Method: method, Field: path, Expected: "number", Actual: describe(v)}
		}
		return nil
	}
}

// Boolean asserts that result[path] is a JSON boolean. Per DESIGN.md's
// resolution of spec.md's Open Question on the `exists` wire
// representation, this also accepts the legacy 0|1 numeric encoding some
// analyzer responses use in place of true|false.
func Boolean(path string) Func {
	return func(method string, raw json.RawMessage) error {
		root, err := decode(method, path, raw)
		if err != nil {
			return err
		}
		v, ok := field(root, path)
		if !ok {
			return &pikeerr.BridgeResponseError{Method: method, Field: path, Expected: "boolean", Actual: "missing"}
		}
		switch n := v.(type) {
		case bool:
			return nil
		case float64:
			if n == 0 || n == 1 {
				return nil
			}
		}
		return &pikeerr.BridgeResponseError{Method: method, Field: path, Expected: "boolean", Actual: describe(v)}
	}
}

// StringArray asserts that result[path] is an array of strings. On the
// first non-string element it names the offending index in the error, as
// required by spec §4.3 "Assertion primitives".
func StringArray(path string) Func {
	return func(method string, raw json.RawMessage) error {
		root, err := decode(method, path, raw)
		if err != nil {
			return err
		}
		v, ok := field(root, path)
		if !ok {
			return &pikeerr.BridgeResponseError{Method: method, Field: path, Expected: "array of strings", Actual: "missing"}
		}
		arr, ok := v.([]any)
		if !ok {
			return &pikeerr.BridgeResponseError{Method: method, Field: path, Expected: "array of strings", Actual: describe(v)}
		}
		for i, item := range arr {
			if _, ok := item.(string); !ok {
				return &pikeerr.BridgeResponseError{
					Method:   method,
					Field:    fmt.Sprintf("%s[%d]", path, i),
					Expected: "string",
					Actual:   describe(item),
				}
			}
		}
		return nil
	}
}

// All composes multiple validators, running each in order and returning
// the first failure. Used when a single response carries several fields a
// C6 wrapper needs to trust simultaneously (e.g. get_pike_paths' two
// string arrays, spec §8 scenario 6).
func All(funcs ...Func) Func {
	return func(method string, raw json.RawMessage) error {
		for _, f := range funcs {
			if err := f(method, raw); err != nil {
				return err
			}
		}
		return nil
	}
}

func describe(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case float64:
		return fmt.Sprintf("number(%v)", val)
	case string:
		return fmt.Sprintf("string(%q)", bounded(json.RawMessage(val)))
	case bool:
		return fmt.Sprintf("boolean(%v)", val)
	case []any:
		return fmt.Sprintf("array(len=%d)", len(val))
	case map[string]any:
		return fmt.Sprintf("object(keys=%d)", len(val))
	default:
		return fmt.Sprintf("%T", val)
	}
}
