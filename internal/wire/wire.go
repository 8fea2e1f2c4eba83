// Package wire defines the NDJSON envelope types exchanged with the
// analyzer subprocess (spec §3, §6) and the canonicalization used to
// fingerprint requests for in-flight deduplication (spec §3 "In-Flight
// Deduplication Entry", Testable Property P3).
package wire

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Request is one line written to the analyzer's stdin.
type Request struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// Error is the JSON-RPC-style error object carried by a failed Response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is one line read from the analyzer's stdout.
//
// Exactly one of Result or Error is populated on a well-formed response.
// Failures is only present for "analyze"-style partial-success responses
// (spec §3, §6); its presence — not the method name — is what the
// multiplexer uses to recognize that shape (spec §4.5 step 6).
type Response struct {
	ID       any             `json:"id"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    *Error          `json:"error,omitempty"`
	Perf     json.RawMessage `json:"_perf,omitempty"`
	Failures json.RawMessage `json:"failures,omitempty"`
}

// IsAnalyzeStyle reports whether the response carries the "failures" field
// that marks analyze-style partial success (spec §4.5 step 6).
func (r *Response) IsAnalyzeStyle() bool { return len(r.Failures) > 0 }

// NumericID extracts the response's ID as an int64, tolerating both the
// float64 JSON numbers the encoding/json decoder produces by default and
// already-typed integers. It returns ok=false for IDs that are not numeric
// (the bridge issues only numeric IDs, so a non-numeric ID on a response
// never has a matching pending entry and is dropped per spec §4.5's
// "tie-breaks" rule).
func NumericID(id any) (int64, bool) {
	switch v := id.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

// Fingerprint computes the deduplication key for a (method, params) pair:
// the method name concatenated with a canonical JSON serialization of the
// parameters (spec §3 "In-Flight Deduplication Entry").
//
// Canonicalization re-marshals through a sorted-map round trip so that
// callers who build params in different key orders, or with different
// insignificant whitespace, still collide on the same fingerprint.
func Fingerprint(method string, params json.RawMessage) (string, error) {
	canon, err := Canonicalize(params)
	if err != nil {
		return "", err
	}
	return method + "\x00" + canon, nil
}

// Canonicalize reduces a JSON value to a deterministic byte-for-byte form:
// object keys sorted, whitespace stripped. Used both for fingerprinting and
// for tests that assert two differently-ordered param payloads dedup to the
// same in-flight request.
func Canonicalize(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "null", nil
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := encodeCanonical(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func encodeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}
