// json.go — JSON output formatter.
package output

import "encoding/json"

// JSONFormatter produces JSON output.
type JSONFormatter struct{}

// Format writes a JSON representation of the result. Diagnostics, tokens,
// and failures keep their own typed arrays rather than being flattened
// into the generic data object, so a consumer can rely on
// diagnostics[].range/severity being present without guessing at shape.
func (f *JSONFormatter) Format(w Writer, result *Result) error {
	out := map[string]any{
		"success":   result.Success,
		"operation": result.Operation,
		"target":    result.Target,
	}

	if result.Error != "" {
		out["error"] = result.Error
	}
	if result.Diagnostics != nil {
		out["diagnostics"] = result.Diagnostics
	}
	if result.Tokens != nil {
		out["tokens"] = result.Tokens
	}
	if result.Failures != nil {
		out["failures"] = result.Failures
	}

	for k, v := range result.Data {
		out[k] = v
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
