// csv.go — CSV output formatter, for bulk batch-parse/tokenize results.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
)

// CSVFormatter produces CSV output.
type CSVFormatter struct{}

// Format writes a single result as CSV (header + one or more rows).
func (f *CSVFormatter) Format(w Writer, result *Result) error {
	return f.FormatMultiple(w, []*Result{result})
}

// FormatMultiple writes multiple results as CSV. Results carrying
// diagnostics or tokens get one row per diagnostic/token, with columns for
// severity and range or token index, rather than one opaque row per
// command invocation — that generic shape only fits operations with no
// structured per-item payload (version, health, resolve-stdlib).
func (f *CSVFormatter) FormatMultiple(w Writer, results []*Result) error {
	if len(results) == 0 {
		return nil
	}

	switch {
	case anyDiagnostics(results):
		return writeRows(w, diagnosticHeader, diagnosticRows(results))
	case anyTokens(results):
		return writeRows(w, tokenHeader, tokenRows(results))
	default:
		header := genericHeader(results)
		return writeRows(w, header, genericRows(results, header))
	}
}

var diagnosticHeader = []string{"target", "severity", "start_line", "start_character", "end_line", "end_character", "message"}

func anyDiagnostics(results []*Result) bool {
	for _, r := range results {
		if r.Diagnostics != nil {
			return true
		}
	}
	return false
}

// diagnosticRows renders one row per diagnostic (spec §3 "Diagnostic"); a
// result with an empty diagnostics array still gets a placeholder row so
// every target the caller asked about appears in the output.
func diagnosticRows(results []*Result) [][]string {
	var rows [][]string
	for _, r := range results {
		if len(r.Diagnostics) == 0 {
			rows = append(rows, []string{r.Target, "", "", "", "", "", diagnosticPlaceholder(r)})
			continue
		}
		for _, d := range r.Diagnostics {
			rows = append(rows, []string{
				r.Target,
				d.Severity,
				fmt.Sprintf("%d", d.Range[0].Line),
				fmt.Sprintf("%d", d.Range[0].Character),
				fmt.Sprintf("%d", d.Range[1].Line),
				fmt.Sprintf("%d", d.Range[1].Character),
				d.Message,
			})
		}
	}
	return rows
}

func diagnosticPlaceholder(r *Result) string {
	if r.Error != "" {
		return r.Error
	}
	return "no diagnostics"
}

var tokenHeader = []string{"target", "index", "token"}

func anyTokens(results []*Result) bool {
	for _, r := range results {
		if r.Tokens != nil {
			return true
		}
	}
	return false
}

func tokenRows(results []*Result) [][]string {
	var rows [][]string
	for _, r := range results {
		for i, tok := range r.Tokens {
			rows = append(rows, []string{r.Target, fmt.Sprintf("%d", i), tok})
		}
	}
	return rows
}

func genericHeader(results []*Result) []string {
	keySet := make(map[string]bool)
	for _, r := range results {
		for k := range r.Data {
			keySet[k] = true
		}
	}
	var dataKeys []string
	for k := range keySet {
		dataKeys = append(dataKeys, k)
	}
	sort.Strings(dataKeys)

	header := []string{"success", "operation", "target", "error"}
	return append(header, dataKeys...)
}

func genericRows(results []*Result, header []string) [][]string {
	dataKeys := header[4:]

	var rows [][]string
	for _, r := range results {
		row := []string{
			fmt.Sprintf("%t", r.Success),
			r.Operation,
			r.Target,
			r.Error,
		}
		for _, k := range dataKeys {
			val := ""
			if v, ok := r.Data[k]; ok {
				val = fmt.Sprintf("%v", v)
			}
			row = append(row, val)
		}
		rows = append(rows, row)
	}
	return rows
}

func writeRows(w Writer, header []string, rows [][]string) error {
	var sb strings.Builder
	cw := csv.NewWriter(&sb)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	_, err := io.WriteString(w.(io.Writer), sb.String())
	return err
}

// GetFormatter returns the formatter for the given format name, falling
// back to human-readable output for anything unrecognized.
func GetFormatter(format string) Formatter {
	switch format {
	case "json":
		return &JSONFormatter{}
	case "csv":
		return &CSVFormatter{}
	case "human":
		return &HumanFormatter{}
	default:
		return &HumanFormatter{}
	}
}
