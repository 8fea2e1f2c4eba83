// human.go — human-readable output formatter.
package output

import (
	"fmt"
	"strings"

	"github.com/arvidsson/pikebridge/internal/bridge"
)

// HumanFormatter produces human-readable output.
type HumanFormatter struct{}

// Format writes a human-readable representation of the result.
func (h *HumanFormatter) Format(w Writer, result *Result) error {
	var sb strings.Builder

	if result.Success {
		sb.WriteString(fmt.Sprintf("[OK] %s %s\n", result.Operation, result.Target))
	} else {
		sb.WriteString(fmt.Sprintf("[Error] %s %s\n", result.Operation, result.Target))
		if result.Error != "" {
			sb.WriteString(fmt.Sprintf("   Error: %s\n", result.Error))
		}
	}

	switch {
	case result.Diagnostics != nil:
		writeDiagnostics(&sb, result.Diagnostics)
	case result.Tokens != nil:
		writeTokens(&sb, result.Tokens)
	case result.Failures != nil:
		writeFailures(&sb, result.Failures)
	}

	if result.TextContent != "" {
		sb.WriteString("\n")
		sb.WriteString(result.TextContent)
		if !strings.HasSuffix(result.TextContent, "\n") {
			sb.WriteString("\n")
		}
	}

	if result.Data != nil {
		for k, v := range result.Data {
			sb.WriteString(fmt.Sprintf("   %s: %v\n", k, v))
		}
	}

	_, err := w.Write([]byte(sb.String()))
	return err
}

// writeDiagnostics renders one line per diagnostic: severity, the
// zero-based start-end range, and the message (spec §3 "Diagnostic").
func writeDiagnostics(sb *strings.Builder, diagnostics []bridge.Diagnostic) {
	if len(diagnostics) == 0 {
		sb.WriteString("   no diagnostics\n")
		return
	}
	for _, d := range diagnostics {
		sb.WriteString(fmt.Sprintf("   [%s] %d:%d-%d:%d  %s\n",
			d.Severity,
			d.Range[0].Line, d.Range[0].Character,
			d.Range[1].Line, d.Range[1].Character,
			d.Message))
	}
}

// writeTokens renders the token count and the tokens themselves, one per
// line when there are few enough to scan, comma-joined otherwise.
func writeTokens(sb *strings.Builder, tokens []string) {
	sb.WriteString(fmt.Sprintf("   %d token(s)\n", len(tokens)))
	if len(tokens) <= 20 {
		for i, t := range tokens {
			sb.WriteString(fmt.Sprintf("   %3d  %s\n", i, t))
		}
		return
	}
	sb.WriteString("   " + strings.Join(tokens, ", ") + "\n")
}

// writeFailures renders one line per per-file analysis failure (spec §4.5
// step 6, "AnalyzeFailure").
func writeFailures(sb *strings.Builder, failures []bridge.AnalyzeFailure) {
	if len(failures) == 0 {
		sb.WriteString("   no failures\n")
		return
	}
	for _, f := range failures {
		sb.WriteString(fmt.Sprintf("   [failed] %s: %s\n", f.URI, f.Message))
	}
}
