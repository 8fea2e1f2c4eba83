// main.go — entry point for the pikebridge-cli binary.
// Drives an analyzer subprocess directly through the bridge package; there
// is no separate server process to connect to.
//
// Usage: pikebridge-cli <command> [args] [--flags]
//
// Commands: version, health, parse, tokenize, analyze, resolve-stdlib,
// check-circular, get-pike-paths, batch-parse
// Formats: --format human (default), --format json, --format csv
//
// Exit codes:
//
//	0 = success
//	1 = error (analyzer call failed)
//	2 = usage error (missing args, invalid flags)
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/arvidsson/pikebridge/cmd/pikebridge-cli/commands"
	"github.com/arvidsson/pikebridge/cmd/pikebridge-cli/config"
	"github.com/arvidsson/pikebridge/cmd/pikebridge-cli/output"
	"github.com/arvidsson/pikebridge/internal/bridge"
)

// cliVersion is set at build time via -ldflags.
var cliVersion = "0.1.0"

const usageText = `pikebridge-cli — CLI interface for the Pike language analyzer bridge

Usage:
  pikebridge-cli <command> [args] [--flags]

Commands:
  version                     Report the analyzer's version
  health                      Run the bridge's composite health check
  parse <uri> --text <text>   Parse a document, report diagnostics
  tokenize <uri> --text <text> Tokenize a document
  analyze <uri>                Run whole-project static analysis
  check-circular <uri>         Check for circular includes/imports
  resolve-stdlib <module>       Resolve a standard-library module reference
  get-pike-paths                Report configured include/module paths
  batch-parse <file...>          Parse multiple files (one row per diagnostic in CSV format)

Global Flags:
  --format <human|json|csv>   Output format (default: human)
  --executable <path>          Analyzer interpreter binary (default: pike)
  --script <path>              Analyzer script path (default: auto-discovered)
  --timeout <ms>                Request timeout in ms (default: 30000)
  --debug                      Enable analyzer debug logging
  --version                    Show CLI version
  --help                        Show this help

Examples:
  pikebridge-cli version
  pikebridge-cli parse file:///a.pike --text "int main(){}"
  pikebridge-cli resolve-stdlib Stdio
  pikebridge-cli batch-parse a.pike b.pike --format csv
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usageText)
		return 2
	}

	for _, arg := range args {
		if arg == "--version" || arg == "-v" {
			fmt.Printf("pikebridge-cli %s\n", cliVersion)
			return 0
		}
		if arg == "--help" || arg == "-h" {
			fmt.Print(usageText)
			return 0
		}
	}

	command := args[0]
	if command == "help" {
		fmt.Print(usageText)
		return 0
	}
	remaining := args[1:]

	flags, remaining := extractGlobalFlags(remaining)

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine working directory: %v\n", err)
		return 1
	}

	cfg, err := config.Load(cwd, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration: %v\n", err)
		return 2
	}

	formatter := output.GetFormatter(cfg.Format)

	b := bridge.New(bridge.Options{
		ExecutablePath: cfg.ExecutablePath,
		ScriptPath:     cfg.ScriptPath,
		Timeout:        time.Duration(cfg.TimeoutMS) * time.Millisecond,
		Debug:          cfg.Debug,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.TimeoutMS)*time.Millisecond+10*time.Second)
	defer cancel()
	defer b.Stop(context.Background())

	result, err := commands.Dispatch(ctx, b, command, remaining)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if err := formatResults(formatter, result); err != nil {
		fmt.Fprintf(os.Stderr, "Error: format output: %v\n", err)
		return 1
	}

	for _, r := range result {
		if !r.Success {
			return 1
		}
	}
	return 0
}

func formatResults(formatter output.Formatter, results []*output.Result) error {
	if csvFormatter, ok := formatter.(*output.CSVFormatter); ok && len(results) > 1 {
		return csvFormatter.FormatMultiple(os.Stdout, results)
	}
	for _, r := range results {
		if err := formatter.Format(os.Stdout, r); err != nil {
			return err
		}
	}
	return nil
}

// extractGlobalFlags extracts global flags from args and returns
// FlagOverrides + remaining args.
func extractGlobalFlags(args []string) (*config.FlagOverrides, []string) {
	flags := &config.FlagOverrides{}
	remaining := args

	var format string
	format, remaining = extractFlag(remaining, "--format")
	if format != "" {
		flags.Format = &format
	}

	var exe string
	exe, remaining = extractFlag(remaining, "--executable")
	if exe != "" {
		flags.ExecutablePath = &exe
	}

	var script string
	script, remaining = extractFlag(remaining, "--script")
	if script != "" {
		flags.ScriptPath = &script
	}

	var timeoutStr string
	timeoutStr, remaining = extractFlag(remaining, "--timeout")
	if timeoutStr != "" {
		timeout := parseInt(timeoutStr)
		if timeout > 0 {
			flags.TimeoutMS = &timeout
		}
	}

	for i, a := range remaining {
		if a == "--debug" {
			debug := true
			flags.Debug = &debug
			remaining = append(remaining[:i], remaining[i+1:]...)
			break
		}
	}

	return flags, remaining
}

func extractFlag(args []string, flag string) (string, []string) {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			val := args[i+1]
			remaining := make([]string, 0, len(args)-2)
			remaining = append(remaining, args[:i]...)
			remaining = append(remaining, args[i+2:]...)
			return val, remaining
		}
	}
	return "", args
}

func parseInt(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
