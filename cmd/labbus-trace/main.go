// Command labbus-trace is a tool for viewing and analyzing labbus trace files.
//
// Trace files are created by attaching a trace.FileLogger to a bus session,
// or by running labbus-cli with the -trace flag.
//
// Usage:
//
//	labbus-trace <command> [flags] <file.ltrace>
//
// Commands:
//
//	view     View trace file in human-readable format
//	export   Export trace file to JSON or CSV format
//	filter   Filter trace file and write to new file
//	stats    Show statistics about the trace file
//
// Examples:
//
//	# View all events
//	labbus-trace view session.ltrace
//
//	# View only failed calls
//	labbus-trace view --failed session.ltrace
//
//	# View one pump's dosage calls
//	labbus-trace view --device Dosing_Pump_1 --op Pump.Aspirate session.ltrace
//
//	# Export to JSONL
//	labbus-trace export --format jsonl session.ltrace
//
//	# Filter by device and save to new file
//	labbus-trace filter --device Dosing_Pump_1 -o pump.ltrace session.ltrace
//
//	# Show statistics
//	labbus-trace stats session.ltrace
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/labbus-project/labbus-go/cmd/labbus-trace/commands"
)

const usage = `labbus-trace - labbus Trace Analyzer

Usage:
  labbus-trace <command> [flags] <file.ltrace>

Commands:
  view     View trace file in human-readable format
  export   Export trace file to JSON or CSV format
  filter   Filter trace file and write to new file
  stats    Show statistics about the trace file

Use "labbus-trace <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `labbus-trace view - View trace file in human-readable format

Usage:
  labbus-trace view [flags] <file.ltrace>

Flags:
`)
		fs.PrintDefaults()
	}

	category := fs.String("category", "", "Filter by category (call, state, log, fault)")
	op := fs.String("op", "", "Filter by operation name (e.g. Pump.Aspirate)")
	device := fs.String("device", "", "Filter by device name")
	failed := fs.Bool("failed", false, "Show only failed calls")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}

	path := fs.Arg(0)

	// Build filter
	filter := commands.ViewFilter{
		Op:         *op,
		Device:     *device,
		FailedOnly: *failed,
	}

	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Category = &c
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `labbus-trace export - Export trace file to JSON or CSV format

Usage:
  labbus-trace export [flags] <file.ltrace>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}

	path := fs.Arg(0)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `labbus-trace filter - Filter trace file and write to new file

Usage:
  labbus-trace filter [flags] <file.ltrace>

Flags:
`)
		fs.PrintDefaults()
	}

	output := fs.String("o", "", "Output file (required)")
	session := fs.String("session", "", "Filter by session ID")
	op := fs.String("op", "", "Filter by operation name")
	device := fs.String("device", "", "Filter by device name")
	category := fs.String("category", "", "Filter by category (call, state, log, fault)")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")
	failed := fs.Bool("failed", false, "Keep only failed calls")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	path := fs.Arg(0)

	opts := commands.FilterOptions{
		Output:     *output,
		SessionID:  *session,
		Op:         *op,
		Device:     *device,
		Category:   *category,
		TimeStart:  *timeStart,
		TimeEnd:    *timeEnd,
		FailedOnly: *failed,
	}

	if err := commands.RunFilter(path, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `labbus-trace stats - Show statistics about the trace file

Usage:
  labbus-trace stats <file.ltrace>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: trace file path required")
		fs.Usage()
		os.Exit(1)
	}

	path := fs.Arg(0)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
