// Package commands implements the labbus-trace CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/labbus-project/labbus-go/pkg/trace"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Category   *trace.Category
	Op         string
	Device     string
	FailedOnly bool
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event trace.Event) {
	// Header line: timestamp [sess:id] CATEGORY Op
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	sessID := shortenSessionID(event.SessionID)

	if event.Op != "" {
		fmt.Fprintf(w, "%s [sess:%s] %-5s %s\n", ts, sessID, event.Category.String(), event.Op)
	} else {
		fmt.Fprintf(w, "%s [sess:%s] %s\n", ts, sessID, event.Category.String())
	}

	if event.Device != "" {
		fmt.Fprintf(w, "  Device: %s", event.Device)
		if event.Handle != 0 {
			fmt.Fprintf(w, " (handle %d)", event.Handle)
		}
		fmt.Fprintln(w)
	}

	// Type-specific details
	switch {
	case event.Call != nil:
		formatCallDetails(w, event.Call)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.LogMessage != nil:
		fmt.Fprintf(w, "  Message: %s\n", event.LogMessage.Message)
	case event.Fault != nil:
		formatFaultDetails(w, event.Fault)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatCallDetails writes call-specific details.
func formatCallDetails(w io.Writer, call *trace.CallEvent) {
	if call.Failed() {
		fmt.Fprintf(w, "  Status: %d FAILED\n", call.Code)
		if call.Message != "" {
			fmt.Fprintf(w, "  Message: %s\n", call.Message)
		}
		return
	}
	fmt.Fprintf(w, "  Status: %d\n", call.Code)
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *trace.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatFaultDetails writes device fault details.
func formatFaultDetails(w io.Writer, fault *trace.FaultEvent) {
	fmt.Fprintf(w, "  Code: 0x%04X\n", fault.Code)
	if fault.Message != "" {
		fmt.Fprintf(w, "  Message: %s\n", fault.Message)
	}
}

// filterEvents returns events matching the filter criteria.
func filterEvents(events []trace.Event, filter ViewFilter) []trace.Event {
	var result []trace.Event
	for _, e := range events {
		if !matchesView(e, filter) {
			continue
		}
		result = append(result, e)
	}
	return result
}

// matchesView returns true if the event passes all view filter criteria.
func matchesView(e trace.Event, filter ViewFilter) bool {
	if filter.Category != nil && e.Category != *filter.Category {
		return false
	}
	if filter.Op != "" && e.Op != filter.Op {
		return false
	}
	if filter.Device != "" && e.Device != filter.Device {
		return false
	}
	if filter.FailedOnly && (e.Call == nil || !e.Call.Failed()) {
		return false
	}
	return true
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (trace.Category, error) {
	return parseCategory(s)
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (trace.Category, error) {
	switch strings.ToLower(s) {
	case "call":
		return trace.CategoryCall, nil
	case "state":
		return trace.CategoryState, nil
	case "log":
		return trace.CategoryLog, nil
	case "fault":
		return trace.CategoryFault, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be call, state, log, or fault)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := trace.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		if !matchesView(event, filter) {
			continue
		}

		formatEvent(output, event)
	}

	return nil
}
