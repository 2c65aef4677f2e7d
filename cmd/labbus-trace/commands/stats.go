package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/labbus-project/labbus-go/pkg/trace"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents      int
	EventsByCategory map[trace.Category]int
	CallsByOp        map[string]int
	EventsByDevice   map[string]int
	Sessions         map[string]*SessionStats
	FailedCalls      int
	Faults           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for a single bus session.
type SessionStats struct {
	FirstSeen   time.Time
	LastSeen    time.Time
	Events      int
	FailedCalls int
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := trace.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory: make(map[trace.Category]int),
		CallsByOp:        make(map[string]int),
		EventsByDevice:   make(map[string]int),
		Sessions:         make(map[string]*SessionStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++

		// Track time range
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		// Track session stats
		sess, ok := stats.Sessions[event.SessionID]
		if !ok {
			sess = &SessionStats{
				FirstSeen: event.Timestamp,
				LastSeen:  event.Timestamp,
			}
			stats.Sessions[event.SessionID] = sess
		}
		sess.Events++
		if event.Timestamp.After(sess.LastSeen) {
			sess.LastSeen = event.Timestamp
		}

		// Count calls per operation and failures
		if event.Call != nil {
			if event.Op != "" {
				stats.CallsByOp[event.Op]++
			}
			if event.Call.Failed() {
				stats.FailedCalls++
				sess.FailedCalls++
			}
		}

		// Count device activity
		if event.Device != "" {
			stats.EventsByDevice[event.Device]++
		}

		// Count faults
		if event.Fault != nil {
			stats.Faults++
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== labbus Trace Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	// Total events
	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	// Events by category
	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []trace.Category{trace.CategoryCall, trace.CategoryState, trace.CategoryLog, trace.CategoryFault} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-8s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Calls by operation, busiest first
	if len(stats.CallsByOp) > 0 {
		fmt.Fprintln(w, "Calls by Operation:")
		ops := make([]string, 0, len(stats.CallsByOp))
		for op := range stats.CallsByOp {
			ops = append(ops, op)
		}
		sort.Slice(ops, func(i, j int) bool {
			if stats.CallsByOp[ops[i]] != stats.CallsByOp[ops[j]] {
				return stats.CallsByOp[ops[i]] > stats.CallsByOp[ops[j]]
			}
			return ops[i] < ops[j]
		})
		for _, op := range ops {
			fmt.Fprintf(w, "  %-32s %d\n", op+":", stats.CallsByOp[op])
		}
		fmt.Fprintln(w)
	}

	// Devices
	if len(stats.EventsByDevice) > 0 {
		fmt.Fprintf(w, "Devices: %d\n", len(stats.EventsByDevice))
		devices := make([]string, 0, len(stats.EventsByDevice))
		for d := range stats.EventsByDevice {
			devices = append(devices, d)
		}
		sort.Strings(devices)
		for _, d := range devices {
			fmt.Fprintf(w, "  %-32s %d events\n", d+":", stats.EventsByDevice[d])
		}
		fmt.Fprintln(w)
	}

	// Sessions
	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		// Sort by first seen time
		type sessInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		fmt.Fprintln(w, "")
		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenSessionID(s.id), s.stats.Events, duration)
			if s.stats.FailedCalls > 0 {
				fmt.Fprintf(w, "           Failed calls: %d\n", s.stats.FailedCalls)
			}
		}
	}

	// Failures
	if stats.FailedCalls > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Failed Calls: %d\n", stats.FailedCalls)
	}
	if stats.Faults > 0 {
		fmt.Fprintf(w, "Faults: %d\n", stats.Faults)
	}
}
