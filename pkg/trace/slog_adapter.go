package trace

import (
	"context"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger.
// Useful for development when you want to see bus activity in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("category", event.Category.String()),
	}

	// Add optional identifiers
	if event.Op != "" {
		attrs = append(attrs, slog.String("op", event.Op))
	}
	if event.Device != "" {
		attrs = append(attrs, slog.String("device", event.Device))
	}
	if event.Handle != 0 {
		attrs = append(attrs, slog.Int64("handle", event.Handle))
	}

	// Add type-specific attributes
	switch {
	case event.Call != nil:
		attrs = append(attrs, slog.Int("code", event.Call.Code))
		if event.Call.Message != "" {
			attrs = append(attrs, slog.String("message", event.Call.Message))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.LogMessage != nil:
		attrs = append(attrs, slog.String("message", event.LogMessage.Message))
	case event.Fault != nil:
		attrs = append(attrs, slog.Uint64("fault_code", uint64(event.Fault.Code)))
		if event.Fault.Message != "" {
			attrs = append(attrs, slog.String("fault_message", event.Fault.Message))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "bus", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
