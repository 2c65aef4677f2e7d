package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/labbus-project/labbus-go/pkg/trace"
)

func TestFormatCallEvent(t *testing.T) {
	ts := time.Date(2026, 3, 12, 9, 41, 7, 123456000, time.UTC)
	event := trace.Event{
		Timestamp: ts,
		SessionID: "abc12345-6789-0123-4567-890abcdef012",
		Category:  trace.CategoryCall,
		Op:        "Pump.Aspirate",
		Device:    "Dosing_Pump_1",
		Handle:    1,
		Call: &trace.CallEvent{
			Code: 0,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	// Check timestamp format
	if !strings.Contains(output, "2026-03-12T09:41:07.123456Z") {
		t.Errorf("expected formatted timestamp, got: %s", output)
	}

	// Check session ID (shortened)
	if !strings.Contains(output, "[sess:abc12345]") {
		t.Errorf("expected shortened session ID, got: %s", output)
	}

	// Check category and op
	if !strings.Contains(output, "CALL") {
		t.Errorf("expected CALL category, got: %s", output)
	}
	if !strings.Contains(output, "Pump.Aspirate") {
		t.Errorf("expected operation name, got: %s", output)
	}

	// Check device line with handle
	if !strings.Contains(output, "Device: Dosing_Pump_1 (handle 1)") {
		t.Errorf("expected device line, got: %s", output)
	}

	// Check status
	if !strings.Contains(output, "Status: 0") {
		t.Errorf("expected status line, got: %s", output)
	}
	if strings.Contains(output, "FAILED") {
		t.Errorf("success must not be marked FAILED, got: %s", output)
	}
}

func TestFormatFailedCallEvent(t *testing.T) {
	ts := time.Date(2026, 3, 12, 9, 41, 8, 0, time.UTC)
	event := trace.Event{
		Timestamp: ts,
		SessionID: "abc12345-6789-0123-4567-890abcdef012",
		Category:  trace.CategoryCall,
		Op:        "Pump.Dispense",
		Device:    "Dosing_Pump_1",
		Handle:    1,
		Call: &trace.CallEvent{
			Code:    -22,
			Message: "Invalid argument",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "Status: -22 FAILED") {
		t.Errorf("expected failed status line, got: %s", output)
	}
	if !strings.Contains(output, "Message: Invalid argument") {
		t.Errorf("expected failure message, got: %s", output)
	}
}

func TestFormatStateChangeEvent(t *testing.T) {
	ts := time.Date(2026, 3, 12, 9, 41, 0, 0, time.UTC)
	event := trace.Event{
		Timestamp: ts,
		SessionID: "abc12345-6789-0123-4567-890abcdef012",
		Category:  trace.CategoryState,
		Op:        "Bus.Start",
		StateChange: &trace.StateChangeEvent{
			Entity:   trace.StateEntitySession,
			OldState: "OPENED",
			NewState: "STARTED",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "STATE") {
		t.Errorf("expected STATE category, got: %s", output)
	}
	if !strings.Contains(output, "Entity: SESSION") {
		t.Errorf("expected SESSION entity, got: %s", output)
	}
	if !strings.Contains(output, "OPENED -> STARTED") {
		t.Errorf("expected state transition, got: %s", output)
	}
}

func TestFormatLogEvent(t *testing.T) {
	ts := time.Date(2026, 3, 12, 9, 42, 0, 0, time.UTC)
	event := trace.Event{
		Timestamp: ts,
		SessionID: "abc12345-6789-0123-4567-890abcdef012",
		Category:  trace.CategoryLog,
		LogMessage: &trace.LogMessageEvent{
			Message: "batch 42 started",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "LOG") {
		t.Errorf("expected LOG category, got: %s", output)
	}
	if !strings.Contains(output, "Message: batch 42 started") {
		t.Errorf("expected log message, got: %s", output)
	}
}

func TestFormatFaultEvent(t *testing.T) {
	ts := time.Date(2026, 3, 12, 9, 43, 0, 0, time.UTC)
	event := trace.Event{
		Timestamp: ts,
		SessionID: "abc12345-6789-0123-4567-890abcdef012",
		Category:  trace.CategoryFault,
		Device:    "Dosing_Pump_1",
		Handle:    1,
		Fault: &trace.FaultEvent{
			Code:    0x2310,
			Message: "continuous over current",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	if !strings.Contains(output, "FAULT") {
		t.Errorf("expected FAULT category, got: %s", output)
	}
	if !strings.Contains(output, "Code: 0x2310") {
		t.Errorf("expected hex fault code, got: %s", output)
	}
	if !strings.Contains(output, "Message: continuous over current") {
		t.Errorf("expected fault message, got: %s", output)
	}
}

func TestFilterByCategory(t *testing.T) {
	events := []trace.Event{
		{Category: trace.CategoryCall, Call: &trace.CallEvent{}},
		{Category: trace.CategoryState},
		{Category: trace.CategoryLog},
		{Category: trace.CategoryFault},
	}

	state := trace.CategoryState
	filter := ViewFilter{Category: &state}

	filtered := filterEvents(events, filter)
	if len(filtered) != 1 {
		t.Errorf("expected 1 event, got %d", len(filtered))
	}
	if filtered[0].Category != trace.CategoryState {
		t.Errorf("expected state category, got %v", filtered[0].Category)
	}
}

func TestFilterByOp(t *testing.T) {
	events := []trace.Event{
		{Op: "Pump.Aspirate", Category: trace.CategoryCall},
		{Op: "Pump.Dispense", Category: trace.CategoryCall},
		{Op: "Pump.Aspirate", Category: trace.CategoryCall},
	}

	filter := ViewFilter{Op: "Pump.Dispense"}

	filtered := filterEvents(events, filter)
	if len(filtered) != 1 {
		t.Errorf("expected 1 event, got %d", len(filtered))
	}
	if filtered[0].Op != "Pump.Dispense" {
		t.Errorf("expected Pump.Dispense, got %s", filtered[0].Op)
	}
}

func TestFilterByDevice(t *testing.T) {
	events := []trace.Event{
		{Device: "Dosing_Pump_1", Category: trace.CategoryCall},
		{Device: "Switching_Valve_1", Category: trace.CategoryCall},
		{Device: "Dosing_Pump_1", Category: trace.CategoryCall},
	}

	filter := ViewFilter{Device: "Dosing_Pump_1"}

	filtered := filterEvents(events, filter)
	if len(filtered) != 2 {
		t.Errorf("expected 2 events, got %d", len(filtered))
	}
	for _, e := range filtered {
		if e.Device != "Dosing_Pump_1" {
			t.Errorf("expected Dosing_Pump_1, got %s", e.Device)
		}
	}
}

func TestFilterFailedOnly(t *testing.T) {
	events := []trace.Event{
		{Category: trace.CategoryCall, Call: &trace.CallEvent{Code: 0}},
		{Category: trace.CategoryCall, Call: &trace.CallEvent{Code: -19, Message: "No such device"}},
		{Category: trace.CategoryState},
		{Category: trace.CategoryCall, Call: &trace.CallEvent{Code: 3}},
	}

	filter := ViewFilter{FailedOnly: true}

	filtered := filterEvents(events, filter)
	if len(filtered) != 1 {
		t.Errorf("expected 1 event, got %d", len(filtered))
	}
	if filtered[0].Call.Code != -19 {
		t.Errorf("expected code -19, got %d", filtered[0].Call.Code)
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input    string
		expected trace.Category
		wantErr  bool
	}{
		{"call", trace.CategoryCall, false},
		{"CALL", trace.CategoryCall, false},
		{"state", trace.CategoryState, false},
		{"log", trace.CategoryLog, false},
		{"fault", trace.CategoryFault, false},
		{"FAULT", trace.CategoryFault, false},
		{"invalid", 0, true},
	}

	for _, tt := range tests {
		got, err := parseCategory(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseCategory(%q) expected error", tt.input)
			}
		} else {
			if err != nil {
				t.Errorf("parseCategory(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("parseCategory(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		}
	}
}

func TestShortenSessionID(t *testing.T) {
	if got := shortenSessionID("abc12345-6789"); got != "abc12345" {
		t.Errorf("expected abc12345, got %s", got)
	}
	if got := shortenSessionID("short"); got != "short" {
		t.Errorf("expected short, got %s", got)
	}
}
