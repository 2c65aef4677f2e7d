package trace

import (
	"bytes"
	"testing"
	"time"
)

func TestEncodeDecodeCallEvent(t *testing.T) {
	event := Event{
		Timestamp: time.Date(2026, 2, 10, 9, 30, 0, 123456789, time.UTC),
		SessionID: "f81d4fae-7dec-11d0-a765-00a0c91e6bf6",
		Category:  CategoryCall,
		Op:        "Pump.Aspirate",
		Device:    "neMESYS_Low_Pressure_1_Pump",
		Handle:    42,
		Call: &CallEvent{
			Code:    -16,
			Message: "Device or resource busy",
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.SessionID != event.SessionID {
		t.Errorf("SessionID: got %q, want %q", decoded.SessionID, event.SessionID)
	}
	if decoded.Category != CategoryCall {
		t.Errorf("Category: got %v, want %v", decoded.Category, CategoryCall)
	}
	if decoded.Op != event.Op {
		t.Errorf("Op: got %q, want %q", decoded.Op, event.Op)
	}
	if decoded.Device != event.Device {
		t.Errorf("Device: got %q, want %q", decoded.Device, event.Device)
	}
	if decoded.Handle != 42 {
		t.Errorf("Handle: got %d, want 42", decoded.Handle)
	}
	if decoded.Call == nil {
		t.Fatal("Call payload is nil")
	}
	if decoded.Call.Code != -16 {
		t.Errorf("Call.Code: got %d, want -16", decoded.Call.Code)
	}
	if decoded.Call.Message != "Device or resource busy" {
		t.Errorf("Call.Message: got %q, want %q", decoded.Call.Message, "Device or resource busy")
	}
	if !decoded.Call.Failed() {
		t.Error("Call.Failed() = false, want true")
	}
}

func TestEncodeDecodeStateChangeEvent(t *testing.T) {
	event := Event{
		Timestamp: time.Now().UTC(),
		SessionID: "session-1",
		Category:  CategoryState,
		Op:        "Bus.Start",
		StateChange: &StateChangeEvent{
			Entity:   StateEntitySession,
			OldState: "OPENED",
			NewState: "STARTED",
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.StateChange == nil {
		t.Fatal("StateChange payload is nil")
	}
	if decoded.StateChange.Entity != StateEntitySession {
		t.Errorf("Entity: got %v, want %v", decoded.StateChange.Entity, StateEntitySession)
	}
	if decoded.StateChange.OldState != "OPENED" {
		t.Errorf("OldState: got %q, want %q", decoded.StateChange.OldState, "OPENED")
	}
	if decoded.StateChange.NewState != "STARTED" {
		t.Errorf("NewState: got %q, want %q", decoded.StateChange.NewState, "STARTED")
	}
}

func TestEncodeDecodeLogMessageEvent(t *testing.T) {
	event := Event{
		Timestamp:  time.Now().UTC(),
		SessionID:  "session-1",
		Category:   CategoryLog,
		LogMessage: &LogMessageEvent{Message: "dosing batch 7 started"},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.LogMessage == nil {
		t.Fatal("LogMessage payload is nil")
	}
	if decoded.LogMessage.Message != "dosing batch 7 started" {
		t.Errorf("Message: got %q, want %q", decoded.LogMessage.Message, "dosing batch 7 started")
	}
}

func TestEncodeDecodeFaultEvent(t *testing.T) {
	event := Event{
		Timestamp: time.Now().UTC(),
		SessionID: "session-1",
		Category:  CategoryFault,
		Device:    "pump-2",
		Handle:    7,
		Fault: &FaultEvent{
			Code:    0x8110,
			Message: "CAN overrun",
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Fault == nil {
		t.Fatal("Fault payload is nil")
	}
	if decoded.Fault.Code != 0x8110 {
		t.Errorf("Fault.Code: got %#x, want 0x8110", decoded.Fault.Code)
	}
	if decoded.Fault.Message != "CAN overrun" {
		t.Errorf("Fault.Message: got %q, want %q", decoded.Fault.Message, "CAN overrun")
	}
}

func TestTimestampNanosecondPrecision(t *testing.T) {
	ts := time.Date(2026, 3, 15, 14, 22, 31, 987654321, time.UTC)
	event := Event{
		Timestamp: ts,
		SessionID: "session-1",
		Category:  CategoryCall,
		Call:      &CallEvent{Code: 0},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !decoded.Timestamp.Equal(ts) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, ts)
	}
	if decoded.Timestamp.Nanosecond() != 987654321 {
		t.Errorf("Timestamp nanoseconds: got %d, want 987654321", decoded.Timestamp.Nanosecond())
	}
}

func TestOmittedPayloadsStayNil(t *testing.T) {
	event := Event{
		Timestamp: time.Now().UTC(),
		SessionID: "session-1",
		Category:  CategoryLog,
		LogMessage: &LogMessageEvent{
			Message: "hello",
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Call != nil {
		t.Error("Call payload should be nil")
	}
	if decoded.StateChange != nil {
		t.Error("StateChange payload should be nil")
	}
	if decoded.Fault != nil {
		t.Error("Fault payload should be nil")
	}
}

func TestEncoderDecoderStreaming(t *testing.T) {
	var buf bytes.Buffer
	encoder := NewEncoder(&buf)

	events := []Event{
		{Timestamp: time.Now().UTC(), SessionID: "s", Category: CategoryCall, Op: "Bus.Open", Call: &CallEvent{Code: 0}},
		{Timestamp: time.Now().UTC(), SessionID: "s", Category: CategoryCall, Op: "Bus.Start", Call: &CallEvent{Code: 0}},
		{Timestamp: time.Now().UTC(), SessionID: "s", Category: CategoryLog, LogMessage: &LogMessageEvent{Message: "ready"}},
	}

	for _, e := range events {
		if err := encoder.Encode(e); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}

	decoder := NewDecoder(&buf)
	var decoded []Event
	for {
		var e Event
		if err := decoder.Decode(&e); err != nil {
			break
		}
		decoded = append(decoded, e)
	}

	if len(decoded) != 3 {
		t.Fatalf("decoded %d events, want 3", len(decoded))
	}
	if decoded[0].Op != "Bus.Open" {
		t.Errorf("first Op: got %q, want %q", decoded[0].Op, "Bus.Open")
	}
	if decoded[2].LogMessage == nil || decoded[2].LogMessage.Message != "ready" {
		t.Error("third event LogMessage not preserved")
	}
}
