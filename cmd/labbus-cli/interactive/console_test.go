package interactive

import (
	"testing"

	"github.com/labbus-project/labbus-go/pkg/driver"
	"github.com/labbus-project/labbus-go/pkg/pump"
)

func TestParseCommState(t *testing.T) {
	tests := []struct {
		input   string
		want    driver.CommState
		wantErr bool
	}{
		{"operational", driver.CommStateOperational, false},
		{"op", driver.CommStateOperational, false},
		{"OPERATIONAL", driver.CommStateOperational, false},
		{"stopped", driver.CommStateStopped, false},
		{"stop", driver.CommStateStopped, false},
		{"config", driver.CommStateConfigurable, false},
		{"configurable", driver.CommStateConfigurable, false},
		{"Config", driver.CommStateConfigurable, false},
		{"preop", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseCommState(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseCommState(%q) expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseCommState(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseCommState(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestVolumeUnitLabel(t *testing.T) {
	tests := []struct {
		unit pump.VolumeUnit
		want string
	}{
		{pump.VolumeUnit{Prefix: driver.PrefixUnit, Unit: driver.Litres}, "L"},
		{pump.VolumeUnit{Prefix: driver.PrefixDeci, Unit: driver.Litres}, "dL"},
		{pump.VolumeUnit{Prefix: driver.PrefixCenti, Unit: driver.Litres}, "cL"},
		{pump.VolumeUnit{Prefix: driver.PrefixMilli, Unit: driver.Litres}, "mL"},
		{pump.VolumeUnit{Prefix: driver.PrefixMicro, Unit: driver.Litres}, "uL"},
		{pump.VolumeUnit{Prefix: driver.Prefix(-9), Unit: driver.Litres}, "?"},
		{pump.VolumeUnit{Prefix: driver.PrefixMilli, Unit: driver.VolumeUnit(0)}, "?"},
	}

	for _, tt := range tests {
		if got := volumeUnitLabel(tt.unit); got != tt.want {
			t.Errorf("volumeUnitLabel(%+v) = %q, want %q", tt.unit, got, tt.want)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID() = %q, want %q", got, "01234567")
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID() = %q, want %q", got, "abc")
	}
}
