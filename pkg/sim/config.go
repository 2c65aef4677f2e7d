package sim

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/labbus-project/labbus-go/pkg/polling"
	"github.com/labbus-project/labbus-go/pkg/version"
)

// ConfigFileName is the device configuration file the runtime looks for
// when Open is given a directory instead of a file.
const ConfigFileName = "labbus.yaml"

// Config holds runtime options. The device inventory itself is not part
// of Config; it is read from the configuration path passed to Open.
type Config struct {
	// Logger for debug output. If nil, logging is disabled.
	Logger *slog.Logger

	// Clock supplies time for the motion model. If nil, the system
	// clock is used. Tests inject a manual clock to step dosages
	// deterministically.
	Clock polling.Clock

	// CalibrationDuration is how long a reference move takes. If zero,
	// DefaultCalibrationDuration is used.
	CalibrationDuration time.Duration
}

// DefaultCalibrationDuration is the reference move duration used when
// Config leaves it unset.
const DefaultCalibrationDuration = 250 * time.Millisecond

// BusConfig is the device configuration file schema. It describes one bus
// segment: the pumps and standalone valves attached to it.
type BusConfig struct {
	// Version is the schema version of the file. Empty is accepted and
	// treated as current; an incompatible major version is rejected.
	Version string `yaml:"version,omitempty"`

	Bus    BusInfo     `yaml:"bus,omitempty"`
	Pumps  []PumpSpec  `yaml:"pumps,omitempty"`
	Valves []ValveSpec `yaml:"valves,omitempty"`
}

// BusInfo names the bus segment.
type BusInfo struct {
	Name string `yaml:"name,omitempty"`
}

// PumpSpec describes one syringe pump.
type PumpSpec struct {
	Name string `yaml:"name"`

	// NodeID is the bus node identifier. If zero, one is assigned by
	// enumeration order.
	NodeID int `yaml:"node_id,omitempty"`

	// Syringe is the initially mounted syringe.
	Syringe SyringeSpec `yaml:"syringe"`

	// MaxFlowMLs caps the flow rate in millilitres per second. If zero,
	// the cap is derived from the syringe cross-section and the drive's
	// maximum plunger speed.
	MaxFlowMLs float64 `yaml:"max_flow_ml_s,omitempty"`

	// Valve, if present, attaches a switching valve to the pump.
	Valve *PumpValveSpec `yaml:"valve,omitempty"`
}

// SyringeSpec gives the syringe dimensions in millimetres.
type SyringeSpec struct {
	InnerDiameterMM float64 `yaml:"inner_diameter_mm"`
	MaxStrokeMM     float64 `yaml:"max_stroke_mm"`
}

// PumpValveSpec describes a valve built into a pump. It has no name and
// no node of its own; it is addressed through the owning pump.
type PumpValveSpec struct {
	Positions int `yaml:"positions"`
}

// ValveSpec describes one standalone switching valve.
type ValveSpec struct {
	Name string `yaml:"name"`

	// NodeID is the bus node identifier. If zero, one is assigned by
	// enumeration order.
	NodeID int `yaml:"node_id,omitempty"`

	Positions int `yaml:"positions"`
}

// validate rejects inventories the motion model cannot represent.
func (c *BusConfig) validate() error {
	if c.Version != "" {
		v, err := version.Parse(c.Version)
		if err != nil {
			return err
		}
		current, _ := version.Parse(version.Current)
		if !v.Compatible(current) {
			return fmt.Errorf("config version %s is not supported (current %s)", v, current)
		}
	}

	seen := make(map[string]bool)
	for i, p := range c.Pumps {
		if p.Name == "" {
			return fmt.Errorf("pump %d: missing name", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("pump %d: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true
		if p.Syringe.InnerDiameterMM <= 0 || p.Syringe.MaxStrokeMM <= 0 {
			return fmt.Errorf("pump %q: syringe dimensions must be positive", p.Name)
		}
		if p.MaxFlowMLs < 0 {
			return fmt.Errorf("pump %q: negative flow cap", p.Name)
		}
		if p.Valve != nil && p.Valve.Positions < 2 {
			return fmt.Errorf("pump %q: valve needs at least 2 positions", p.Name)
		}
	}
	for i, v := range c.Valves {
		if v.Name == "" {
			return fmt.Errorf("valve %d: missing name", i)
		}
		if seen[v.Name] {
			return fmt.Errorf("valve %d: duplicate name %q", i, v.Name)
		}
		seen[v.Name] = true
		if v.Positions < 2 {
			return fmt.Errorf("valve %q: needs at least 2 positions", v.Name)
		}
	}
	return nil
}

// loadBusConfig reads a device configuration from path. Path may name the
// YAML file directly or a configuration directory containing
// ConfigFileName.
func loadBusConfig(path string) (*BusConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		path = filepath.Join(path, ConfigFileName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg BusConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// WriteBusConfig writes a device configuration file to path, stamping the
// current schema version when cfg carries none. It is the counterpart of
// the loading done by Open, mainly used to generate example
// configurations.
func WriteBusConfig(path string, cfg BusConfig) error {
	if cfg.Version == "" {
		cfg.Version = version.Current
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
