// Command labbus-cli is an interactive console for a simulated labbus
// segment.
//
// The console drives the full device workflow against the in-process
// runtime: open and start a bus from a YAML device configuration, dose
// with syringe pumps, switch valves, inject faults, and follow the
// resulting activity in a trace file.
//
// Usage:
//
//	labbus-cli [flags]
//
// Flags:
//
//	-config string   Device configuration file (default "labbus.yaml")
//	-trace string    Write a bus activity trace to this file
//	-debug           Enable runtime debug logging
//	-init-config     Write an example device configuration and exit
//
// Examples:
//
//	# Create an example configuration, then explore it
//	labbus-cli -init-config
//	labbus-cli -trace session.ltrace
//
//	# Inside the console
//	labbus> open
//	labbus> start
//	labbus> aspirate neMESYS_Low_Pressure_1_Pump 2.5 0.5
//	labbus> wait neMESYS_Low_Pressure_1_Pump
//
// Interactive Commands:
//
//	open / start / stop / close - Bus lifecycle
//	pumps, valves, status       - Inventory and state
//	aspirate, dispense, level, flow, halt, wait - Dosing
//	calibrate, enable, disable, clearfault      - Drive control
//	valve, comm, fault, log     - Valves and diagnostics
//	quit                        - Exit the console
//
// Analyze a recorded trace afterwards with labbus-trace.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/labbus-project/labbus-go/cmd/labbus-cli/interactive"
	"github.com/labbus-project/labbus-go/pkg/sim"
	"github.com/labbus-project/labbus-go/pkg/trace"
)

// Config holds the console configuration.
type Config struct {
	ConfigPath string
	TracePath  string
	Debug      bool
	InitConfig bool
}

var config Config

func init() {
	flag.StringVar(&config.ConfigPath, "config", sim.ConfigFileName, "Device configuration file")
	flag.StringVar(&config.TracePath, "trace", "", "Write a bus activity trace to this file")
	flag.BoolVar(&config.Debug, "debug", false, "Enable runtime debug logging")
	flag.BoolVar(&config.InitConfig, "init-config", false, "Write an example device configuration and exit")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime)

	if config.InitConfig {
		if err := writeExampleConfig(config.ConfigPath); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		log.Printf("Wrote example configuration to %s", config.ConfigPath)
		return
	}

	icfg := interactive.Config{
		ConfigPath: config.ConfigPath,
		Debug:      config.Debug,
	}

	var traceLog *trace.FileLogger
	if config.TracePath != "" {
		var err error
		traceLog, err = trace.NewFileLogger(config.TracePath)
		if err != nil {
			log.Fatalf("Failed to open trace file: %v", err)
		}
		icfg.Trace = traceLog
		log.Printf("Tracing bus activity to %s", config.TracePath)
	}

	console, err := interactive.New(icfg)
	if err != nil {
		log.Fatalf("Failed to create console: %v", err)
	}
	// Redirect log output through readline to avoid interfering with input
	log.SetOutput(console.Stdout())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go console.Run(ctx, cancel)

	// Wait for shutdown signal or context cancellation
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-ctx.Done():
		// Context was cancelled by the quit command
	}

	log.Println("Shutting down...")
	cancel()

	if err := console.Close(); err != nil {
		log.Printf("Error closing bus: %v", err)
	}
	if traceLog != nil {
		if err := traceLog.Close(); err != nil {
			log.Printf("Error closing trace file: %v", err)
		}
	}

	log.Println("Goodbye!")
}

// writeExampleConfig writes a starter device configuration: two dosing
// pumps (one with a built-in switching valve) and a standalone valve.
func writeExampleConfig(path string) error {
	cfg := sim.BusConfig{
		Bus: sim.BusInfo{Name: "bench-1"},
		Pumps: []sim.PumpSpec{
			{
				Name:       "neMESYS_Low_Pressure_1_Pump",
				NodeID:     1,
				Syringe:    sim.SyringeSpec{InnerDiameterMM: 10, MaxStrokeMM: 60},
				MaxFlowMLs: 2.5,
				Valve:      &sim.PumpValveSpec{Positions: 3},
			},
			{
				Name:       "neMESYS_Low_Pressure_2_Pump",
				NodeID:     2,
				Syringe:    sim.SyringeSpec{InnerDiameterMM: 14.57, MaxStrokeMM: 60},
				MaxFlowMLs: 5,
			},
		},
		Valves: []sim.ValveSpec{
			{Name: "Switching_Valve_1", NodeID: 5, Positions: 8},
		},
	}
	return sim.WriteBusConfig(path, cfg)
}
