package sim_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/labbus-project/labbus-go/pkg/sim"
)

// testClock is a manual clock for stepping the motion model without real
// sleeps.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

func (c *testClock) advance(d time.Duration) { c.now = c.now.Add(d) }

// testBusConfig is a one-pump, two-valve inventory: the pump carries a
// built-in valve and a standalone valve sits next to it.
func testBusConfig() sim.BusConfig {
	return sim.BusConfig{
		Bus: sim.BusInfo{Name: "bench-1"},
		Pumps: []sim.PumpSpec{{
			Name:       "neMESYS_Low_Pressure_1_Pump",
			Syringe:    sim.SyringeSpec{InnerDiameterMM: 10, MaxStrokeMM: 60},
			MaxFlowMLs: 1,
			Valve:      &sim.PumpValveSpec{Positions: 3},
		}},
		Valves: []sim.ValveSpec{{
			Name:      "Switching_Valve_1",
			Positions: 8,
		}},
	}
}

func writeTestConfig(t *testing.T, cfg sim.BusConfig) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), sim.ConfigFileName)
	if err := sim.WriteBusConfig(path, cfg); err != nil {
		t.Fatalf("WriteBusConfig failed: %v", err)
	}
	return path
}

// openRuntime returns a runtime with the inventory loaded, still in the
// configurable state.
func openRuntime(t *testing.T, cfg sim.BusConfig) (*sim.Runtime, *testClock) {
	t.Helper()
	clock := newTestClock()
	rt := sim.New(sim.Config{Clock: clock})
	if st := rt.Open(writeTestConfig(t, cfg)); !st.Ok() {
		t.Fatalf("Open failed with status %d", st.Value())
	}
	return rt, clock
}

// startedRuntime returns a runtime with all devices operational and
// drives enabled.
func startedRuntime(t *testing.T, cfg sim.BusConfig) (*sim.Runtime, *testClock) {
	t.Helper()
	rt, clock := openRuntime(t, cfg)
	if st := rt.Start(); !st.Ok() {
		t.Fatalf("Start failed with status %d", st.Value())
	}
	return rt, clock
}
