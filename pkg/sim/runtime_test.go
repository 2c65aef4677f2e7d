package sim_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labbus-project/labbus-go/pkg/driver"
	"github.com/labbus-project/labbus-go/pkg/sim"
)

func TestOpenMissingConfig(t *testing.T) {
	rt := sim.New(sim.Config{})
	st := rt.Open(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, driver.StatusNoEntry, st)
}

func TestOpenMalformedConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labbus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pumps: [qu{oteless"), 0644))

	rt := sim.New(sim.Config{})
	st := rt.Open(path)
	assert.Equal(t, driver.StatusInvalid, st)
}

func TestOpenFromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, sim.WriteBusConfig(filepath.Join(dir, sim.ConfigFileName), testBusConfig()))

	rt := sim.New(sim.Config{})
	st := rt.Open(dir)
	require.True(t, st.Ok(), "Open from directory failed with status %d", st.Value())
	assert.Equal(t, "bench-1", rt.BusName())
}

func TestOpenTwiceRejected(t *testing.T) {
	rt, _ := openRuntime(t, testBusConfig())
	st := rt.Open(writeTestConfig(t, testBusConfig()))
	assert.Equal(t, driver.StatusInvalid, st)
}

func TestCallsBeforeOpenRejected(t *testing.T) {
	rt := sim.New(sim.Config{})
	assert.Equal(t, driver.StatusAccess, rt.Start())
	assert.Equal(t, driver.StatusAccess, rt.PumpCount())
	assert.Equal(t, driver.StatusAccess, rt.Log("hello"))
}

func TestCallsAfterCloseRejected(t *testing.T) {
	rt, _ := openRuntime(t, testBusConfig())
	require.True(t, rt.Close().Ok())

	assert.Equal(t, driver.StatusShutdown, rt.Start())
	assert.Equal(t, driver.StatusShutdown, rt.PumpCount())
	assert.Equal(t, driver.StatusShutdown, rt.Close())
	assert.Equal(t, driver.StatusShutdown, rt.Open(writeTestConfig(t, testBusConfig())))

	_, st := rt.DeviceName(driver.Handle(1))
	assert.Equal(t, driver.StatusShutdown, st)
}

func TestStartStopRestart(t *testing.T) {
	rt, _ := openRuntime(t, testBusConfig())
	require.True(t, rt.Start().Ok())

	// Operational after start: valve switching is accepted.
	h, st := rt.ValveByName("Switching_Valve_1")
	require.True(t, st.Ok())
	require.True(t, rt.SwitchValveToPosition(h, 2).Ok())

	require.True(t, rt.Stop().Ok())
	assert.Equal(t, driver.StatusTimedOut, rt.SwitchValveToPosition(h, 1))

	require.True(t, rt.Start().Ok())
	assert.True(t, rt.SwitchValveToPosition(h, 1).Ok())
}

func TestDeviceNamesAndNodeIDs(t *testing.T) {
	rt, _ := openRuntime(t, testBusConfig())

	ph, st := rt.PumpByName("neMESYS_Low_Pressure_1_Pump")
	require.True(t, st.Ok())
	name, st := rt.DeviceName(ph)
	require.True(t, st.Ok())
	assert.Equal(t, "neMESYS_Low_Pressure_1_Pump", name)

	node, st := rt.NodeID(ph)
	require.True(t, st.Ok())
	assert.Equal(t, 1, node)

	// The pump's built-in valve has no own node.
	vh, st := rt.PumpValve(ph)
	require.True(t, st.Ok())
	name, st = rt.DeviceName(vh)
	require.True(t, st.Ok())
	assert.Equal(t, "neMESYS_Low_Pressure_1_Pump_Valve", name)
	node, st = rt.NodeID(vh)
	require.True(t, st.Ok())
	assert.Equal(t, -1, node)

	// The standalone valve continues the node sequence.
	sh, st := rt.ValveByName("Switching_Valve_1")
	require.True(t, st.Ok())
	node, st = rt.NodeID(sh)
	require.True(t, st.Ok())
	assert.Equal(t, 2, node)
}

func TestConfiguredNodeIDsRespected(t *testing.T) {
	cfg := testBusConfig()
	cfg.Pumps[0].NodeID = 5
	rt, _ := openRuntime(t, cfg)

	ph, st := rt.PumpByName("neMESYS_Low_Pressure_1_Pump")
	require.True(t, st.Ok())
	node, st := rt.NodeID(ph)
	require.True(t, st.Ok())
	assert.Equal(t, 5, node)

	// Auto-assignment continues after the configured value.
	sh, st := rt.ValveByName("Switching_Valve_1")
	require.True(t, st.Ok())
	node, st = rt.NodeID(sh)
	require.True(t, st.Ok())
	assert.Equal(t, 6, node)
}

func TestDevicePropertiesConfigurableOnly(t *testing.T) {
	rt, _ := openRuntime(t, testBusConfig())
	ph, st := rt.PumpByName("neMESYS_Low_Pressure_1_Pump")
	require.True(t, st.Ok())

	// Freshly opened devices are configurable.
	require.True(t, rt.SetDeviceProperty(ph, driver.PropertyID(7), 1.5).Ok())
	value, st := rt.DeviceProperty(ph, driver.PropertyID(7))
	require.True(t, st.Ok())
	assert.Equal(t, 1.5, value)

	_, st = rt.DeviceProperty(ph, driver.PropertyID(8))
	assert.Equal(t, driver.StatusNoEntry, st)

	require.True(t, rt.Start().Ok())
	assert.Equal(t, driver.StatusAccess, rt.SetDeviceProperty(ph, driver.PropertyID(7), 2.0))

	// Back to configurable, writable again.
	require.True(t, rt.SetCommState(ph, driver.CommStateConfigurable).Ok())
	assert.True(t, rt.SetDeviceProperty(ph, driver.PropertyID(7), 2.0).Ok())
}

func TestSetCommStateRejectsUnknownState(t *testing.T) {
	rt, _ := openRuntime(t, testBusConfig())
	ph, st := rt.PumpByName("neMESYS_Low_Pressure_1_Pump")
	require.True(t, st.Ok())
	assert.Equal(t, driver.StatusInvalid, rt.SetCommState(ph, driver.CommState(0x7f)))
}

func TestBadHandles(t *testing.T) {
	rt, _ := openRuntime(t, testBusConfig())

	_, st := rt.DeviceName(driver.None)
	assert.Equal(t, driver.StatusNoDevice, st)
	_, st = rt.DeviceName(driver.Handle(99))
	assert.Equal(t, driver.StatusNoDevice, st)
	_, st = rt.NodeID(driver.Handle(-3))
	assert.Equal(t, driver.StatusNoDevice, st)
}

func TestLogMessages(t *testing.T) {
	rt, _ := openRuntime(t, testBusConfig())
	require.True(t, rt.Log("run 42 started").Ok())
	require.True(t, rt.Log("run 42 finished").Ok())
	assert.Equal(t, []string{"run 42 started", "run 42 finished"}, rt.LogMessages())
}

func TestErrorMessages(t *testing.T) {
	rt := sim.New(sim.Config{})
	tests := []struct {
		code driver.Status
		want string
	}{
		{driver.StatusOK, "Success"},
		{driver.StatusNoEntry, "No such file or directory"},
		{driver.StatusIO, "I/O error"},
		{driver.StatusAccess, "Permission denied"},
		{driver.StatusBusy, "Device or resource busy"},
		{driver.StatusNoDevice, "No such device"},
		{driver.StatusInvalid, "Invalid argument"},
		{driver.StatusNotSupported, "Operation not supported"},
		{driver.StatusShutdown, "Cannot send after transport endpoint shutdown"},
		{driver.StatusTimedOut, "Connection timed out"},
		{driver.Status(-999), "Unknown error -999"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rt.ErrorMessage(tt.code), "code %d", tt.code.Value())
	}
}

func TestDeviceErrorMessages(t *testing.T) {
	rt, _ := openRuntime(t, testBusConfig())
	ph, st := rt.PumpByName("neMESYS_Low_Pressure_1_Pump")
	require.True(t, st.Ok())

	msg, st := rt.DeviceErrorMessage(ph, 0x2310)
	require.True(t, st.Ok())
	assert.Equal(t, "continuous over current", msg)

	msg, st = rt.DeviceErrorMessage(ph, 0xABCD)
	require.True(t, st.Ok())
	assert.Equal(t, "device error 0xABCD", msg)

	// An injected message wins over the table for the latched code.
	require.True(t, rt.SetFault("neMESYS_Low_Pressure_1_Pump", 0x2310, "plunger blocked"))
	msg, st = rt.DeviceErrorMessage(ph, 0x2310)
	require.True(t, st.Ok())
	assert.Equal(t, "plunger blocked", msg)
}

func TestSetFaultUnknownDevice(t *testing.T) {
	rt, _ := openRuntime(t, testBusConfig())
	assert.False(t, rt.SetFault("no-such-device", 0x1000, ""))
}
