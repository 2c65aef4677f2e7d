package bus

import (
	"fmt"
	"sync"

	"github.com/labbus-project/labbus-go/pkg/driver"
	"github.com/labbus-project/labbus-go/pkg/trace"
)

// fakeRuntime is a scriptable runtime. Every operation returns StatusOK
// unless a failure is scripted with fail(). Calls are recorded by name.
type fakeRuntime struct {
	mu       sync.Mutex
	statuses map[string]driver.Status
	calls    []string

	logged    []string
	name      string
	nodeID    int
	faultCode driver.DeviceErrorCode
	faultText string
	props     map[driver.PropertyID]float64
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		statuses: make(map[string]driver.Status),
		props:    make(map[driver.PropertyID]float64),
		name:     "fake-device",
		nodeID:   3,
	}
}

// fail scripts op to return st instead of StatusOK.
func (f *fakeRuntime) fail(op string, st driver.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[op] = st
}

func (f *fakeRuntime) status(op string) driver.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	if st, ok := f.statuses[op]; ok {
		return st
	}
	return driver.StatusOK
}

func (f *fakeRuntime) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, c := range f.calls {
		if c == op {
			count++
		}
	}
	return count
}

func (f *fakeRuntime) Open(configPath string) driver.Status { return f.status("Open") }
func (f *fakeRuntime) Start() driver.Status                 { return f.status("Start") }
func (f *fakeRuntime) Stop() driver.Status                  { return f.status("Stop") }
func (f *fakeRuntime) Close() driver.Status                 { return f.status("Close") }

func (f *fakeRuntime) Log(message string) driver.Status {
	st := f.status("Log")
	if st.Ok() {
		f.mu.Lock()
		f.logged = append(f.logged, message)
		f.mu.Unlock()
	}
	return st
}

func (f *fakeRuntime) ErrorMessage(code driver.Status) string {
	switch code {
	case driver.StatusNoEntry:
		return "No such file or directory"
	case driver.StatusIO:
		return "I/O error"
	case driver.StatusAccess:
		return "Permission denied"
	case driver.StatusBusy:
		return "Device or resource busy"
	case driver.StatusNoDevice:
		return "No such device"
	case driver.StatusInvalid:
		return "Invalid argument"
	default:
		return fmt.Sprintf("error %d", code.Value())
	}
}

func (f *fakeRuntime) DeviceName(h driver.Handle) (string, driver.Status) {
	return f.name, f.status("DeviceName")
}

func (f *fakeRuntime) LastDeviceError(h driver.Handle) (driver.DeviceErrorCode, driver.Status) {
	return f.faultCode, f.status("LastDeviceError")
}

func (f *fakeRuntime) DeviceErrorMessage(h driver.Handle, code driver.DeviceErrorCode) (string, driver.Status) {
	return f.faultText, f.status("DeviceErrorMessage")
}

func (f *fakeRuntime) SetCommState(h driver.Handle, state driver.CommState) driver.Status {
	return f.status("SetCommState")
}

func (f *fakeRuntime) NodeID(h driver.Handle) (int, driver.Status) {
	return f.nodeID, f.status("NodeID")
}

func (f *fakeRuntime) SetDeviceProperty(h driver.Handle, id driver.PropertyID, value float64) driver.Status {
	st := f.status("SetDeviceProperty")
	if st.Ok() {
		f.mu.Lock()
		f.props[id] = value
		f.mu.Unlock()
	}
	return st
}

func (f *fakeRuntime) DeviceProperty(h driver.Handle, id driver.PropertyID) (float64, driver.Status) {
	st := f.status("DeviceProperty")
	f.mu.Lock()
	value := f.props[id]
	f.mu.Unlock()
	return value, st
}

// Compile-time interface satisfaction check.
var _ driver.Runtime = (*fakeRuntime)(nil)

// recordingTracer captures trace events for assertions.
type recordingTracer struct {
	mu     sync.Mutex
	events []trace.Event
}

func (r *recordingTracer) Log(event trace.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// byCategory returns the captured events of one category, in order.
func (r *recordingTracer) byCategory(cat trace.Category) []trace.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []trace.Event
	for _, e := range r.events {
		if e.Category == cat {
			out = append(out, e)
		}
	}
	return out
}
