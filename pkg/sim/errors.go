package sim

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/labbus-project/labbus-go/pkg/driver"
)

// ErrorMessage translates a status code the way the C library's strerror
// does. Unknown codes yield a generic message; success codes yield
// "Success".
func (r *Runtime) ErrorMessage(code driver.Status) string {
	if code.Ok() {
		return "Success"
	}
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
	case driver.StatusNotSupported:
		return "Operation not supported"
	case driver.StatusShutdown:
		return "Cannot send after transport endpoint shutdown"
	case driver.StatusTimedOut:
		return "Connection timed out"
	default:
		return fmt.Sprintf("Unknown error %d", code.Value())
	}
}

// faultText translates a device fault code. The table follows the CANopen
// emergency error code groups.
func faultText(code driver.DeviceErrorCode) string {
	switch code {
	case 0x0000:
		return "no error"
	case 0x1000:
		return "generic error"
	case 0x2310:
		return "continuous over current"
	case 0x3210:
		return "supply over voltage"
	case 0x3220:
		return "supply under voltage"
	case 0x4310:
		return "drive over temperature"
	case 0x6100:
		return "internal software error"
	case 0x7305:
		return "position sensor fault"
	case 0x8110:
		return "CAN overrun, messages lost"
	case 0x8130:
		return "heartbeat error"
	case 0x8611:
		return "following error, load blocked"
	default:
		return fmt.Sprintf("device error 0x%04X", uint32(code))
	}
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
