package driver

// CommState is a device communication state on the bus. The encodings are
// bit-exact with the runtime ABI (CANopen NMT command specifiers) and must
// not be renumbered.
//
// The runtime enforces which transitions are legal; this layer only forwards
// the requested target state.
type CommState uint8

const (
	// CommStateOperational is the normal working state. Process data is
	// exchanged and dosing commands are accepted.
	CommStateOperational CommState = 0x01

	// CommStateStopped halts all communication with the device.
	CommStateStopped CommState = 0x02

	// CommStateConfigurable allows writing parameters that are read-only
	// while operational. Return to CommStateOperational when done.
	CommStateConfigurable CommState = 0x80
)

// String returns the communication state name.
func (s CommState) String() string {
	switch s {
	case CommStateOperational:
		return "OPERATIONAL"
	case CommStateStopped:
		return "STOPPED"
	case CommStateConfigurable:
		return "CONFIGURABLE"
	default:
		return "UNKNOWN"
	}
}

// Prefix is a decimal unit prefix tag. Values are the decimal exponents used
// on the wire and are passed through to the runtime untouched.
type Prefix int

const (
	PrefixUnit  Prefix = 0
	PrefixDeci  Prefix = -1
	PrefixCenti Prefix = -2
	PrefixMilli Prefix = -3
	PrefixMicro Prefix = -6
)

// String returns the prefix name.
func (p Prefix) String() string {
	switch p {
	case PrefixUnit:
		return "UNIT"
	case PrefixDeci:
		return "DECI"
	case PrefixCenti:
		return "CENTI"
	case PrefixMilli:
		return "MILLI"
	case PrefixMicro:
		return "MICRO"
	default:
		return "UNKNOWN"
	}
}

// TimeUnit is a flow time base tag. Values are the number of seconds in the
// time base and are passed through to the runtime untouched.
type TimeUnit int

const (
	PerSecond TimeUnit = 1
	PerMinute TimeUnit = 60
	PerHour   TimeUnit = 3600
)

// String returns the time unit name.
func (t TimeUnit) String() string {
	switch t {
	case PerSecond:
		return "PER_SECOND"
	case PerMinute:
		return "PER_MINUTE"
	case PerHour:
		return "PER_HOUR"
	default:
		return "UNKNOWN"
	}
}

// VolumeUnit is a volume unit tag with the runtime's fixed encoding.
type VolumeUnit int

const (
	// Litres is the only volume unit the runtime defines; scale is
	// selected through Prefix.
	Litres VolumeUnit = 68
)

// String returns the volume unit name.
func (v VolumeUnit) String() string {
	switch v {
	case Litres:
		return "LITRES"
	default:
		return "UNKNOWN"
	}
}
