package kernel

// EventKind discriminates Event.
type EventKind uint8

const (
	// KindClockTicked: the periodic timer fired.
	KindClockTicked EventKind = iota + 1
	// KindDeviceConnected: a device was discovered; the event owns it until
	// the kernel moves it into the registry.
	KindDeviceConnected
	// KindDevicePollable: the device with ID has pending work.
	KindDevicePollable
)

func (k EventKind) String() string {
	switch k {
	case KindClockTicked:
		return "clock_ticked"
	case KindDeviceConnected:
		return "device_connected"
	case KindDevicePollable:
		return "device_pollable"
	default:
		return "invalid"
	}
}

// Event is a platform event. Only the fields relevant to Kind are set; use
// the constructors below rather than composite literals.
type Event[ID comparable, D Device] struct {
	Kind   EventKind
	ID     ID
	Device D
}

func ClockTicked[ID comparable, D Device]() Event[ID, D] {
	return Event[ID, D]{Kind: KindClockTicked}
}

func DeviceConnected[ID comparable, D Device](id ID, d D) Event[ID, D] {
	return Event[ID, D]{Kind: KindDeviceConnected, ID: id, Device: d}
}

func DevicePollable[ID comparable, D Device](id ID) Event[ID, D] {
	return Event[ID, D]{Kind: KindDevicePollable, ID: id}
}
