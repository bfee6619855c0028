package host

import (
	"eventkernel/drivers/pci"
)

// Kind is the device family part of a DeviceID.
type Kind uint8

const (
	KindKeyboard Kind = iota + 1
	KindGraphics
	KindFilesystem
)

// DeviceID identifies a device on the host platform. PCI is only set for
// bus-discovered devices.
type DeviceID struct {
	Kind Kind
	PCI  pci.Address
}

var (
	KeyboardID   = DeviceID{Kind: KindKeyboard}
	FilesystemID = DeviceID{Kind: KindFilesystem}
)

func (id DeviceID) String() string {
	switch id.Kind {
	case KindKeyboard:
		return "pc-keyboard"
	case KindGraphics:
		return "cirrus5446@" + id.PCI.String()
	case KindFilesystem:
		return "filesystem"
	default:
		return "unknown@" + id.PCI.String()
	}
}
