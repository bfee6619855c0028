// Package pci reads PCI configuration space through the legacy
// address/data port pair and matches discovered functions against a
// (vendor, device) driver table.
package pci

import "fmt"

// Legacy configuration mechanism ports.
const (
	PortConfigAddress = 0xcf8
	PortConfigData    = 0xcfc
)

// Configuration space offsets.
const (
	OffVendor = 0x00
	OffDevice = 0x02
	OffBAR0   = 0x10
)

// VendorNone is read back from an empty slot.
const VendorNone = 0xffff

const (
	MaxBus  = 256
	MaxSlot = 32
)

// ConfigSpace performs one configuration read: the address is written to
// PortConfigAddress and the result read from PortConfigData.
type ConfigSpace interface {
	ReadConfig(address uint32) uint32
}

// Address locates a device on the bus.
type Address struct {
	Bus  uint8
	Slot uint8
}

func (a Address) String() string { return fmt.Sprintf("%02x:%02x", a.Bus, a.Slot) }

// ConfigAddress encodes a configuration space address with the enable bit
// set.
func (a Address) ConfigAddress(function, offset uint8) uint32 {
	return 0x80000000 |
		uint32(a.Bus)<<16 |
		uint32(a.Slot&0x1f)<<11 |
		uint32(function&0x07)<<8 |
		uint32(offset)
}

// ReadDword reads the 32-bit register at offset.
func ReadDword(cs ConfigSpace, a Address, function, offset uint8) uint32 {
	return cs.ReadConfig(a.ConfigAddress(function, offset))
}

// ReadWord reads the 16-bit half of the aligned dword selected by offset.
func ReadWord(cs ConfigSpace, a Address, function, offset uint8) uint16 {
	dword := ReadDword(cs, a, function, offset&0xfc)
	return uint16(dword >> ((offset & 2) * 8))
}
