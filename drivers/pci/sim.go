package pci

// Function is the configuration header of a simulated device.
type Function struct {
	Vendor uint16
	Device uint16
	BAR0   uint32
}

// SimBus is a ConfigSpace backed by a table of plugged devices. Only
// function 0 is populated. It is not safe for concurrent Plug and reads.
type SimBus struct {
	slots map[Address]Function
}

func NewSimBus() *SimBus { return &SimBus{slots: map[Address]Function{}} }

// Plug places f at a, replacing whatever was there.
func (b *SimBus) Plug(a Address, f Function) { b.slots[a] = f }

func (b *SimBus) ReadConfig(address uint32) uint32 {
	if address&0x80000000 == 0 {
		return 0xffffffff
	}
	a := Address{Bus: uint8(address >> 16), Slot: uint8(address>>11) & 0x1f}
	function := uint8(address>>8) & 0x07
	offset := uint8(address) & 0xfc

	f, ok := b.slots[a]
	if !ok || function != 0 {
		return 0xffffffff
	}
	switch offset {
	case OffVendor:
		return uint32(f.Device)<<16 | uint32(f.Vendor)
	case OffBAR0:
		return f.BAR0
	default:
		return 0
	}
}
