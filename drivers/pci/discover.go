package pci

import (
	"fmt"

	"go.uber.org/zap"
)

// Driver binds a (vendor, device) pair to a constructor. A nil Build marks
// a known device that has no driver yet; it is skipped quietly.
type Driver[D any] struct {
	Vendor uint16
	Device uint16
	Name   string
	Build  func(cs ConfigSpace, a Address) (D, error)
}

// Found describes one populated slot.
type Found struct {
	Addr   Address
	Vendor uint16
	Device uint16
	Name   string // empty when no table entry matched
}

func (f Found) String() string {
	name := f.Name
	if name == "" {
		name = "unknown"
	}
	return fmt.Sprintf("%s %04x:%04x %s", f.Addr, f.Vendor, f.Device, name)
}

// Scan lists every populated function 0 on the bus.
func Scan(cs ConfigSpace) []Found {
	var out []Found
	for bus := 0; bus < MaxBus; bus++ {
		for slot := 0; slot < MaxSlot; slot++ {
			a := Address{Bus: uint8(bus), Slot: uint8(slot)}
			vendor := ReadWord(cs, a, 0, OffVendor)
			if vendor == VendorNone {
				continue
			}
			out = append(out, Found{Addr: a, Vendor: vendor, Device: ReadWord(cs, a, 0, OffDevice)})
		}
	}
	return out
}

// Discover scans the bus and calls emit for every device a driver in table
// was built for. Unknown devices are logged. It returns the number emitted.
func Discover[D any](cs ConfigSpace, table []Driver[D], log *zap.Logger, emit func(Address, D)) int {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("pci")

	n := 0
	for _, f := range Scan(cs) {
		drv, ok := lookup(table, f.Vendor, f.Device)
		if !ok {
			log.Info("unknown PCI device",
				zap.Stringer("addr", f.Addr),
				zap.String("vendor", fmt.Sprintf("%#04x", f.Vendor)),
				zap.String("device", fmt.Sprintf("%#04x", f.Device)))
			continue
		}
		if drv.Build == nil {
			log.Debug("no driver", zap.Stringer("addr", f.Addr), zap.String("name", drv.Name))
			continue
		}
		d, err := drv.Build(cs, f.Addr)
		if err != nil {
			log.Warn("driver build failed", zap.Stringer("addr", f.Addr), zap.String("name", drv.Name), zap.Error(err))
			continue
		}
		log.Info("PCI device", zap.Stringer("addr", f.Addr), zap.String("name", drv.Name))
		emit(f.Addr, d)
		n++
	}
	return n
}

// Identify fills in Name for every entry of found that matches table.
func Identify[D any](found []Found, table []Driver[D]) []Found {
	out := make([]Found, len(found))
	for i, f := range found {
		if drv, ok := lookup(table, f.Vendor, f.Device); ok {
			f.Name = drv.Name
		}
		out[i] = f
	}
	return out
}

func lookup[D any](table []Driver[D], vendor, device uint16) (Driver[D], bool) {
	for _, d := range table {
		if d.Vendor == vendor && d.Device == device {
			return d, true
		}
	}
	return Driver[D]{}, false
}
