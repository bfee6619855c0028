// Package cirrus drives the Cirrus Logic GD5446 display controller exposed by
// emulators at PCI 1234:1111. The linear framebuffer lives at BAR0 and holds
// 32-bit BGRA pixels.
package cirrus

import (
	"fmt"
	"image/color"

	"go.uber.org/zap"
	"tinygo.org/x/drivers"

	"eventkernel/drivers/pci"
	"eventkernel/errcode"
	"eventkernel/kernel"
)

const (
	VendorID = 0x1234
	DeviceID = 0x1111

	DefaultWidth  = 1024
	DefaultHeight = 768
)

// Device is a GD5446 whose framebuffer is reached through a Displayer.
type Device struct {
	addr   pci.Address
	fbBase uint32
	disp   drivers.Displayer
	log    *zap.Logger
	frames uint64
}

func New(addr pci.Address, fbBase uint32, disp drivers.Displayer, log *zap.Logger) *Device {
	if log == nil {
		log = zap.NewNop()
	}
	return &Device{addr: addr, fbBase: fbBase, disp: disp, log: log.Named("cirrus")}
}

// Driver returns the PCI table entry for the GD5446. mapFB maps the BAR0
// physical address to a Displayer over the framebuffer.
func Driver(mapFB func(base uint32) (drivers.Displayer, error), log *zap.Logger) pci.Driver[kernel.Device] {
	return pci.Driver[kernel.Device]{
		Vendor: VendorID,
		Device: DeviceID,
		Name:   "cirrus5446",
		Build: func(cs pci.ConfigSpace, a pci.Address) (kernel.Device, error) {
			base := pci.ReadDword(cs, a, 0, pci.OffBAR0) &^ 0xf
			if base == 0 {
				return nil, errcode.New(errcode.ProtocolError, "cirrus.build", "BAR0 unassigned")
			}
			disp, err := mapFB(base)
			if err != nil {
				return nil, errcode.Wrap(errcode.IOError, "cirrus.build", err)
			}
			return New(a, base, disp, log), nil
		},
	}
}

func (d *Device) Addr() pci.Address   { return d.addr }
func (d *Device) Framebuffer() uint32 { return d.fbBase }
func (d *Device) Frames() uint64      { return d.frames }
func (d *Device) String() string      { return fmt.Sprintf("cirrus5446@%s fb=%#x", d.addr, d.fbBase) }

// Poll presents the current frame.
func (d *Device) Poll() {
	if err := d.disp.Display(); err != nil {
		d.log.Warn("display failed", zap.Error(err))
		return
	}
	d.frames++
}

func (d *Device) AsFilesystem() (kernel.Filesystem, bool)         { return nil, false }
func (d *Device) AsGraphicsDevice() (kernel.GraphicsDevice, bool) { return d, true }

// Clear sets every pixel to transparent black and presents the frame.
func (d *Device) Clear() error {
	w, h := d.disp.Size()
	if w <= 0 || h <= 0 {
		return errcode.New(errcode.OutOfRange, "cirrus.clear", fmt.Sprintf("framebuffer %dx%d", w, h))
	}
	var black color.RGBA
	for x := int16(0); x < w; x++ {
		for y := int16(0); y < h; y++ {
			d.disp.SetPixel(x, y, black)
		}
	}
	if err := d.disp.Display(); err != nil {
		return errcode.Wrap(errcode.IOError, "cirrus.clear", err)
	}
	d.log.Debug("cleared", zap.Int16("width", w), zap.Int16("height", h))
	return nil
}
