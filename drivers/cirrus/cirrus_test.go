package cirrus

import (
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
	"tinygo.org/x/drivers"

	"eventkernel/drivers/pci"
	"eventkernel/errcode"
	"eventkernel/kernel"
)

func TestClearZeroesEveryPixel(t *testing.T) {
	fb := NewFramebuffer(8, 6, nil)
	for i := range fb.Bytes() {
		fb.Bytes()[i] = 0xaa
	}
	d := New(pci.Address{Slot: 2}, 0xfd000000, fb, nil)

	g, ok := d.AsGraphicsDevice()
	require.True(t, ok)
	require.NoError(t, g.Clear())

	for i, b := range fb.Bytes() {
		if b != 0 {
			t.Fatalf("byte %d = %#x after clear", i, b)
		}
	}
	_, ok = d.AsFilesystem()
	require.False(t, ok)
}

func TestFramebufferBGRA(t *testing.T) {
	fb := NewFramebuffer(2, 2, nil)
	fb.SetPixel(1, 1, color.RGBA{R: 1, G: 2, B: 3, A: 4})
	require.Equal(t, []byte{3, 2, 1, 4}, fb.Bytes()[12:16])
	require.Equal(t, color.RGBA{R: 1, G: 2, B: 3, A: 4}, fb.Pixel(1, 1))

	fb.SetPixel(2, 0, color.RGBA{R: 9}) // out of bounds is ignored
	require.Equal(t, color.RGBA{}, fb.Pixel(2, 0))
}

type failingDisplay struct{ *Framebuffer }

func (failingDisplay) Display() error { return errors.New("scanout stalled") }

func TestClearDisplayError(t *testing.T) {
	d := New(pci.Address{}, 0x1000, failingDisplay{NewFramebuffer(1, 1, nil)}, nil)
	err := d.Clear()
	require.Equal(t, errcode.IOError, errcode.Of(err))

	d.Poll()
	require.Zero(t, d.Frames())
}

func TestPollPresents(t *testing.T) {
	d := New(pci.Address{}, 0x1000, NewFramebuffer(1, 1, nil), nil)
	d.Poll()
	d.Poll()
	require.EqualValues(t, 2, d.Frames())
}

func TestDriverReadsBAR0(t *testing.T) {
	bus := pci.NewSimBus()
	bus.Plug(pci.Address{Slot: 2}, pci.Function{Vendor: VendorID, Device: DeviceID, BAR0: 0xfd000008})

	var mapped uint32
	drv := Driver(func(base uint32) (drivers.Displayer, error) {
		mapped = base
		return NewFramebuffer(4, 4, nil), nil
	}, nil)

	var got []kernel.Device
	n := pci.Discover(bus, []pci.Driver[kernel.Device]{drv}, nil, func(_ pci.Address, d kernel.Device) {
		got = append(got, d)
	})
	require.Equal(t, 1, n)
	require.EqualValues(t, 0xfd000000, mapped, "BAR flag bits are masked")
	require.Equal(t, uint32(0xfd000000), got[0].(*Device).Framebuffer())
}

func TestDriverUnassignedBAR(t *testing.T) {
	bus := pci.NewSimBus()
	bus.Plug(pci.Address{}, pci.Function{Vendor: VendorID, Device: DeviceID})
	drv := Driver(func(uint32) (drivers.Displayer, error) { return NewFramebuffer(1, 1, nil), nil }, nil)

	_, err := drv.Build(bus, pci.Address{})
	require.Equal(t, errcode.ProtocolError, errcode.Of(err))
}
