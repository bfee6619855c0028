// Package host is a Platform that runs the kernel as an ordinary process.
// It simulates the parts of a PC the kernel talks to: an interrupt
// controller with a periodic timer on IRQ0, the keyboard controller data
// port on IRQ1, a PCI configuration space and linear framebuffers. An
// optional host directory stands in for the boot filesystem.
package host

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"tinygo.org/x/drivers"

	"eventkernel/drivers/cirrus"
	"eventkernel/drivers/hostfs"
	"eventkernel/drivers/pci"
	"eventkernel/drivers/pckbd"
	"eventkernel/errcode"
	"eventkernel/kernel"
	"eventkernel/kernel/halt"
	"eventkernel/mem/phys"
	"eventkernel/services/config"
	"eventkernel/x/ringq"
)

// Event is the host platform's event type.
type Event = kernel.Event[DeviceID, kernel.Device]

type Platform struct {
	cfg    config.Config
	log    *zap.Logger
	halter *halt.Halter

	events *ringq.Ring[Event]
	irq    *Controller
	alloc  *phys.Allocator
	bus    *pci.SimBus
	port   *dataPort

	keyboard *pckbd.Keyboard
	fs       *hostfs.Device

	mu  sync.Mutex
	fbs map[uint32]*cirrus.Framebuffer

	g    *errgroup.Group
	done <-chan struct{}
}

var _ kernel.Platform[DeviceID, kernel.Device] = (*Platform)(nil)

// New builds the platform's devices. Nothing runs until Init.
func New(cfg config.Config, log *zap.Logger, h *halt.Halter) *Platform {
	if log == nil {
		log = zap.NewNop()
	}
	if h == nil {
		h = halt.New(log, nil)
	}
	cfg.Normalize()

	p := &Platform{
		cfg:    cfg,
		log:    log.Named("platform"),
		halter: h,
		events: ringq.New[Event](cfg.Kernel.EventQueueCapacity),
		irq:    NewController(log),
		alloc:  phys.New(log, h),
		bus:    pci.NewSimBus(),
		port:   newDataPort(),
		fbs:    map[uint32]*cirrus.Framebuffer{},
	}
	for _, d := range cfg.PCI.Devices {
		p.bus.Plug(pci.Address{Bus: d.Bus, Slot: d.Slot}, pci.Function{Vendor: d.Vendor, Device: d.Device, BAR0: d.BAR0})
	}
	if cfg.Keyboard.Enabled {
		p.keyboard = pckbd.New(p.port, cfg.Keyboard.QueueLen, log)
	}
	if cfg.Filesystem.Root != "" {
		p.fs = hostfs.New(cfg.Filesystem.Root, p.alloc, log)
	}
	return p
}

// Init brings the platform up: memory, interrupt handlers, statically known
// devices, PCI discovery and the timer. Devices are announced through the
// event queue.
func (p *Platform) Init(ctx context.Context) error {
	regions := p.cfg.Memory.Regions
	p.log.Info("memory", zap.Uint64("total_mib", regions.TotalMiB()), zap.Int("regions", len(regions)))
	if bound := p.alloc.AddMap(regions); bound < len(regions) {
		p.log.Warn("some memory regions were not usable", zap.Int("bound", bound), zap.Int("reported", len(regions)))
	}

	p.irq.Handle(IRQTimer, func() { p.events.Push(kernel.ClockTicked[DeviceID, kernel.Device]()) })

	if p.keyboard != nil {
		p.irq.Handle(IRQKeyboard, func() { p.events.Push(kernel.DevicePollable[DeviceID, kernel.Device](KeyboardID)) })
		p.Push(kernel.DeviceConnected[DeviceID, kernel.Device](KeyboardID, p.keyboard))
	}

	n := pci.Discover(p.bus, p.drivers(), p.log, func(a pci.Address, d kernel.Device) {
		p.Push(kernel.DeviceConnected(DeviceID{Kind: KindGraphics, PCI: a}, d))
	})
	p.log.Debug("pci discovery done", zap.Int("devices", n))

	g, gctx := errgroup.WithContext(ctx)
	p.g = g
	p.done = gctx.Done()

	if p.fs != nil {
		p.irq.Handle(IRQFilesystem, func() { p.events.Push(kernel.DevicePollable[DeviceID, kernel.Device](FilesystemID)) })
		p.Push(kernel.DeviceConnected[DeviceID, kernel.Device](FilesystemID, p.fs))
		if p.cfg.Filesystem.Watch {
			if err := p.fs.Watch(gctx, func() { p.irq.Raise(IRQFilesystem) }); err != nil {
				return errcode.Wrap(errcode.IOError, "host.init", err)
			}
		}
	}

	interval := p.cfg.Kernel.TickInterval
	g.Go(func() error {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				p.irq.Raise(IRQTimer)
			}
		}
	})
	return nil
}

func (p *Platform) drivers() []pci.Driver[kernel.Device] {
	return []pci.Driver[kernel.Device]{
		cirrus.Driver(p.mapFramebuffer, p.log),
		{Vendor: 0x1033, Device: 0x0194, Name: "xhci"},
	}
}

func (p *Platform) mapFramebuffer(base uint32) (drivers.Displayer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fb, ok := p.fbs[base]
	if !ok {
		fb = cirrus.NewFramebuffer(int16(p.cfg.Graphics.Width), int16(p.cfg.Graphics.Height), nil)
		p.fbs[base] = fb
	}
	return fb, nil
}

// PollEvent implements kernel.Platform.
func (p *Platform) PollEvent() (Event, bool) { return p.events.Poll() }

// Sleep implements kernel.Platform. It also returns once the context given
// to Init is done.
func (p *Platform) Sleep() { p.irq.Wait(p.done) }

// Push enqueues an event as an interrupt handler would.
func (p *Platform) Push(ev Event) { p.events.Push(ev) }

// Close waits for the background workers started by Init. Cancel the Init
// context first.
func (p *Platform) Close() error {
	var err error
	if p.g != nil {
		err = p.g.Wait()
	}
	if p.fs != nil {
		if cerr := p.fs.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// InjectScancode places sc in the keyboard data port and raises IRQ1.
func (p *Platform) InjectScancode(sc uint8) {
	p.port.put(sc)
	p.irq.Raise(IRQKeyboard)
}

// TypeRune injects the scan codes that type r. It reports false when r has
// no key on the keyboard.
func (p *Platform) TypeRune(r rune) bool {
	seq, ok := pckbd.Encode(r)
	if !ok {
		return false
	}
	for _, sc := range seq {
		p.InjectScancode(sc)
	}
	return true
}

// Exception delivers a processor exception.
func (p *Platform) Exception(v halt.Vector, errorCode uint64, frame string) {
	p.halter.Exception(v, errorCode, frame)
}

func (p *Platform) Controller() *Controller              { return p.irq }
func (p *Platform) Allocator() *phys.Allocator           { return p.alloc }
func (p *Platform) PCI() pci.ConfigSpace                 { return p.bus }
func (p *Platform) Keyboard() *pckbd.Keyboard            { return p.keyboard }
func (p *Platform) Filesystem() *hostfs.Device           { return p.fs }
func (p *Platform) QueueOverflows() uint64               { return p.events.Overwritten() }
func (p *Platform) KeyboardOverruns() uint64             { return p.port.buf.Overwritten() }
func (p *Platform) Drivers() []pci.Driver[kernel.Device] { return p.drivers() }

// Framebuffer returns the framebuffer mapped at base, if any.
func (p *Platform) Framebuffer(base uint32) (*cirrus.Framebuffer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fb, ok := p.fbs[base]
	return fb, ok
}

// dataPortLen is the keyboard controller's output buffer depth. A burst
// longer than this overwrites the oldest scan codes.
const dataPortLen = 16

// dataPort is the keyboard controller's output buffer.
type dataPort struct {
	buf *ringq.Ring[uint8]
}

func newDataPort() *dataPort { return &dataPort{buf: ringq.New[uint8](dataPortLen)} }

func (d *dataPort) put(b uint8) { d.buf.Push(b) }

// In returns the next buffered byte, or 0 when the buffer is empty.
func (d *dataPort) In() uint8 {
	b, _ := d.buf.Poll()
	return b
}

// Status reports pckbd.StatusOutputFull while a byte is buffered.
func (d *dataPort) Status() uint8 {
	if d.buf.Len() == 0 {
		return 0
	}
	return pckbd.StatusOutputFull
}
