//go:build rp2040

// Package rp2040 runs the kernel on a Raspberry Pi RP2040. The only device
// is the UART0 console; a ticker goroutine stands in for the timer
// interrupt and a receive goroutine for the UART interrupt.
package rp2040

import (
	"context"
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"go.uber.org/zap"

	"eventkernel/errcode"
	"eventkernel/kernel"
	"eventkernel/kernel/halt"
	"eventkernel/mem/phys"
	"eventkernel/services/config"
	"eventkernel/x/ringq"
)

// DeviceID identifies a device on the board.
type DeviceID uint8

const (
	ConsoleID DeviceID = iota + 1
)

func (id DeviceID) String() string {
	switch id {
	case ConsoleID:
		return "uart0-console"
	default:
		return "unknown"
	}
}

type Event = kernel.Event[DeviceID, kernel.Device]

type Platform struct {
	cfg    config.Config
	log    *zap.Logger
	events *ringq.Ring[Event]
	alloc  *phys.Allocator
	uart   *uartx.UART
	con    *Console
	wake   chan struct{}
	done   <-chan struct{}
}

var _ kernel.Platform[DeviceID, kernel.Device] = (*Platform)(nil)

func New(cfg config.Config, log *zap.Logger, h *halt.Halter) *Platform {
	if log == nil {
		log = zap.NewNop()
	}
	cfg.Normalize()
	p := &Platform{
		cfg:    cfg,
		log:    log.Named("platform"),
		events: ringq.New[Event](cfg.Kernel.EventQueueCapacity),
		alloc:  phys.New(log, h),
		uart:   uartx.UART0,
		wake:   make(chan struct{}, 1),
	}
	p.con = newConsole(p.uart, log)
	return p
}

func (p *Platform) Init(ctx context.Context) error {
	regions := p.cfg.Memory.Regions
	p.log.Info("memory", zap.Uint64("total_kib", regions.Total()>>10), zap.Int("regions", len(regions)))
	p.alloc.AddMap(regions)

	if err := p.uart.Configure(uartx.UARTConfig{
		BaudRate: p.cfg.Console.BaudRate,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	}); err != nil {
		return errcode.Wrap(errcode.IOError, "rp2040.uart", err)
	}
	p.done = ctx.Done()
	p.push(kernel.DeviceConnected[DeviceID, kernel.Device](ConsoleID, p.con))

	go p.timer(ctx)
	go p.receive(ctx)
	return nil
}

func (p *Platform) PollEvent() (Event, bool) { return p.events.Poll() }

func (p *Platform) Sleep() {
	select {
	case <-p.wake:
	case <-p.done:
	}
}

func (p *Platform) Allocator() *phys.Allocator { return p.alloc }

// push enqueues ev and wakes the loop, as an interrupt would.
func (p *Platform) push(ev Event) {
	p.events.Push(ev)
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Platform) timer(ctx context.Context) {
	t := time.NewTicker(p.cfg.Kernel.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.push(kernel.ClockTicked[DeviceID, kernel.Device]())
		}
	}
}

func (p *Platform) receive(ctx context.Context) {
	buf := make([]byte, 32)
	for {
		n, err := p.uart.RecvSomeContext(ctx, buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.log.Warn("uart receive failed", zap.Error(err))
			continue
		}
		for _, b := range buf[:n] {
			p.con.rx.Push(b)
		}
		if n > 0 {
			p.push(kernel.DevicePollable[DeviceID, kernel.Device](ConsoleID))
		}
	}
}
