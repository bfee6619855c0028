package host

import (
	"sync/atomic"

	"go.uber.org/zap"

	"eventkernel/x/spin"
)

// Lines is the number of interrupt request lines.
const Lines = 16

const (
	IRQTimer      uint8 = 0
	IRQKeyboard   uint8 = 1
	IRQFilesystem uint8 = 11
)

// Controller simulates an interrupt controller. Raise runs the line's
// handler in interrupt context: handlers are serialized, must not block and
// are followed by an end-of-interrupt and a processor wake-up.
type Controller struct {
	lock     spin.Lock
	handlers [Lines]func()
	eoi      atomic.Uint64
	wake     chan struct{}
	log      *zap.Logger
}

func NewController(log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{wake: make(chan struct{}, 1), log: log.Named("irq")}
}

// Handle installs fn for line. Install handlers before raising the line.
func (c *Controller) Handle(line uint8, fn func()) {
	c.lock.Acquire()
	c.handlers[line%Lines] = fn
	c.lock.Release()
}

// Raise delivers an interrupt on line.
func (c *Controller) Raise(line uint8) {
	c.lock.Acquire()
	var fn func()
	if line < Lines {
		fn = c.handlers[line]
	}
	if fn != nil {
		fn()
	} else {
		c.log.Warn("unknown IRQ", zap.Uint8("irq", line))
	}
	c.eoi.Add(1)
	c.lock.Release()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Wait halts until the next interrupt or until done is closed.
func (c *Controller) Wait(done <-chan struct{}) {
	select {
	case <-c.wake:
	case <-done:
	}
}

// EOIs counts acknowledged interrupts.
func (c *Controller) EOIs() uint64 { return c.eoi.Load() }
