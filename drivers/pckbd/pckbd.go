// Package pckbd drives the PC keyboard controller. Each poll reads one scan
// code from the data port, decodes it and queues the resulting key event.
package pckbd

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"eventkernel/kernel"
	"eventkernel/x/ringq"
)

// Controller ports.
const (
	PortData   = 0x60
	PortStatus = 0x64
)

// StatusOutputFull is set in the status register while the data port holds
// an unread byte.
const StatusOutputFull = 0x01

// DefaultQueueLen bounds the key events kept for readers.
const DefaultQueueLen = 64

// Port is the controller's data and status register pair.
type Port interface {
	In() uint8
	Status() uint8
}

// Keyboard is the keyboard controller device.
type Keyboard struct {
	kernel.NoCapabilities

	port Port
	dec  Decoder
	keys *ringq.Ring[KeyEvent]
	log  *zap.Logger

	spurious atomic.Uint64
}

func New(port Port, queueLen int, log *zap.Logger) *Keyboard {
	if queueLen <= 0 {
		queueLen = DefaultQueueLen
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Keyboard{
		port: port,
		keys: ringq.New[KeyEvent](queueLen),
		log:  log.Named("pckbd"),
	}
}

// Poll reads and decodes a single scan code. An interrupt whose byte was
// already consumed or lost leaves the output buffer empty; nothing is read.
func (k *Keyboard) Poll() {
	if k.port.Status()&StatusOutputFull == 0 {
		k.spurious.Add(1)
		k.log.Debug("keyboard output buffer empty")
		return
	}
	sc := k.port.In()
	k.log.Info("keyboard scancode", zap.String("scancode", fmt.Sprintf("%#x", sc)))

	ev, ok := k.dec.Feed(sc)
	if !ok {
		return
	}
	k.keys.Push(ev)
}

// ReadKey returns the oldest queued key event.
func (k *Keyboard) ReadKey() (KeyEvent, bool) { return k.keys.Poll() }

// Dropped is the number of key events lost to queue overflow.
func (k *Keyboard) Dropped() uint64 { return k.keys.Overwritten() }

// Spurious is the number of polls that found no scan code to read.
func (k *Keyboard) Spurious() uint64 { return k.spurious.Load() }

func (k *Keyboard) String() string { return "pc-keyboard" }
