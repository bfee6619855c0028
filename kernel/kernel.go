// Package kernel is the platform-agnostic core: the event loop, the device
// registry and the capability model it dispatches through.
//
// A Kernel alternates between draining every queued platform event and
// sleeping until the next interrupt:
//
//	initializing -> draining -> idle -> draining -> ...
//
// Draining handles one event per iteration. ClockTicked is bookkeeping,
// DeviceConnected moves a device into the registry and DevicePollable calls
// Poll on the registered device.
package kernel

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"eventkernel/bus"
	"eventkernel/errcode"
	"eventkernel/kernel/halt"
	"eventkernel/types"
	"eventkernel/x/timex"
)

// Kernel drains platform events into a device registry and sleeps when
// the queue is empty.
type Kernel[ID comparable, D Device] struct {
	platform Platform[ID, D]
	reg      *Registry[ID, D]

	log    *zap.Logger
	conn   *bus.Connection
	halter *halt.Halter

	state atomic.Value // types.Level
	ticks atomic.Uint64
}

// Option configures a Kernel.
type Option func(*options)

type options struct {
	log    *zap.Logger
	conn   *bus.Connection
	halter *halt.Halter
}

// WithLogger sets the logger; the kernel logs under the name "kernel".
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.log = l } }

// WithTelemetry publishes state, ticks and device arrivals on conn.
func WithTelemetry(conn *bus.Connection) Option { return func(o *options) { o.conn = conn } }

// WithHalter sets where escaping panics are reported.
func WithHalter(h *halt.Halter) Option { return func(o *options) { o.halter = h } }

// New returns a kernel over p. Nothing runs until Start.
func New[ID comparable, D Device](p Platform[ID, D], opts ...Option) *Kernel[ID, D] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if o.halter == nil {
		o.halter = halt.New(o.log, nil)
	}
	k := &Kernel[ID, D]{
		platform: p,
		reg:      NewRegistry[ID, D](),
		log:      o.log.Named("kernel"),
		conn:     o.conn,
		halter:   o.halter,
	}
	k.state.Store(types.Level(""))
	return k
}

// Start initializes the platform and runs the event loop until ctx is
// cancelled. On hardware ctx is never cancelled and Start does not return.
// A panic escaping the loop is reported as a fatal fault.
func (k *Kernel[ID, D]) Start(ctx context.Context) error {
	defer k.halter.Recover()

	k.setState(types.LevelInitializing, "")
	if err := k.platform.Init(ctx); err != nil {
		k.setState(types.LevelStopped, "init_failed")
		return errcode.Wrap(errcode.Error, "kernel.init", err)
	}
	// Devices found during bring-up are registered before the first idle.
	k.Drain()
	k.ClearGraphicsDevices()

	for {
		if ctx.Err() != nil {
			k.setState(types.LevelStopped, "context_cancelled")
			return nil
		}
		k.Drain()
		k.setState(types.LevelIdle, "")
		k.platform.Sleep()
	}
}

// Drain handles every queued event and returns how many it handled.
func (k *Kernel[ID, D]) Drain() int {
	k.setState(types.LevelDraining, "")
	n := 0
	for {
		ev, ok := k.platform.PollEvent()
		if !ok {
			return n
		}
		n++
		k.handle(ev)
	}
}

func (k *Kernel[ID, D]) handle(ev Event[ID, D]) {
	k.log.Debug("platform event", zap.Stringer("kind", ev.Kind))

	switch ev.Kind {
	case KindClockTicked:
		n := k.ticks.Add(1)
		k.log.Debug("tick", zap.Uint64("count", n))
		k.publish(TopicTick(), types.Tick{Count: n, TS: timex.NowMs()}, false)

	case KindDeviceConnected:
		replaced := k.reg.Insert(ev.ID, ev.Device)
		caps := Capabilities(ev.Device)
		id := idString(ev.ID)
		if replaced {
			k.log.Info("device replaced", zap.String("id", id), zap.Strings("capabilities", caps))
		} else {
			k.log.Info("device connected", zap.String("id", id), zap.Strings("capabilities", caps))
		}
		k.publish(topicDevice(ev.ID), types.DeviceInfo{
			ID:           id,
			Capabilities: caps,
			Replaced:     replaced,
			TS:           timex.NowMs(),
		}, true)

	case KindDevicePollable:
		d, ok := k.reg.Device(ev.ID)
		if !ok {
			id := idString(ev.ID)
			k.log.Warn("unknown device ID", zap.String("id", id))
			k.publish(TopicUnknownDevice(), types.UnknownDevice{ID: id, TS: timex.NowMs()}, false)
			return
		}
		d.Poll()

	default:
		k.log.Warn("invalid event", zap.Uint8("kind", uint8(ev.Kind)))
	}
}

// ClearGraphicsDevices clears every registered graphics device and returns
// how many succeeded. Having none is not an error. Failures are logged and
// skipped.
func (k *Kernel[ID, D]) ClearGraphicsDevices() int {
	cleared := 0
	for _, id := range k.reg.GraphicsDevices() {
		d, ok := k.reg.Device(id)
		if !ok {
			continue
		}
		g, ok := d.AsGraphicsDevice()
		if !ok {
			continue
		}
		if err := g.Clear(); err != nil {
			k.log.Warn("graphics clear failed", zap.String("id", idString(id)), zap.Error(err))
			continue
		}
		cleared++
	}
	return cleared
}

// ListFilesystems lists the root of every filesystem device. Devices whose
// listing fails are logged and left out.
func (k *Kernel[ID, D]) ListFilesystems() map[ID][]string {
	out := map[ID][]string{}
	for _, id := range k.reg.FilesystemDevices() {
		d, ok := k.reg.Device(id)
		if !ok {
			continue
		}
		fs, ok := d.AsFilesystem()
		if !ok {
			continue
		}
		names, err := fs.List()
		if err != nil {
			k.log.Warn("filesystem list failed", zap.String("id", idString(id)), zap.Error(err))
			continue
		}
		k.log.Info("filesystem", zap.String("id", idString(id)), zap.Strings("entries", names))
		out[id] = names
	}
	return out
}

func (k *Kernel[ID, D]) Registry() *Registry[ID, D] { return k.reg }
func (k *Kernel[ID, D]) Ticks() uint64              { return k.ticks.Load() }
func (k *Kernel[ID, D]) State() types.Level         { return k.state.Load().(types.Level) }

func (k *Kernel[ID, D]) setState(l types.Level, status string) {
	if k.state.Swap(l).(types.Level) == l {
		return
	}
	k.log.Debug("state", zap.String("level", string(l)))
	k.publish(TopicState(), types.KernelState{Level: l, Status: status, TS: timex.NowMs()}, true)
}

func (k *Kernel[ID, D]) publish(t bus.Topic, payload any, retained bool) {
	if k.conn == nil {
		return
	}
	k.conn.Publish(k.conn.NewMessage(t, payload, retained))
}
