package kernel

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"eventkernel/bus"
	"eventkernel/errcode"
	"eventkernel/kernel/halt"
	"eventkernel/types"
	"eventkernel/x/ringq"
)

func TestMain(m *testing.M) { goleak.VerifyTestMain(m) }

// ---- fakes ----

type testDev struct {
	polls  int
	clears int
	onPoll func()
	fs     Filesystem
	gfx    bool
	gfxErr error
}

func (d *testDev) Poll() {
	d.polls++
	if d.onPoll != nil {
		d.onPoll()
	}
}

func (d *testDev) AsFilesystem() (Filesystem, bool) { return d.fs, d.fs != nil }

func (d *testDev) AsGraphicsDevice() (GraphicsDevice, bool) {
	if !d.gfx {
		return nil, false
	}
	return gfxView{d}, true
}

type gfxView struct{ d *testDev }

func (g gfxView) Clear() error {
	if g.d.gfxErr != nil {
		return g.d.gfxErr
	}
	g.d.clears++
	return nil
}

type listFS struct {
	entries []string
	err     error
}

func (f listFS) List() ([]string, error)     { return f.entries, f.err }
func (f listFS) Read(string) ([]byte, error) { return nil, errcode.Unsupported }
func (f listFS) Open(string) (File, error)   { return nil, errcode.Unsupported }

type ev = Event[string, *testDev]

type fakePlatform struct {
	q       *ringq.Ring[ev]
	boot    []ev
	initErr error
	sleeps  int
	onSleep func()
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{q: ringq.New[ev](8)}
}

func (p *fakePlatform) Init(context.Context) error {
	if p.initErr != nil {
		return p.initErr
	}
	for _, e := range p.boot {
		p.q.Push(e)
	}
	return nil
}

func (p *fakePlatform) PollEvent() (ev, bool) { return p.q.Poll() }

func (p *fakePlatform) Sleep() {
	p.sleeps++
	if p.onSleep != nil {
		p.onSleep()
	}
}

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// ---- tests ----

func TestDispatchConnectThenPoll(t *testing.T) {
	p := newFakePlatform()
	k := New[string, *testDev](p)
	d := &testDev{}

	p.q.Push(DeviceConnected("kbd", d))
	p.q.Push(DevicePollable[string, *testDev]("kbd"))
	require.Equal(t, 2, k.Drain())

	got, ok := k.Registry().Device("kbd")
	require.True(t, ok)
	require.Same(t, d, got)
	require.Equal(t, 1, d.polls)
}

func TestUnknownDeviceIsNonFatal(t *testing.T) {
	log, logs := observed()
	b := bus.NewBus(8)
	conn := b.NewConnection("test")
	sub := conn.Subscribe(TopicUnknownDevice())
	defer conn.Disconnect()

	p := newFakePlatform()
	k := New[string, *testDev](p, WithLogger(log), WithTelemetry(conn))

	p.q.Push(DevicePollable[string, *testDev]("ghost"))
	require.Equal(t, 1, k.Drain())

	require.Equal(t, 0, k.Registry().Len())
	entries := logs.FilterMessage("unknown device ID").All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
	require.Equal(t, "ghost", entries[0].ContextMap()["id"])

	msg := <-sub.Channel()
	require.Equal(t, "ghost", msg.Payload.(types.UnknownDevice).ID)
}

func TestClockTicks(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("test")
	sub := conn.Subscribe(TopicTick())
	defer conn.Disconnect()

	p := newFakePlatform()
	k := New[string, *testDev](p, WithTelemetry(conn))
	for i := 0; i < 3; i++ {
		p.q.Push(ClockTicked[string, *testDev]())
	}
	k.Drain()

	require.EqualValues(t, 3, k.Ticks())
	for want := uint64(1); want <= 3; want++ {
		msg := <-sub.Channel()
		require.Equal(t, want, msg.Payload.(types.Tick).Count)
	}
}

func TestReplaceDevice(t *testing.T) {
	log, logs := observed()
	p := newFakePlatform()
	k := New[string, *testDev](p, WithLogger(log))
	first, second := &testDev{}, &testDev{}

	p.q.Push(DeviceConnected("fs", first))
	p.q.Push(DeviceConnected("fs", second))
	p.q.Push(DevicePollable[string, *testDev]("fs"))
	k.Drain()

	require.Equal(t, 0, first.polls)
	require.Equal(t, 1, second.polls)
	require.Equal(t, 1, k.Registry().Len())
	require.Equal(t, 1, logs.FilterMessage("device replaced").Len())
}

func TestDeviceTelemetryRetained(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("test")
	defer conn.Disconnect()

	p := newFakePlatform()
	k := New[string, *testDev](p, WithTelemetry(conn))
	p.q.Push(DeviceConnected("gpu", &testDev{gfx: true}))
	k.Drain()

	// Late subscriber still sees the retained device info.
	sub := conn.Subscribe(TopicDevices())
	msg := <-sub.Channel()
	info := msg.Payload.(types.DeviceInfo)
	require.Equal(t, "gpu", info.ID)
	require.Equal(t, []string{types.CapGraphics}, info.Capabilities)
}

func TestStartRunsUntilCancelled(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("test")
	defer conn.Disconnect()

	gpu := &testDev{gfx: true}
	kbd := &testDev{}
	p := newFakePlatform()
	p.boot = []ev{DeviceConnected("gpu", gpu), DeviceConnected("kbd", kbd)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.onSleep = func() {
		switch p.sleeps {
		case 1:
			p.q.Push(DevicePollable[string, *testDev]("kbd"))
		case 2:
			cancel()
		}
	}

	k := New[string, *testDev](p, WithTelemetry(conn))
	require.NoError(t, k.Start(ctx))

	require.Equal(t, 1, gpu.clears, "graphics devices are cleared at boot")
	require.Equal(t, 1, kbd.polls)
	require.Equal(t, 2, p.sleeps)
	require.Equal(t, types.LevelStopped, k.State())

	sub := conn.Subscribe(TopicState())
	msg := <-sub.Channel()
	st := msg.Payload.(types.KernelState)
	require.Equal(t, types.LevelStopped, st.Level)
	require.Equal(t, "context_cancelled", st.Status)
}

func TestStartInitFailure(t *testing.T) {
	p := newFakePlatform()
	p.initErr = errors.New("no firmware")
	k := New[string, *testDev](p)

	err := k.Start(context.Background())
	require.Error(t, err)
	require.Equal(t, errcode.Error, errcode.Of(err))
	require.Equal(t, types.LevelStopped, k.State())
	require.Zero(t, p.sleeps)
}

func TestPanicInPollHalts(t *testing.T) {
	log, logs := observed()
	halted := false
	h := halt.New(log, func() { halted = true })

	p := newFakePlatform()
	p.boot = []ev{
		DeviceConnected("bad", &testDev{onPoll: func() { panic("device fault") }}),
		DevicePollable[string, *testDev]("bad"),
	}
	k := New[string, *testDev](p, WithLogger(log), WithHalter(h))

	require.NoError(t, k.Start(context.Background()))
	require.True(t, halted)
	entry := logs.FilterMessage("unrecoverable error").All()
	require.Len(t, entry, 1)
	require.Equal(t, "device fault", entry[0].ContextMap()["cause"])
}

func TestClearGraphicsDevices(t *testing.T) {
	log, logs := observed()
	p := newFakePlatform()
	k := New[string, *testDev](p, WithLogger(log))

	require.Zero(t, k.ClearGraphicsDevices(), "no graphics devices is nothing to do")

	ok1, ok2 := &testDev{gfx: true}, &testDev{gfx: true}
	broken := &testDev{gfx: true, gfxErr: errcode.IOError}
	p.q.Push(DeviceConnected("a", ok1))
	p.q.Push(DeviceConnected("b", ok2))
	p.q.Push(DeviceConnected("c", broken))
	p.q.Push(DeviceConnected("kbd", &testDev{}))
	k.Drain()

	require.Equal(t, 2, k.ClearGraphicsDevices())
	require.Equal(t, 1, ok1.clears)
	require.Equal(t, 1, ok2.clears)
	require.Equal(t, 1, logs.FilterMessage("graphics clear failed").Len())
}

func TestListFilesystems(t *testing.T) {
	p := newFakePlatform()
	k := New[string, *testDev](p)
	p.q.Push(DeviceConnected("esp", &testDev{fs: listFS{entries: []string{"EFI", "kernel.elf"}}}))
	p.q.Push(DeviceConnected("bad", &testDev{fs: listFS{err: errcode.ProtocolError}}))
	p.q.Push(DeviceConnected("kbd", &testDev{}))
	k.Drain()

	got := k.ListFilesystems()
	require.Equal(t, map[string][]string{"esp": {"EFI", "kernel.elf"}}, got)

	ids := k.Registry().FilesystemDevices()
	sort.Strings(ids)
	require.Equal(t, []string{"bad", "esp"}, ids)
}
