package pckbd

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// scriptPort returns queued bytes, then 0 with the output buffer empty.
type scriptPort struct{ b []uint8 }

func (p *scriptPort) Status() uint8 {
	if len(p.b) == 0 {
		return 0
	}
	return StatusOutputFull
}

func (p *scriptPort) In() uint8 {
	if len(p.b) == 0 {
		return 0
	}
	v := p.b[0]
	p.b = p.b[1:]
	return v
}

func typeString(t *testing.T, s string) []uint8 {
	t.Helper()
	var out []uint8
	for _, r := range s {
		seq, ok := Encode(r)
		require.True(t, ok, "no scancode for %q", r)
		out = append(out, seq...)
	}
	return out
}

func readRunes(k *Keyboard) string {
	var out []rune
	for {
		ev, ok := k.ReadKey()
		if !ok {
			return string(out)
		}
		if ev.Pressed && ev.Rune != 0 {
			out = append(out, ev.Rune)
		}
	}
}

func TestPollDecodesTypedText(t *testing.T) {
	const text = "Hello, World!\n"
	port := &scriptPort{b: typeString(t, text)}
	k := New(port, 256, nil)
	for len(port.b) > 0 {
		k.Poll()
	}
	if diff := cmp.Diff(text, readRunes(k)); diff != "" {
		t.Fatalf("decoded text mismatch (-want +got):\n%s", diff)
	}
}

func TestPollLogsScancode(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	k := New(&scriptPort{b: []uint8{0x1e}}, 0, zap.New(core))
	k.Poll()

	entries := logs.FilterMessage("keyboard scancode").All()
	require.Len(t, entries, 1)
	require.Equal(t, "0x1e", entries[0].ContextMap()["scancode"])

	ev, ok := k.ReadKey()
	require.True(t, ok)
	require.Equal(t, KeyEvent{Scancode: 0x1e, Pressed: true, Rune: 'a'}, ev)
}

func TestPollWithEmptyBufferQueuesNothing(t *testing.T) {
	port := &scriptPort{b: typeString(t, "a")}
	k := New(port, 0, nil)
	for i := 0; i < 5; i++ {
		k.Poll()
	}
	require.Equal(t, "a", readRunes(k))
	require.EqualValues(t, 3, k.Spurious())
}

func TestDecoderDropsErrorCodes(t *testing.T) {
	var d Decoder
	for _, b := range []uint8{0x00, 0xff} {
		_, ok := d.Feed(b)
		require.False(t, ok, "byte %#x", b)
	}
	ev, ok := d.Feed(0x1e)
	require.True(t, ok)
	require.Equal(t, 'a', ev.Rune)
}

func TestDecoderExtendedAndBreak(t *testing.T) {
	var d Decoder
	_, ok := d.Feed(0xe0)
	require.False(t, ok)
	ev, ok := d.Feed(0x48) // arrow up
	require.True(t, ok)
	require.True(t, ev.Extended)
	require.True(t, ev.Pressed)

	ev, ok = d.Feed(0x9c) // enter released
	require.True(t, ok)
	require.False(t, ev.Extended)
	require.False(t, ev.Pressed)
	require.Equal(t, "enter", ev.Name)
}

func TestDecoderCapsLock(t *testing.T) {
	var d Decoder
	d.Feed(0x3a)
	d.Feed(0xba)
	ev, _ := d.Feed(0x10)
	require.Equal(t, 'Q', ev.Rune)
	d.Feed(codeLShift)
	ev, _ = d.Feed(0x10)
	require.Equal(t, 'q', ev.Rune)
}

func TestKeyQueueOverflow(t *testing.T) {
	port := &scriptPort{b: typeString(t, "abcdef")}
	k := New(port, 4, nil)
	for len(port.b) > 0 {
		k.Poll()
	}
	require.EqualValues(t, 8, k.Dropped())
	_, ok := k.AsGraphicsDevice()
	require.False(t, ok)
}

func TestEncodeUnknown(t *testing.T) {
	_, ok := Encode('é')
	require.False(t, ok)
	seq, ok := Encode('A')
	require.True(t, ok)
	require.Equal(t, []uint8{0x2a, 0x1e, 0x9e, 0xaa}, seq)
}
