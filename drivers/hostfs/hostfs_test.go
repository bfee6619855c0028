package hostfs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"eventkernel/errcode"
	"eventkernel/kernel/halt"
	"eventkernel/mem/phys"
)

func TestMain(m *testing.M) { goleak.VerifyTestMain(m) }

type countingStager struct {
	calls []uint64
}

func (s *countingStager) MustAllocate(size, align uint64) uint64 {
	s.calls = append(s.calls, size)
	return 0x1000
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"kernel.elf":       {Data: []byte("\x7fELF")},
		"EFI/BOOT/x64.efi": {Data: []byte("MZ")},
		"empty":            {Data: nil},
	}
}

func TestList(t *testing.T) {
	d := NewFS("/esp", testFS(), nil, nil)
	fsys, ok := d.AsFilesystem()
	require.True(t, ok)
	names, err := fsys.List()
	require.NoError(t, err)
	require.Equal(t, []string{"EFI", "empty", "kernel.elf"}, names)

	_, ok = d.AsGraphicsDevice()
	require.False(t, ok)
}

func TestReadStagesThroughAllocator(t *testing.T) {
	st := &countingStager{}
	d := NewFS("/esp", testFS(), st, nil)

	b, err := d.Read("kernel.elf")
	require.NoError(t, err)
	require.Equal(t, []byte("\x7fELF"), b)
	require.Equal(t, []uint64{4}, st.calls)

	b, err = d.Read("empty")
	require.NoError(t, err)
	require.Empty(t, b)
	require.Len(t, st.calls, 1, "empty files need no buffer")
}

func TestReadErrors(t *testing.T) {
	d := NewFS("/esp", testFS(), nil, nil)
	cases := []struct {
		path string
		code errcode.Code
	}{
		{"EFI", errcode.ProtocolError},
		{"../etc/passwd", errcode.OutOfRange},
		{"/kernel.elf", errcode.OutOfRange},
		{".", errcode.OutOfRange},
		{"missing.txt", errcode.IOError},
	}
	for _, tc := range cases {
		_, err := d.Read(tc.path)
		require.Equal(t, tc.code, errcode.Of(err), "path %q: %v", tc.path, err)
	}
}

func TestReadOutOfMemoryHalts(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	log := zap.New(core)
	halted := false
	alloc := phys.New(log, halt.New(log, func() { halted = true }))
	require.NoError(t, alloc.AddHeap(0x1000, 2))

	d := NewFS("/esp", testFS(), alloc, nil)
	_, _ = d.Read("kernel.elf")

	require.True(t, halted, "a read buffer that does not fit halts the kernel")
	require.Equal(t, 1, logs.FilterMessage("unrecoverable error").Len())

	halted = false
	_, err := d.Read("EFI/BOOT/x64.efi")
	require.NoError(t, err)
	require.False(t, halted, "a 2-byte read still fits")
}

func TestOpen(t *testing.T) {
	d := NewFS("/esp", testFS(), nil, nil)
	f, err := d.Open("EFI/BOOT/x64.efi")
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, "x64.efi", f.Name())
	require.EqualValues(t, 2, f.Size())
	b, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "MZ", string(b))

	_, err = d.Open("EFI/BOOT")
	require.True(t, errors.Is(err, errcode.ProtocolError))
}

func TestWatchRaisesInterrupt(t *testing.T) {
	dir := t.TempDir()
	core, logs := observer.New(zapcore.InfoLevel)
	d := New(dir, nil, zap.New(core))

	irq := make(chan struct{}, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, d.Watch(ctx, func() {
		select {
		case irq <- struct{}{}:
		default:
		}
	}))
	defer d.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("hi"), 0o644))
	select {
	case <-irq:
	case <-time.After(5 * time.Second):
		t.Fatal("no interrupt after creating a file")
	}

	d.Poll()
	require.GreaterOrEqual(t, logs.FilterMessage("filesystem changed").Len(), 1)

	names, err := d.List()
	require.NoError(t, err)
	require.Equal(t, []string{"new.txt"}, names)
}

func TestWatchStopsOnCancel(t *testing.T) {
	d := New(t.TempDir(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Watch(ctx, nil))
	cancel()
	require.NoError(t, d.Close())
	require.NoError(t, d.Close(), "second close is a no-op")
}
