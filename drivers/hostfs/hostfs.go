// Package hostfs is a filesystem device backed by a host directory. It
// offers the kernel's Filesystem capability over the directory root and can
// watch the directory, raising an interrupt when its contents change.
package hostfs

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"eventkernel/errcode"
	"eventkernel/kernel"
	"eventkernel/x/ringq"
)

const changeQueueLen = 32

// Stager reserves physical memory for a read buffer. Running out of memory
// is fatal: MustAllocate halts instead of returning an error.
type Stager interface {
	MustAllocate(size, align uint64) uint64
}

// Device is a filesystem device rooted at a host directory.
type Device struct {
	root  string
	fsys  fs.FS
	stage Stager
	log   *zap.Logger

	changes *ringq.Ring[fsnotify.Event]

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New returns a device over root. Reads stage their buffers through stage
// when it is non-nil.
func New(root string, stage Stager, log *zap.Logger) *Device {
	return NewFS(root, os.DirFS(root), stage, log)
}

// NewFS is New over an arbitrary fs.FS; root is used for watching and
// diagnostics only.
func NewFS(root string, fsys fs.FS, stage Stager, log *zap.Logger) *Device {
	if log == nil {
		log = zap.NewNop()
	}
	return &Device{
		root:    root,
		fsys:    fsys,
		stage:   stage,
		log:     log.Named("hostfs"),
		changes: ringq.New[fsnotify.Event](changeQueueLen),
	}
}

func (d *Device) String() string { return "hostfs:" + d.root }

// Poll handles pending change notifications.
func (d *Device) Poll() {
	for {
		ev, ok := d.changes.Poll()
		if !ok {
			return
		}
		d.log.Info("filesystem changed", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
	}
}

func (d *Device) AsFilesystem() (kernel.Filesystem, bool)         { return d, true }
func (d *Device) AsGraphicsDevice() (kernel.GraphicsDevice, bool) { return nil, false }

// List returns the sorted names of the root directory's entries.
func (d *Device) List() ([]string, error) {
	entries, err := fs.ReadDir(d.fsys, ".")
	if err != nil {
		return nil, errcode.Wrap(errcode.IOError, "hostfs.list", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the contents of the file at path.
func (d *Device) Read(path string) ([]byte, error) {
	const op = "hostfs.read"
	info, err := d.stat(op, path)
	if err != nil {
		return nil, err
	}
	if d.stage != nil && info.Size() > 0 {
		d.stage.MustAllocate(uint64(info.Size()), 8)
	}
	b, err := fs.ReadFile(d.fsys, path)
	if err != nil {
		return nil, errcode.Wrap(errcode.IOError, op, err)
	}
	return b, nil
}

// Open returns a streaming handle for the file at path.
func (d *Device) Open(path string) (kernel.File, error) {
	const op = "hostfs.open"
	info, err := d.stat(op, path)
	if err != nil {
		return nil, err
	}
	f, err := d.fsys.Open(path)
	if err != nil {
		return nil, errcode.Wrap(errcode.IOError, op, err)
	}
	return &file{ReadCloser: f, name: info.Name(), size: info.Size()}, nil
}

func (d *Device) stat(op, path string) (fs.FileInfo, error) {
	if !fs.ValidPath(path) || path == "." {
		return nil, &errcode.E{C: errcode.OutOfRange, Op: op, Msg: path}
	}
	info, err := fs.Stat(d.fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &errcode.E{C: errcode.IOError, Op: op, Msg: path, Err: err}
		}
		return nil, errcode.Wrap(errcode.IOError, op, err)
	}
	if info.IsDir() {
		return nil, &errcode.E{C: errcode.ProtocolError, Op: op, Msg: "is a directory: " + path}
	}
	return info, nil
}

type file struct {
	io.ReadCloser
	name string
	size int64
}

func (f *file) Name() string { return f.name }
func (f *file) Size() int64  { return f.size }

// Watch starts watching the root directory. Each change is queued for the
// next Poll and notify is called; notify runs on the watcher goroutine and
// must not block. Watching stops when ctx is done or Close is called.
func (d *Device) Watch(ctx context.Context, notify func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.watcher != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errcode.Wrap(errcode.IOError, "hostfs.watch", err)
	}
	if err := w.Add(d.root); err != nil {
		_ = w.Close()
		return errcode.Wrap(errcode.IOError, "hostfs.watch", err)
	}
	d.watcher = w
	d.done = make(chan struct{})
	go d.run(ctx, w, d.done, notify)
	d.log.Debug("watching", zap.String("root", d.root))
	return nil
}

// Close stops watching and waits for the watcher goroutine to exit.
func (d *Device) Close() error {
	d.mu.Lock()
	w, done := d.watcher, d.done
	d.watcher, d.done = nil, nil
	d.mu.Unlock()
	if w == nil {
		return nil
	}
	err := w.Close()
	<-done
	return err
}

func (d *Device) run(ctx context.Context, w *fsnotify.Watcher, done chan struct{}, notify func()) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			d.changes.Push(ev)
			if notify != nil {
				notify()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			d.log.Warn("watch error", zap.Error(err))
		}
	}
}
