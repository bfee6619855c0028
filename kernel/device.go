package kernel

import "io"

// Device is a piece of hardware owned by the registry. Poll performs one unit
// of pending hardware work and must not block indefinitely.
//
// The As* methods are capability views. A view is bound to the device it came
// from and carries no ownership of its own; a false result means the device
// does not support the capability.
type Device interface {
	Poll()
	AsFilesystem() (Filesystem, bool)
	AsGraphicsDevice() (GraphicsDevice, bool)
}

// Filesystem is the capability view of a storage device.
type Filesystem interface {
	// List returns the names of the entries in the root directory.
	List() ([]string, error)
	// Read returns the whole contents of the file at path.
	Read(path string) ([]byte, error)
	// Open returns a handle for streaming reads.
	Open(path string) (File, error)
}

// File is a handle to an open file on a Filesystem.
type File interface {
	io.ReadCloser
	Name() string
	Size() int64
}

// GraphicsDevice is the capability view of a display controller.
type GraphicsDevice interface {
	Clear() error
}

// NoCapabilities can be embedded by devices that only support Poll.
type NoCapabilities struct{}

func (NoCapabilities) AsFilesystem() (Filesystem, bool)         { return nil, false }
func (NoCapabilities) AsGraphicsDevice() (GraphicsDevice, bool) { return nil, false }

// Capability names an optional device view.
type Capability uint8

const (
	CapFilesystem Capability = iota + 1
	CapGraphics
)

func (c Capability) String() string {
	switch c {
	case CapFilesystem:
		return "filesystem"
	case CapGraphics:
		return "graphics"
	default:
		return "unknown"
	}
}

// SupportedBy reports whether d currently satisfies the capability.
func (c Capability) SupportedBy(d Device) bool {
	switch c {
	case CapFilesystem:
		_, ok := d.AsFilesystem()
		return ok
	case CapGraphics:
		_, ok := d.AsGraphicsDevice()
		return ok
	default:
		return false
	}
}

// Capabilities lists the names of every capability d supports.
func Capabilities(d Device) []string {
	var out []string
	for _, c := range []Capability{CapFilesystem, CapGraphics} {
		if c.SupportedBy(d) {
			out = append(out, c.String())
		}
	}
	return out
}
