package kernel

import "sync"

// Registry owns every connected device, keyed by ID. Entries are never
// removed.
type Registry[ID comparable, D Device] struct {
	mu  sync.RWMutex
	dev map[ID]D
}

func NewRegistry[ID comparable, D Device]() *Registry[ID, D] {
	return &Registry[ID, D]{dev: map[ID]D{}}
}

// Insert registers d under id. An existing device under the same id is
// dropped without teardown; replaced reports whether that happened.
func (r *Registry[ID, D]) Insert(id ID, d D) (replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, replaced = r.dev[id]
	r.dev[id] = d
	return replaced
}

// Device looks up the device registered under id.
func (r *Registry[ID, D]) Device(id ID) (D, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dev[id]
	return d, ok
}

// WithCapability returns the IDs of devices that support c at call time.
// The result is a snapshot in no particular order.
func (r *Registry[ID, D]) WithCapability(c Capability) []ID {
	return r.Matching(c.SupportedBy)
}

// Matching returns the IDs of devices satisfying pred at call time.
func (r *Registry[ID, D]) Matching(pred func(Device) bool) []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []ID
	for id, d := range r.dev {
		if pred(d) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Registry[ID, D]) FilesystemDevices() []ID { return r.WithCapability(CapFilesystem) }
func (r *Registry[ID, D]) GraphicsDevices() []ID   { return r.WithCapability(CapGraphics) }

// IDs returns every registered ID.
func (r *Registry[ID, D]) IDs() []ID {
	return r.Matching(func(Device) bool { return true })
}

func (r *Registry[ID, D]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.dev)
}
