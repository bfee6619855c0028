package types

// ---- Kernel state (retained) ----

// Level is the event loop phase reported on kernel/state.
type Level string

const (
	LevelInitializing Level = "initializing"
	LevelDraining     Level = "draining"
	LevelIdle         Level = "idle"
	LevelStopped      Level = "stopped"
)

type KernelState struct {
	Level  Level  `json:"level"`
	Status string `json:"status,omitempty"` // freeform short code
	TS     int64  `json:"ts_ms"`
}

// ---- Clock ----

type Tick struct {
	Count uint64 `json:"count"`
	TS    int64  `json:"ts_ms"`
}

// ---- Devices ----

// Capability names used in telemetry.
const (
	CapFilesystem = "filesystem"
	CapGraphics   = "graphics"
)

// DeviceInfo is published (retained) when a device is registered.
type DeviceInfo struct {
	ID           string   `json:"id"`
	Capabilities []string `json:"capabilities,omitempty"`
	Replaced     bool     `json:"replaced,omitempty"`
	TS           int64    `json:"ts_ms"`
}

// UnknownDevice reports a DevicePollable for an unregistered ID.
type UnknownDevice struct {
	ID string `json:"id"`
	TS int64  `json:"ts_ms"`
}

// ---- Memory ----

type HeapInfo struct {
	Slot   int    `json:"slot"`
	Bottom uint64 `json:"bottom"`
	Size   uint64 `json:"size"`
	Used   uint64 `json:"used"`
}

type MemoryInfo struct {
	Heaps []HeapInfo `json:"heaps"`
	Total uint64     `json:"total"`
	Free  uint64     `json:"free"`
}
