package kernel

import "context"

// Platform is the hardware seam the kernel is generic over. ID identifies a
// device within the platform and D is the platform's device type.
type Platform[ID comparable, D Device] interface {
	// Init performs hardware bring-up. It may enqueue initial events, such as
	// DeviceConnected for statically known devices or the results of a bus
	// scan, to be drained by the first loop iteration.
	Init(ctx context.Context) error
	// PollEvent returns the oldest pending event without blocking.
	PollEvent() (Event[ID, D], bool)
	// Sleep halts until the next interrupt. It may return early.
	Sleep()
}
