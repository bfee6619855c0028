package kernel

import (
	"fmt"

	"eventkernel/bus"
)

// Telemetry topics published by the kernel.
//
//	kernel/state              retained  types.KernelState
//	kernel/tick                         types.Tick
//	kernel/device/<id>        retained  types.DeviceInfo
//	kernel/unknown_device               types.UnknownDevice
const topicRoot = "kernel"

func TopicState() bus.Topic         { return bus.T(topicRoot, "state") }
func TopicTick() bus.Topic          { return bus.T(topicRoot, "tick") }
func TopicDevices() bus.Topic       { return bus.T(topicRoot, "device", "+") }
func TopicUnknownDevice() bus.Topic { return bus.T(topicRoot, "unknown_device") }

func topicDevice(id any) bus.Topic { return bus.T(topicRoot, "device", idString(id)) }

func idString(id any) string {
	if s, ok := id.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(id)
}
