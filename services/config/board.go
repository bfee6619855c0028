package config

import (
	"time"

	"eventkernel/mem/bootinfo"
)

const boardName = "rp2040"

// Board is the RP2040 configuration as a Go value, for firmware builds that
// leave the YAML decoder out of the image. It matches the embedded "rp2040"
// document.
func Board() Config {
	cfg := Default()
	cfg.Kernel = KernelConfig{EventQueueCapacity: 64, TickInterval: time.Second}
	cfg.Memory.Regions = bootinfo.Map{{Start: 0x20000000, Length: 0x42000}}
	cfg.Keyboard.Enabled = false
	cfg.Heartbeat.EveryTicks = 5
	cfg.Console.BaudRate = 115200
	cfg.Normalize()
	return cfg
}
