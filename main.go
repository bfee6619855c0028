//go:build rp2040

// Firmware entry point for the RP2040: boots the kernel on the board
// platform with the built-in "rp2040" configuration.
package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"eventkernel/bus"
	"eventkernel/kernel"
	"eventkernel/kernel/halt"
	"eventkernel/platform/rp2040"
	"eventkernel/services/config"
	"eventkernel/services/heartbeat"
	"eventkernel/services/logging"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	cfg, err := config.Named("rp2040")
	if err != nil {
		println("config:", err.Error())
		halt.Forever()
	}
	log, err := logging.New(cfg.Logging, false)
	if err != nil {
		log = zap.NewNop()
	}
	h := halt.New(log, nil)

	ctx := context.Background()
	b := bus.NewBus(8)
	_ = config.NewConfigService(cfg).Start(ctx, b.NewConnection("config"))
	_ = heartbeat.New(log).Start(ctx, b.NewConnection("heartbeat"))

	k := kernel.New[rp2040.DeviceID, kernel.Device](rp2040.New(cfg, log, h),
		kernel.WithLogger(log),
		kernel.WithTelemetry(b.NewConnection("kernel")),
		kernel.WithHalter(h),
	)
	if err := k.Start(ctx); err != nil {
		h.Fatal(err)
	}
}
