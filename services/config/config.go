// Package config loads the kernel configuration and publishes it, one
// retained message per section, on the bus. Host builds read YAML; board
// builds carry their configuration as a Go value.
package config

import (
	"context"
	"time"

	"eventkernel/bus"
	"eventkernel/mem/bootinfo"
	"eventkernel/x/mathx"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

// Limits applied by Normalize.
const (
	MinQueueCapacity = 16
	MaxQueueCapacity = 1 << 16
	MinTickInterval  = time.Millisecond
	MaxTickInterval  = 10 * time.Second
	MaxGraphicsSide  = 4096
)

type Config struct {
	Kernel     KernelConfig     `yaml:"kernel"`
	Logging    LoggingConfig    `yaml:"logging"`
	Memory     MemoryConfig     `yaml:"memory"`
	PCI        PCIConfig        `yaml:"pci"`
	Filesystem FilesystemConfig `yaml:"filesystem"`
	Graphics   GraphicsConfig   `yaml:"graphics"`
	Keyboard   KeyboardConfig   `yaml:"keyboard"`
	Heartbeat  HeartbeatConfig  `yaml:"heartbeat"`
	Console    ConsoleConfig    `yaml:"console"`
}

type KernelConfig struct {
	EventQueueCapacity int           `yaml:"event_queue_capacity"`
	TickInterval       time.Duration `yaml:"tick_interval"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // console|json
}

type MemoryConfig struct {
	Regions bootinfo.Map `yaml:"regions"`
}

type PCIConfig struct {
	Devices []PCIDevice `yaml:"devices"`
}

type PCIDevice struct {
	Bus    uint8  `yaml:"bus"`
	Slot   uint8  `yaml:"slot"`
	Vendor uint16 `yaml:"vendor"`
	Device uint16 `yaml:"device"`
	BAR0   uint32 `yaml:"bar0"`
}

type FilesystemConfig struct {
	Root  string `yaml:"root"`
	Watch bool   `yaml:"watch"`
}

type GraphicsConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type KeyboardConfig struct {
	Enabled  bool `yaml:"enabled"`
	QueueLen int  `yaml:"queue_len"`
}

type HeartbeatConfig struct {
	EveryTicks int `yaml:"every_ticks"`
}

type ConsoleConfig struct {
	BaudRate uint32 `yaml:"baud_rate"`
}

// Default returns the built-in configuration with no devices.
func Default() Config {
	return Config{
		Kernel:    KernelConfig{EventQueueCapacity: 1000, TickInterval: 100 * time.Millisecond},
		Logging:   LoggingConfig{Level: "info", Format: "console"},
		Graphics:  GraphicsConfig{Width: 1024, Height: 768},
		Keyboard:  KeyboardConfig{Enabled: true, QueueLen: 64},
		Heartbeat: HeartbeatConfig{EveryTicks: 10},
		Console:   ConsoleConfig{BaudRate: 115200},
	}
}

// Normalize clamps numeric settings into their supported ranges. Zero
// values fall back to the defaults first.
func (c *Config) Normalize() {
	def := Default()
	if c.Kernel.EventQueueCapacity == 0 {
		c.Kernel.EventQueueCapacity = def.Kernel.EventQueueCapacity
	}
	if c.Kernel.TickInterval == 0 {
		c.Kernel.TickInterval = def.Kernel.TickInterval
	}
	if c.Heartbeat.EveryTicks <= 0 {
		c.Heartbeat.EveryTicks = def.Heartbeat.EveryTicks
	}
	if c.Keyboard.QueueLen <= 0 {
		c.Keyboard.QueueLen = def.Keyboard.QueueLen
	}
	if c.Console.BaudRate == 0 {
		c.Console.BaudRate = def.Console.BaudRate
	}
	c.Kernel.EventQueueCapacity = mathx.Clamp(c.Kernel.EventQueueCapacity, MinQueueCapacity, MaxQueueCapacity)
	c.Kernel.TickInterval = mathx.Clamp(c.Kernel.TickInterval, MinTickInterval, MaxTickInterval)
	c.Graphics.Width = mathx.Clamp(c.Graphics.Width, 1, MaxGraphicsSide)
	c.Graphics.Height = mathx.Clamp(c.Graphics.Height, 1, MaxGraphicsSide)
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

// Topic returns the retained topic carrying one configuration section.
func Topic(section string) bus.Topic { return bus.T(configPrefix, section) }

type ConfigService struct {
	Name string
	cfg  Config
}

func NewConfigService(cfg Config) *ConfigService {
	return &ConfigService{Name: serviceName, cfg: cfg}
}

// Publish sends every section as a retained message.
func (s *ConfigService) Publish(conn *bus.Connection) {
	sections := map[string]any{
		"kernel":     s.cfg.Kernel,
		"logging":    s.cfg.Logging,
		"memory":     s.cfg.Memory,
		"pci":        s.cfg.PCI,
		"filesystem": s.cfg.Filesystem,
		"graphics":   s.cfg.Graphics,
		"keyboard":   s.cfg.Keyboard,
		"heartbeat":  s.cfg.Heartbeat,
		"console":    s.cfg.Console,
	}
	for k, v := range sections {
		conn.Publish(conn.NewMessage(Topic(k), v, true))
	}
}

// Start publishes the configuration. Retained messages make it visible to
// services that subscribe later, so nothing keeps running afterwards.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Publish(conn)
	return nil
}
