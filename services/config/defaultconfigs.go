//go:build !rp2040

package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: configuration name (selected with --config-name)
// Val: raw YAML for that target
// -----------------------------------------------------------------------------

// QEMU-like PC: 1 MiB low memory hole, a Cirrus card in slot 2 and an
// emulated NIC nobody drives.
const cfgHost = `
kernel:
  event_queue_capacity: 1000
  tick_interval: 100ms
logging:
  level: info
  format: console
memory:
  regions:
    - { start: 0x0,      length: 0x9f000 }
    - { start: 0x100000, length: 0x7ee0000 }
pci:
  devices:
    - { bus: 0, slot: 0, vendor: 0x8086, device: 0x1237 }
    - { bus: 0, slot: 2, vendor: 0x1234, device: 0x1111, bar0: 0xfd000008 }
    - { bus: 0, slot: 3, vendor: 0x8086, device: 0x100e }
graphics:
  width: 1024
  height: 768
keyboard:
  enabled: true
heartbeat:
  every_ticks: 10
`

// RP2040: 264 KiB SRAM in one region, UART console, no PCI.
const cfgRP2040 = `
kernel:
  event_queue_capacity: 64
  tick_interval: 1s
logging:
  level: info
  format: console
memory:
  regions:
    - { start: 0x20000000, length: 0x42000 }
keyboard:
  enabled: false
heartbeat:
  every_ticks: 5
console:
  baud_rate: 115200
`

var embeddedConfigs = map[string][]byte{
	"host":   []byte(cfgHost),
	"rp2040": []byte(cfgRP2040),
}
