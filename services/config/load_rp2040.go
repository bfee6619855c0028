//go:build rp2040

package config

import "eventkernel/errcode"

// Named returns the board configuration. Firmware carries no YAML decoder,
// so "rp2040" is the only name it knows.
func Named(name string) (Config, error) {
	if name != boardName {
		return Config{}, errcode.New(errcode.InvalidParams, "config.named", "no embedded config: "+name)
	}
	return Board(), nil
}

// Names lists the built-in configurations.
func Names() []string { return []string{boardName} }
