//go:build !rp2040

package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"eventkernel/errcode"
)

// EmbeddedConfigLookup allows overriding how named configs are resolved.
var EmbeddedConfigLookup = func(name string) ([]byte, bool) {
	b, ok := embeddedConfigs[name]
	return b, ok
}

// Parse overlays the YAML document b on Default and normalizes the result.
func Parse(b []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, errcode.Wrap(errcode.InvalidParams, "config.parse", err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Load parses the file at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errcode.Wrap(errcode.IOError, "config.load", err)
	}
	return Parse(b)
}

// Named parses a built-in configuration such as "host" or "rp2040".
func Named(name string) (Config, error) {
	raw, ok := EmbeddedConfigLookup(name)
	if !ok || len(raw) == 0 {
		return Config{}, errcode.New(errcode.InvalidParams, "config.named", "no embedded config: "+name)
	}
	return Parse(raw)
}

// Names lists the built-in configurations.
func Names() []string {
	out := make([]string, 0, len(embeddedConfigs))
	for k := range embeddedConfigs {
		out = append(out, k)
	}
	return out
}
