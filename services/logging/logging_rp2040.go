//go:build rp2040

package logging

import (
	"machine"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"eventkernel/services/config"
)

// New builds a logger writing plain lines to the USB serial console. The
// format setting is ignored. verbose forces debug level.
func New(cfg config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	return zap.New(NewLineCore(machine.Serial, lvl)), nil
}
