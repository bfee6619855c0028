// Package logging builds the kernel's zap logger from configuration. Host
// builds use zap's encoders; board builds write plain lines through a
// LineCore.
package logging

import (
	"go.uber.org/zap/zapcore"

	"eventkernel/errcode"
)

// ParseLevel maps debug|info|warn|error to a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	var l zapcore.Level
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, errcode.Wrap(errcode.InvalidParams, "logging.level", err)
	}
	return l, nil
}
