package halt

import (
	"fmt"

	"go.uber.org/zap"
)

// Vector identifies a processor exception.
type Vector uint8

// x86 exception vectors handled by the kernel.
const (
	DivideError       Vector = 0x00
	Debug             Vector = 0x01
	NonMaskable       Vector = 0x02
	Breakpoint        Vector = 0x03
	InvalidOpcode     Vector = 0x06
	DoubleFault       Vector = 0x08
	GeneralProtection Vector = 0x0d
	PageFault         Vector = 0x0e
)

var vectorNames = map[Vector]string{
	DivideError:       "divide by zero",
	Debug:             "debug interrupt",
	NonMaskable:       "non-maskable interrupt",
	Breakpoint:        "breakpoint",
	InvalidOpcode:     "invalid opcode",
	DoubleFault:       "double fault",
	GeneralProtection: "general protection fault",
	PageFault:         "page fault",
}

func (v Vector) String() string {
	if s, ok := vectorNames[v]; ok {
		return s
	}
	return "unknown exception"
}

// Fatal reports whether the exception stops the kernel. Breakpoint and
// invalid opcode are only logged.
func (v Vector) Fatal() bool {
	return v != Breakpoint && v != InvalidOpcode
}

// Exception handles a processor exception. frame is a printable description
// of the interrupted state (instruction pointer, stack pointer, ...).
func (h *Halter) Exception(v Vector, errorCode uint64, frame string) {
	if !v.Fatal() {
		h.log.Info("exception", zap.Stringer("vector", v), zap.String("frame", frame))
		return
	}
	h.fatal(&Error{Module: "cpu", Message: v.String()}, fmt.Sprintf("%s (error code: %#x)", frame, errorCode))
}
