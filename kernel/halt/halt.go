// Package halt reports unrecoverable conditions and stops the processor.
//
// A bare-metal kernel has no higher authority to recover to: every fatal
// path logs the cause and the location that raised it, then halts. The halt
// function is injectable so that tests and the host front-end can observe
// the halt instead of blocking forever.
package halt

import (
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

// Error describes an unrecoverable condition raised by a kernel module.
type Error struct {
	Module  string
	Message string
}

func (e *Error) Error() string { return "[" + e.Module + "] " + e.Message }

// Forever is the production halt function: the calling context never resumes.
func Forever() { select {} }

// Halter logs fatal conditions and invokes its halt function.
type Halter struct {
	log  *zap.Logger
	halt func()
}

// New returns a Halter. A nil logger is replaced by a no-op logger and a nil
// halt function by Forever.
func New(log *zap.Logger, haltFn func()) *Halter {
	if log == nil {
		log = zap.NewNop()
	}
	if haltFn == nil {
		haltFn = Forever
	}
	return &Halter{log: log.Named("halt"), halt: haltFn}
}

// Fatal reports err together with the caller's location and halts. Callers
// must not rely on Fatal returning; code after it only runs when a test
// substitutes the halt function.
func (h *Halter) Fatal(err error) {
	h.fatal(err, location(1))
}

// Fatalf is Fatal with a formatted *Error.
func (h *Halter) Fatalf(module, format string, args ...any) {
	h.fatal(&Error{Module: module, Message: fmt.Sprintf(format, args...)}, location(1))
}

// Recover converts a Go panic escaping the deferring function into a fatal
// report. Use as `defer h.Recover()`.
func (h *Halter) Recover() {
	r := recover()
	if r == nil {
		return
	}
	var err error
	switch t := r.(type) {
	case *Error:
		err = t
	case error:
		err = &Error{Module: "rt", Message: t.Error()}
	case string:
		err = &Error{Module: "rt", Message: t}
	default:
		err = &Error{Module: "rt", Message: fmt.Sprint(t)}
	}
	h.fatal(err, panicLocation())
}

func (h *Halter) fatal(err error, loc string) {
	module := "rt"
	msg := "unknown cause"
	if err != nil {
		msg = err.Error()
		if ke, ok := err.(*Error); ok {
			module, msg = ke.Module, ke.Message
		}
	}
	h.log.Error("unrecoverable error",
		zap.String("module", module),
		zap.String("cause", msg),
		zap.String("location", loc),
	)
	h.log.Error("*** kernel panic: system halted ***")
	_ = h.log.Sync()
	h.halt()
}

// location returns file:line of the frame skip levels above its caller.
func location(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// panicLocation returns the frame that called panic: the first non-runtime
// frame after runtime.gopanic on the recovering goroutine's stack.
func panicLocation() string {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var panicking bool
	for {
		f, more := frames.Next()
		switch {
		case f.Function == "runtime.gopanic":
			panicking = true
		case panicking && !strings.HasPrefix(f.Function, "runtime."):
			return fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		if !more {
			return "unknown"
		}
	}
}
