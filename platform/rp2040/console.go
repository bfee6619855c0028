package rp2040

import (
	"io"

	"go.uber.org/zap"

	"eventkernel/kernel"
	"eventkernel/x/ringq"
)

const consoleRxLen = 128

// Console is a serial line device. Poll echoes received bytes back and
// completes lines.
type Console struct {
	kernel.NoCapabilities

	w    io.Writer
	rx   *ringq.Ring[byte]
	line []byte
	log  *zap.Logger
}

func newConsole(w io.Writer, log *zap.Logger) *Console {
	if log == nil {
		log = zap.NewNop()
	}
	return &Console{w: w, rx: ringq.New[byte](consoleRxLen), log: log.Named("console")}
}

func (c *Console) Poll() {
	for {
		b, ok := c.rx.Poll()
		if !ok {
			return
		}
		if b == '\r' || b == '\n' {
			_, _ = c.w.Write([]byte("\r\n"))
			if len(c.line) > 0 {
				c.log.Info("console line", zap.String("text", string(c.line)))
				c.line = c.line[:0]
			}
			continue
		}
		_, _ = c.w.Write([]byte{b})
		c.line = append(c.line, b)
	}
}

// Dropped counts received bytes lost to overflow.
func (c *Console) Dropped() uint64 { return c.rx.Overwritten() }
