package rp2040

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConsoleEchoesAndCompletesLines(t *testing.T) {
	var out bytes.Buffer
	core, logs := observer.New(zapcore.InfoLevel)
	c := newConsole(&out, zap.New(core))

	for _, b := range []byte("ls\r") {
		c.rx.Push(b)
	}
	c.Poll()

	require.Equal(t, "ls\r\n", out.String())
	entries := logs.FilterMessage("console line").All()
	require.Len(t, entries, 1)
	require.Equal(t, "ls", entries[0].ContextMap()["text"])

	_, ok := c.AsFilesystem()
	require.False(t, ok)
}
